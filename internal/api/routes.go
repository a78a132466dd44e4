package api

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Register mounts the table and post endpoints on mux. Returned patterns
// are in registration order.
func Register(mux *http.ServeMux, service Service, logger logrus.FieldLogger) []string {
	routes := []struct {
		pattern string
		handler http.Handler
	}{
		{"GET /api/v1/tables", NewListTablesHandler(service, logger)},
		{"POST /api/v1/tables", NewAddTableHandler(service, logger)},
		{"DELETE /api/v1/tables/{table}", NewRemoveTableHandler(service, logger)},
		{"GET /api/v1/statistics", NewStatisticsHandler(service, logger)},
		{"GET /api/v1/tables/{table}/posts", NewListPostsHandler(service, logger)},
		{"POST /api/v1/tables/{table}/posts", NewCreatePostHandler(service, logger)},
		{"GET /api/v1/tables/{table}/posts/sort", NewSortPostsHandler(service, logger)},
		{"GET /api/v1/tables/{table}/posts/filter/{cond}", NewFilterPostsHandler(service, logger)},
		{"GET /api/v1/tables/{table}/posts/{post_id}/{field}", NewGetFieldHandler(service, logger)},
		{"PATCH /api/v1/tables/{table}/posts/{post_id}", NewUpdatePostHandler(service, logger)},
	}

	patterns := make([]string, 0, len(routes))

	for _, route := range routes {
		mux.Handle(route.pattern, route.handler)
		patterns = append(patterns, route.pattern)
	}

	return patterns
}

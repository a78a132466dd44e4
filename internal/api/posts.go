package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/posts"
)

// Verify interface compliance at compile time.
var (
	_ http.Handler = (*ListPostsHandler)(nil)
	_ http.Handler = (*CreatePostHandler)(nil)
	_ http.Handler = (*SortPostsHandler)(nil)
	_ http.Handler = (*FilterPostsHandler)(nil)
	_ http.Handler = (*GetFieldHandler)(nil)
	_ http.Handler = (*UpdatePostHandler)(nil)
)

const (
	defaultSortLimit      = 10
	defaultSortDescending = true
)

// ListPostsHandler handles GET /api/v1/tables/{table}/posts.
type ListPostsHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewListPostsHandler creates a new list handler.
func NewListPostsHandler(service Service, logger logrus.FieldLogger) *ListPostsHandler {
	return &ListPostsHandler{service: service, logger: logger.WithField("handler", "list_posts")}
}

// ServeHTTP returns the posts of a table in remote order. Without a limit
// every post is returned.
func (h *ListPostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	result, err := h.service.ListPosts(r.Context(), table, limit)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// CreatePostHandler handles POST /api/v1/tables/{table}/posts.
type CreatePostHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewCreatePostHandler creates a new create handler.
func NewCreatePostHandler(service Service, logger logrus.FieldLogger) *CreatePostHandler {
	return &CreatePostHandler{service: service, logger: logger.WithField("handler", "create_post")}
}

func (h *CreatePostHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	fields, err := decodeFields(r)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	created, err := h.service.CreatePost(r.Context(), table, fields)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	h.logger.WithFields(logrus.Fields{
		"table":   table,
		"post_id": created.PostID,
	}).Info("Created post")

	writeJSON(w, h.logger, http.StatusCreated, created)
}

// SortPostsHandler handles GET /api/v1/tables/{table}/posts/sort.
type SortPostsHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewSortPostsHandler creates a new sort handler.
func NewSortPostsHandler(service Service, logger logrus.FieldLogger) *SortPostsHandler {
	return &SortPostsHandler{service: service, logger: logger.WithField("handler", "sort_posts")}
}

// ServeHTTP sorts by ?field, returning ?limit posts (10 by default), highest
// first unless ?descending=false.
func (h *SortPostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	field := r.URL.Query().Get("field")
	if field == "" {
		writeError(w, h.logger, &posts.InvalidRequestError{Reason: "field query parameter is required"})

		return
	}

	limit, err := intParam(r, "limit", defaultSortLimit)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	descending, err := boolParam(r, "descending", defaultSortDescending)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	result, err := h.service.SortPosts(r.Context(), table, field, limit, descending)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// FilterPostsHandler handles GET /api/v1/tables/{table}/posts/filter/{cond}.
type FilterPostsHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewFilterPostsHandler creates a new filter handler.
func NewFilterPostsHandler(service Service, logger logrus.FieldLogger) *FilterPostsHandler {
	return &FilterPostsHandler{service: service, logger: logger.WithField("handler", "filter_posts")}
}

// ServeHTTP treats every query parameter as a field=operand criterion,
// applied in the order given.
func (h *FilterPostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	crit, err := criteria(r.URL.RawQuery)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	result, err := h.service.FilterPosts(r.Context(), table, r.PathValue("cond"), crit)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// FieldResponse is the body of a single-field lookup.
type FieldResponse struct {
	PostID string `json:"post_id"` //nolint:tagliatelle // matches post field names.
	Field  string `json:"field"`
	Value  any    `json:"value"`
}

// GetFieldHandler handles GET /api/v1/tables/{table}/posts/{post_id}/{field}.
type GetFieldHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewGetFieldHandler creates a new field lookup handler.
func NewGetFieldHandler(service Service, logger logrus.FieldLogger) *GetFieldHandler {
	return &GetFieldHandler{service: service, logger: logger.WithField("handler", "get_field")}
}

func (h *GetFieldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table, postID, field := r.PathValue("table"), r.PathValue("post_id"), r.PathValue("field")

	value, err := h.service.GetField(r.Context(), table, postID, field)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, FieldResponse{
		PostID: postID,
		Field:  field,
		Value:  value.Interface(),
	})
}

// UpdatePostHandler handles PATCH /api/v1/tables/{table}/posts/{post_id}.
type UpdatePostHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewUpdatePostHandler creates a new update handler.
func NewUpdatePostHandler(service Service, logger logrus.FieldLogger) *UpdatePostHandler {
	return &UpdatePostHandler{service: service, logger: logger.WithField("handler", "update_post")}
}

func (h *UpdatePostHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table, postID := r.PathValue("table"), r.PathValue("post_id")

	fields, err := decodeFields(r)
	if err != nil {
		writeError(w, h.logger, err)

		return
	}

	updated, err := h.service.UpdatePost(r.Context(), table, postID, fields)
	if err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	h.logger.WithFields(logrus.Fields{
		"table":   table,
		"post_id": postID,
		"fields":  len(fields),
	}).Info("Updated post")

	writeJSON(w, h.logger, http.StatusOK, updated)
}

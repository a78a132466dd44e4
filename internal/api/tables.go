package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/posts"
)

// Verify interface compliance at compile time.
var (
	_ http.Handler = (*ListTablesHandler)(nil)
	_ http.Handler = (*AddTableHandler)(nil)
	_ http.Handler = (*RemoveTableHandler)(nil)
	_ http.Handler = (*StatisticsHandler)(nil)
)

// ListTablesHandler handles GET /api/v1/tables.
type ListTablesHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewListTablesHandler creates a new table listing handler.
func NewListTablesHandler(service Service, logger logrus.FieldLogger) *ListTablesHandler {
	return &ListTablesHandler{service: service, logger: logger.WithField("handler", "list_tables")}
}

func (h *ListTablesHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.service.Tables())
}

// AddTableHandler handles POST /api/v1/tables.
type AddTableHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewAddTableHandler creates a new add-table handler.
func NewAddTableHandler(service Service, logger logrus.FieldLogger) *AddTableHandler {
	return &AddTableHandler{service: service, logger: logger.WithField("handler", "add_table")}
}

// ServeHTTP connects a remote table. It responds once the table has loaded,
// so a bad link or token fails here rather than on the first read.
func (h *AddTableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req posts.AddTableRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)

		return
	}

	stats, err := h.service.AddTable(r.Context(), req)
	if err != nil {
		writeError(w, h.logger.WithField("platform", req.Platform), err)

		return
	}

	writeJSON(w, h.logger, http.StatusCreated, stats)
}

// RemoveTableHandler handles DELETE /api/v1/tables/{table}.
type RemoveTableHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewRemoveTableHandler creates a new remove-table handler.
func NewRemoveTableHandler(service Service, logger logrus.FieldLogger) *RemoveTableHandler {
	return &RemoveTableHandler{service: service, logger: logger.WithField("handler", "remove_table")}
}

func (h *RemoveTableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	if err := h.service.RemoveTable(r.Context(), table); err != nil {
		writeError(w, h.logger.WithField("table", table), err)

		return
	}

	h.logger.WithField("table", table).Info("Removed table")

	w.WriteHeader(http.StatusNoContent)
}

// StatisticsHandler handles GET /api/v1/statistics.
type StatisticsHandler struct {
	service Service
	logger  logrus.FieldLogger
}

// NewStatisticsHandler creates a new statistics handler.
func NewStatisticsHandler(service Service, logger logrus.FieldLogger) *StatisticsHandler {
	return &StatisticsHandler{service: service, logger: logger.WithField("handler", "statistics")}
}

func (h *StatisticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.service.Statistics(r.Context()))
}

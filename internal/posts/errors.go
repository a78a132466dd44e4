package posts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// InvalidRequestError reports malformed input that no other error type covers.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// Error codes returned to API clients.
const (
	CodeUnknownTable     = "UNKNOWN_TABLE"
	CodeUnknownField     = "UNKNOWN_FIELD"
	CodeMissingField     = "MISSING_FIELD"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeInvalidCondition = "INVALID_CONDITION"
	CodeEmptyUpdate      = "EMPTY_UPDATE"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeRemoteFetch      = "REMOTE_FETCH_FAILED"
	CodeRemoteWrite      = "REMOTE_WRITE_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL"
)

// ErrorStatus classifies an error into an HTTP status and an error code.
// Remote table failures map to 502.
func ErrorStatus(err error) (int, string) {
	var (
		unknownTable *registry.UnknownTableError
		unknownField *post.UnknownFieldError
		missingField *post.MissingFieldError
		mismatch     *post.TypeMismatchError
		condition    *post.InvalidConditionError
		emptyUpdate  *tablecache.EmptyUpdateError
		invalid      *InvalidRequestError
		notFound     *tablecache.NotFoundError
		fetchErr     *mws.FetchError
		writeErr     *mws.WriteError
	)

	switch {
	case errors.As(err, &unknownTable):
		return http.StatusNotFound, CodeUnknownTable
	case errors.As(err, &unknownField):
		return http.StatusBadRequest, CodeUnknownField
	case errors.As(err, &missingField):
		return http.StatusBadRequest, CodeMissingField
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, CodeTypeMismatch
	case errors.As(err, &condition):
		return http.StatusBadRequest, CodeInvalidCondition
	case errors.As(err, &emptyUpdate):
		return http.StatusBadRequest, CodeEmptyUpdate
	case errors.As(err, &invalid):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, CodeRemoteFetch
	case errors.As(err, &writeErr):
		return http.StatusBadGateway, CodeRemoteWrite
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

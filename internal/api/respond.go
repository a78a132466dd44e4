package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/posts"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// maxBodyBytes bounds create, update and add-table request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps err onto a status and code. Server-side failures are
// logged; client mistakes only at debug level.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status, code := posts.ErrorStatus(err)

	entry := log.WithError(err).WithField("code", code)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, log, status, ErrorResponse{Error: err.Error(), Code: code, Status: status})
}

// decodeFields reads a JSON object body. Numbers stay json.Number so
// integer fields are not silently turned into floats.
func decodeFields(r *http.Request) (map[string]any, error) {
	var fields map[string]any

	if err := decodeBody(r, &fields); err != nil {
		return nil, err
	}

	if fields == nil {
		return nil, &posts.InvalidRequestError{Reason: "body must be a JSON object"}
	}

	return fields, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &posts.InvalidRequestError{Reason: "request body is empty"}
		}

		return &posts.InvalidRequestError{Reason: fmt.Sprintf("malformed JSON body: %v", err)}
	}

	return nil
}

// intParam reads an integer query parameter, falling back to def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &posts.InvalidRequestError{Reason: fmt.Sprintf("%s must be an integer, got %q", name, raw)}
	}

	return n, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &posts.InvalidRequestError{Reason: fmt.Sprintf("%s must be a boolean, got %q", name, raw)}
	}

	return b, nil
}

// criteria turns a raw query string into filter criteria, keeping the order
// the parameters were given in. url.Values would lose it.
func criteria(rawQuery string) ([]tablecache.Criterion, error) {
	out := make([]tablecache.Criterion, 0)

	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, &posts.InvalidRequestError{Reason: fmt.Sprintf("malformed query parameter %q", rawKey)}
		}

		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, &posts.InvalidRequestError{Reason: fmt.Sprintf("malformed value for %q", key)}
		}

		out = append(out, tablecache.Criterion{Field: key, Value: value})
	}

	return out, nil
}

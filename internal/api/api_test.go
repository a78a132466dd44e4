package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/mws/mocks"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/posts"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/testutil"
)

var vkSheet = mws.Datasheet{ID: "dstVK", ViewID: "viwVK", Token: "token"}

func vkRecord(id string, likes, views int, date string) mws.Record {
	return mws.Record{
		RecordID: "rec" + id,
		Fields: map[string]any{
			post.FieldPostID:   id,
			post.FieldPlatform: "vk",
			post.FieldFormat:   "text",
			post.FieldDate:     date,
			post.FieldLikes:    json.Number(fmt.Sprint(likes)),
			post.FieldViews:    json.Number(fmt.Sprint(views)),
			post.FieldOwnerID:  json.Number("-42"),
		},
	}
}

func vkRecords() []mws.Record {
	return []mws.Record{
		vkRecord("1", 5, 100, "2025-03-01T00:00:00Z"),
		vkRecord("2", 9, 300, "2025-03-02T00:00:00Z"),
		vkRecord("3", 9, 50, "2025-03-03T00:00:00Z"),
	}
}

// newTestServer wires the real posts service over a mocked gateway with the
// "vk" table registered.
func newTestServer(t *testing.T, gw mws.Gateway) *httptest.Server {
	t.Helper()

	reg := registry.New(testutil.NewTestLogger())
	svc := posts.New(testutil.NewTestLogger(), posts.Config{
		MinRefreshInterval: time.Minute,
		DefaultToken:       "token",
	}, reg, nil, gw)

	require.NoError(t, svc.RegisterTable("vk", mws.Datasheet{ID: "dstVK", ViewID: "viwVK"}, post.VK))

	mux := http.NewServeMux()
	Register(mux, svc, testutil.NewTestLogger())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader

	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(testutil.NewTestContext(t), method, srv.URL+path, reader)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return resp, buf.Bytes()
}

func postIDs(t *testing.T, body []byte) []string {
	t.Helper()

	var out []map[string]any
	require.NoError(t, json.Unmarshal(body, &out))

	ids := make([]string, 0, len(out))
	for _, p := range out {
		ids = append(ids, p[post.FieldPostID].(string))
	}

	return ids
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))

	return resp.Code
}

func TestPostsEndpoints_Read(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantIDs    []string
		wantCode   string
	}{
		{name: "list all", path: "/api/v1/tables/vk/posts", wantStatus: http.StatusOK, wantIDs: []string{"1", "2", "3"}},
		{name: "list limited", path: "/api/v1/tables/vk/posts?limit=2", wantStatus: http.StatusOK, wantIDs: []string{"1", "2"}},
		{name: "list bad limit", path: "/api/v1/tables/vk/posts?limit=abc", wantStatus: http.StatusBadRequest, wantCode: posts.CodeInvalidRequest},
		{name: "sort defaults to descending", path: "/api/v1/tables/vk/posts/sort?field=likes&limit=2", wantStatus: http.StatusOK, wantIDs: []string{"2", "3"}},
		{name: "sort ascending", path: "/api/v1/tables/vk/posts/sort?field=views&descending=false", wantStatus: http.StatusOK, wantIDs: []string{"3", "1", "2"}},
		{name: "sort zero limit", path: "/api/v1/tables/vk/posts/sort?field=views&limit=0", wantStatus: http.StatusOK, wantIDs: []string{}},
		{name: "sort missing field", path: "/api/v1/tables/vk/posts/sort", wantStatus: http.StatusBadRequest, wantCode: posts.CodeInvalidRequest},
		{name: "sort unknown field", path: "/api/v1/tables/vk/posts/sort?field=colour", wantStatus: http.StatusBadRequest, wantCode: posts.CodeUnknownField},
		{name: "filter gte", path: "/api/v1/tables/vk/posts/filter/gte?likes=9", wantStatus: http.StatusOK, wantIDs: []string{"2", "3"}},
		{name: "filter two criteria", path: "/api/v1/tables/vk/posts/filter/gt?likes=6&views=100", wantStatus: http.StatusOK, wantIDs: []string{"2"}},
		{name: "filter date", path: "/api/v1/tables/vk/posts/filter/lt?date=2025-03-02T00:00:00Z", wantStatus: http.StatusOK, wantIDs: []string{"1"}},
		{name: "filter bad condition", path: "/api/v1/tables/vk/posts/filter/near?likes=1", wantStatus: http.StatusBadRequest, wantCode: posts.CodeInvalidCondition},
		{name: "filter type mismatch", path: "/api/v1/tables/vk/posts/filter/eq?likes=many", wantStatus: http.StatusBadRequest, wantCode: posts.CodeTypeMismatch},
		{name: "unknown table", path: "/api/v1/tables/ok/posts", wantStatus: http.StatusNotFound, wantCode: posts.CodeUnknownTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mocks.NewMockGateway(ctrl)
			gw.EXPECT().ListRecords(gomock.Any(), vkSheet).Return(vkRecords(), nil).MaxTimes(1)

			srv := newTestServer(t, gw)

			resp, body := do(t, srv, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, body))

				return
			}

			assert.Equal(t, tt.wantIDs, postIDs(t, body))
		})
	}
}

func TestGetFieldEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().ListRecords(gomock.Any(), vkSheet).Return(vkRecords(), nil).Times(1)

	srv := newTestServer(t, gw)

	resp, body := do(t, srv, http.MethodGet, "/api/v1/tables/vk/posts/2/views", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var field FieldResponse
	require.NoError(t, json.Unmarshal(body, &field))
	assert.Equal(t, "2", field.PostID)
	assert.Equal(t, "views", field.Field)
	assert.InDelta(t, 300, field.Value, 0)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/tables/vk/posts/99/views", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, posts.CodeNotFound, errorCode(t, body))

	resp, body = do(t, srv, http.MethodGet, "/api/v1/tables/vk/posts/2/colour", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, posts.CodeUnknownField, errorCode(t, body))
}

func TestCreatePostEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	created := vkRecord("4", 0, 0, "2025-03-04T00:00:00Z")

	gomock.InOrder(
		gw.EXPECT().CreateRecord(gomock.Any(), vkSheet, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ mws.Datasheet, fields map[string]any) (*mws.Record, error) {
				assert.Equal(t, "4", fields[post.FieldPostID])
				assert.Equal(t, int64(-42), fields[post.FieldOwnerID])

				return &created, nil
			}),
		gw.EXPECT().ListRecords(gomock.Any(), vkSheet).Return(append(vkRecords(), created), nil),
	)

	srv := newTestServer(t, gw)

	resp, body := do(t, srv, http.MethodPost, "/api/v1/tables/vk/posts", `{
		"post_id": "4",
		"platform": "vk",
		"format": "text",
		"date": "2025-03-04T00:00:00Z",
		"owner_id": -42
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "4", got[post.FieldPostID])
	assert.Equal(t, "rec4", got["record_id"])

	resp, body = do(t, srv, http.MethodGet, "/api/v1/tables/vk/posts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"1", "2", "3", "4"}, postIDs(t, body))
}

func TestCreatePostEndpoint_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		gateway    func(gw *mocks.MockGateway)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed json",
			body:       `{"post_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   posts.CodeInvalidRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantCode:   posts.CodeInvalidRequest,
		},
		{
			name:       "missing required field",
			body:       `{"post_id":"5","platform":"vk"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   posts.CodeMissingField,
		},
		{
			name:       "unknown field",
			body:       `{"post_id":"5","colour":"red"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   posts.CodeUnknownField,
		},
		{
			name:       "wrong type",
			body:       `{"post_id":"5","platform":"vk","format":"text","date":"2025-03-04T00:00:00Z","owner_id":-42,"likes":"lots"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   posts.CodeTypeMismatch,
		},
		{
			name: "remote rejects",
			body: `{"post_id":"5","platform":"vk","format":"text","date":"2025-03-04T00:00:00Z","owner_id":-42}`,
			gateway: func(gw *mocks.MockGateway) {
				gw.EXPECT().CreateRecord(gomock.Any(), vkSheet, gomock.Any()).
					Return(nil, &mws.WriteError{Datasheet: vkSheet.ID, Status: http.StatusBadRequest, Err: errors.New("bad field")})
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   posts.CodeRemoteWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mocks.NewMockGateway(ctrl)

			if tt.gateway != nil {
				tt.gateway(gw)
			}

			srv := newTestServer(t, gw)

			resp, body := do(t, srv, http.MethodPost, "/api/v1/tables/vk/posts", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			assert.Equal(t, tt.wantCode, errorCode(t, body))
		})
	}
}

func TestUpdatePostEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	gomock.InOrder(
		gw.EXPECT().ListRecords(gomock.Any(), vkSheet).Return(vkRecords(), nil),
		gw.EXPECT().UpdateRecord(gomock.Any(), vkSheet, "rec2", map[string]any{post.FieldLikes: int64(10)}).
			Return(&mws.Record{RecordID: "rec2", Fields: map[string]any{post.FieldLikes: json.Number("10")}}, nil),
	)

	srv := newTestServer(t, gw)

	resp, body := do(t, srv, http.MethodPatch, "/api/v1/tables/vk/posts/2", `{"likes": 10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.InDelta(t, 10, got[post.FieldLikes], 0)
	assert.InDelta(t, 300, got[post.FieldViews], 0)

	resp, body = do(t, srv, http.MethodPatch, "/api/v1/tables/vk/posts/2", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, posts.CodeEmptyUpdate, errorCode(t, body))

	resp, body = do(t, srv, http.MethodPatch, "/api/v1/tables/vk/posts/2", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, posts.CodeInvalidRequest, errorCode(t, body))
}

func TestTablesEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	tgSheet := mws.Datasheet{ID: "dstTG", ViewID: "viwTG", Token: "token"}

	gw.EXPECT().ListRecords(gomock.Any(), tgSheet).Return([]mws.Record{
		{RecordID: "recT", Fields: map[string]any{
			post.FieldPostID:   "t1",
			post.FieldPlatform: "telegram",
			post.FieldFormat:   "video",
			post.FieldDate:     "2025-03-05T00:00:00Z",
			post.FieldViews:    json.Number("40"),
		}},
	}, nil).Times(1)
	gw.EXPECT().ListRecords(gomock.Any(), vkSheet).Return(vkRecords(), nil).Times(1)

	srv := newTestServer(t, gw)

	resp, body := do(t, srv, http.MethodPost, "/api/v1/tables", map[string]string{
		"platform": "Telegram",
		"url":      "https://tables.mws.ru/workbench/dstTG/viwTG",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"name":"telegram_dstTG"`)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/tables", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tables []map[string]any
	require.NoError(t, json.Unmarshal(body, &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "telegram_dstTG", tables[0]["name"])
	assert.Equal(t, "vk", tables[1]["name"])

	resp, body = do(t, srv, http.MethodGet, "/api/v1/statistics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats posts.Statistics
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 4, stats.TotalPosts)
	assert.Equal(t, int64(490), stats.TotalViews)

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/tables/telegram_dstTG", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, srv, http.MethodDelete, "/api/v1/tables/telegram_dstTG", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, posts.CodeUnknownTable, errorCode(t, body))

	resp, body = do(t, srv, http.MethodPost, "/api/v1/tables", map[string]string{"platform": "vk"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, posts.CodeInvalidRequest, errorCode(t, body))
}

func TestCriteria_PreservesOrder(t *testing.T) {
	crit, err := criteria("views=100&likes=5&date=2025-03-01T00%3A00%3A00Z&views=7")
	require.NoError(t, err)

	fields := make([]string, 0, len(crit))
	for _, c := range crit {
		fields = append(fields, c.Field)
	}

	assert.Equal(t, []string{"views", "likes", "date", "views"}, fields)
	assert.Equal(t, "2025-03-01T00:00:00Z", crit[2].Value)

	_, err = criteria("likes=%zz")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "likes"))
}

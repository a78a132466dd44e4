package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/mws/mocks"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/redis"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
	"github.com/mwsanalytics/posts-backend/internal/testutil"
)

var fixedNow = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func rec(id string, likes, views, comments int) mws.Record {
	return mws.Record{
		RecordID: "rec" + id,
		Fields: map[string]any{
			post.FieldPostID:       id,
			post.FieldPlatform:     "vk",
			post.FieldFormat:       "text",
			post.FieldDate:         json.Number("1743501600000"),
			post.FieldLikes:        json.Number(fmt.Sprint(likes)),
			post.FieldViews:        json.Number(fmt.Sprint(views)),
			post.FieldCommentCount: json.Number(fmt.Sprint(comments)),
			post.FieldOwnerID:      json.Number("-42"),
		},
	}
}

func newService(t *testing.T, gw mws.Gateway, store registry.Store) (*Service, *registry.Registry) {
	t.Helper()

	reg := registry.New(testutil.NewTestLogger())
	svc := New(testutil.NewTestLogger(), Config{
		MinRefreshInterval: time.Minute,
		DefaultToken:       "default-token",
	}, reg, store, gw, WithClock(func() time.Time { return fixedNow }))

	return svc, reg
}

func newStore(t *testing.T) *registry.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(testutil.NewTestLogger(), redis.Config{
		Address:     mr.Addr(),
		DialTimeout: time.Second,
		PoolSize:    2,
	})
	require.NoError(t, client.Start(testutil.NewTestContext(t)))
	t.Cleanup(func() { _ = client.Stop() })

	return registry.NewRedisStore(testutil.NewTestLogger(), client)
}

func TestService_BoundaryOperations(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	ds := mws.Datasheet{ID: "dstVK", ViewID: "viwVK", Token: "default-token"}

	gw.EXPECT().ListRecords(gomock.Any(), ds).Return([]mws.Record{
		rec("1", 5, 100, 1),
		rec("2", 9, 300, 4),
		rec("3", 9, 50, 0),
	}, nil).Times(1)

	svc, _ := newService(t, gw, nil)
	require.NoError(t, svc.RegisterTable("vk", mws.Datasheet{ID: "dstVK", ViewID: "viwVK"}, post.VK))

	ctx := testutil.NewTestContext(t)

	all, err := svc.ListPosts(ctx, "vk", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sorted, err := svc.SortPosts(ctx, "vk", post.FieldLikes, 2, true)
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	assert.Equal(t, "2", sorted[0].PostID)
	assert.Equal(t, "3", sorted[1].PostID)

	filtered, err := svc.FilterPosts(ctx, "vk", "gte", []tablecache.Criterion{
		{Field: post.FieldLikes, Value: "9"},
		{Field: post.FieldViews, Value: "100"},
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "2", filtered[0].PostID)

	owner, err := svc.GetField(ctx, "vk", "1", post.FieldOwnerID)
	require.NoError(t, err)
	assert.Equal(t, post.Int(-42), owner)
}

func TestService_UnknownTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	svc, _ := newService(t, gw, nil)
	ctx := testutil.NewTestContext(t)

	calls := map[string]func() error{
		"get field": func() error { _, err := svc.GetField(ctx, "x", "1", post.FieldLikes); return err },
		"list":      func() error { _, err := svc.ListPosts(ctx, "x", 0); return err },
		"sort":      func() error { _, err := svc.SortPosts(ctx, "x", post.FieldLikes, 1, false); return err },
		"filter":    func() error { _, err := svc.FilterPosts(ctx, "x", "eq", nil); return err },
		"create":    func() error { _, err := svc.CreatePost(ctx, "x", map[string]any{}); return err },
		"update": func() error {
			_, err := svc.UpdatePost(ctx, "x", "1", map[string]any{post.FieldLikes: 1})

			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var unknown *registry.UnknownTableError
			require.ErrorAs(t, call(), &unknown)
			assert.Equal(t, "x", unknown.Name)
		})
	}
}

func TestService_CreateAndUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	ds := mws.Datasheet{ID: "dstTG", ViewID: "viwTG", Token: "default-token"}
	created := rec("10", 0, 0, 0)

	gomock.InOrder(
		gw.EXPECT().CreateRecord(gomock.Any(), ds, gomock.Any()).Return(&created, nil),
		gw.EXPECT().ListRecords(gomock.Any(), ds).Return([]mws.Record{created}, nil),
		gw.EXPECT().UpdateRecord(gomock.Any(), ds, "rec10", map[string]any{post.FieldViews: int64(77)}).
			Return(&mws.Record{RecordID: "rec10", Fields: map[string]any{post.FieldViews: json.Number("77")}}, nil),
	)

	svc, _ := newService(t, gw, nil)
	require.NoError(t, svc.RegisterTable("telegram", mws.Datasheet{ID: "dstTG", ViewID: "viwTG"}, post.General))

	ctx := testutil.NewTestContext(t)

	p, err := svc.CreatePost(ctx, "telegram", map[string]any{
		post.FieldPostID:   "10",
		post.FieldPlatform: "telegram",
		post.FieldFormat:   "text",
		post.FieldDate:     "2025-04-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", p.PostID)

	listed, err := svc.ListPosts(ctx, "telegram", 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	updated, err := svc.UpdatePost(ctx, "telegram", "10", map[string]any{post.FieldViews: 77})
	require.NoError(t, err)
	assert.Equal(t, int64(77), updated.Views)
}

func TestService_AddTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	ds := mws.Datasheet{ID: "dstNew", ViewID: "viwNew", Token: "secret"}

	gw.EXPECT().ListRecords(gomock.Any(), ds).Return([]mws.Record{rec("1", 1, 1, 1), rec("2", 2, 2, 2)}, nil)

	store := newStore(t)
	svc, reg := newService(t, gw, store)
	ctx := testutil.NewTestContext(t)

	stats, err := svc.AddTable(ctx, AddTableRequest{
		Platform: "VK",
		URL:      "https://tables.mws.ru/fusion/v1/datasheets/dstNew/views/viwNew",
		Token:    "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "vk_dstNew", stats.Name)
	assert.Equal(t, "vk", stats.Variant)
	assert.Equal(t, 2, stats.Records)

	cache, err := reg.Resolve("vk_dstNew")
	require.NoError(t, err)
	assert.Equal(t, post.VK, cache.Variant())

	defs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, registry.Definition{
		Name:        "vk_dstNew",
		Platform:    "vk",
		Variant:     "vk",
		DatasheetID: "dstNew",
		ViewID:      "viwNew",
		Token:       "secret",
		URL:         "https://tables.mws.ru/fusion/v1/datasheets/dstNew/views/viwNew",
		CreatedAt:   fixedNow,
	}, defs[0])
}

func TestService_AddTableFailures(t *testing.T) {
	t.Run("invalid requests make no remote call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(ctrl)

		gw.EXPECT().ListRecords(gomock.Any(), gomock.Any()).Times(0)

		svc, _ := newService(t, gw, nil)
		ctx := testutil.NewTestContext(t)

		requests := []AddTableRequest{
			{URL: "https://tables.mws.ru/workbench/dst1/viw1"},
			{Platform: "vk", URL: "https://example.com/nothing"},
			{Platform: "vk"},
		}

		for _, req := range requests {
			_, err := svc.AddTable(ctx, req)

			var invalid *InvalidRequestError
			require.ErrorAs(t, err, &invalid, "request %+v", req)
		}
	})

	t.Run("failed first load registers nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(ctrl)

		gw.EXPECT().ListRecords(gomock.Any(), gomock.Any()).
			Return(nil, &mws.FetchError{Datasheet: "dst1", Status: http.StatusUnauthorized, Body: "bad token"})

		store := newStore(t)
		svc, reg := newService(t, gw, store)
		ctx := testutil.NewTestContext(t)

		_, err := svc.AddTable(ctx, AddTableRequest{Platform: "telegram", DatasheetID: "dst1", ViewID: "viw1"})

		var fetchErr *mws.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Empty(t, reg.Names())

		defs, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, defs)
	})
}

func TestService_RestoreAndRemoveTables(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	store := newStore(t)
	ctx := testutil.NewTestContext(t)

	require.NoError(t, store.Save(ctx, registry.Definition{
		Name: "vk_dst1", Platform: "vk", Variant: "vk", DatasheetID: "dst1", ViewID: "viw1", Token: "t",
	}))
	require.NoError(t, store.Save(ctx, registry.Definition{
		Name: "broken", Platform: "tg", Variant: "general", DatasheetID: "dst2",
	}))

	svc, reg := newService(t, gw, store)

	restored, err := svc.RestoreTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, []string{"vk_dst1"}, reg.Names())

	tables := svc.Tables()
	require.Len(t, tables, 1)
	assert.False(t, tables[0].Loaded)

	require.NoError(t, svc.RemoveTable(ctx, "vk_dst1"))
	assert.Empty(t, reg.Names())

	var unknown *registry.UnknownTableError
	require.ErrorAs(t, svc.RemoveTable(ctx, "vk_dst1"), &unknown)

	defs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "broken", defs[0].Name)
}

func TestService_Statistics(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	vk := mws.Datasheet{ID: "dstVK", ViewID: "viw1", Token: "default-token"}
	tg := mws.Datasheet{ID: "dstTG", ViewID: "viw2", Token: "default-token"}
	down := mws.Datasheet{ID: "dstDown", ViewID: "viw3", Token: "default-token"}

	gw.EXPECT().ListRecords(gomock.Any(), vk).Return([]mws.Record{rec("1", 10, 100, 1), rec("2", 5, 200, 2)}, nil)
	gw.EXPECT().ListRecords(gomock.Any(), tg).Return([]mws.Record{rec("3", 1, 1, 1)}, nil)
	gw.EXPECT().ListRecords(gomock.Any(), down).Return(nil, errors.New("dial tcp: timeout"))

	svc, _ := newService(t, gw, nil)
	require.NoError(t, svc.RegisterTable("vk", mws.Datasheet{ID: "dstVK", ViewID: "viw1"}, post.VK))
	require.NoError(t, svc.RegisterTable("telegram", mws.Datasheet{ID: "dstTG", ViewID: "viw2"}, post.General))
	require.NoError(t, svc.RegisterTable("down", mws.Datasheet{ID: "dstDown", ViewID: "viw3"}, post.General))

	stats := svc.Statistics(testutil.NewTestContext(t))

	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, int64(301), stats.TotalViews)
	assert.Equal(t, int64(16), stats.TotalLikes)
	assert.Equal(t, int64(4), stats.TotalComments)
	assert.InDelta(t, 100.3, stats.AvgViews, 1e-9)
	assert.InDelta(t, 5.3, stats.AvgLikes, 1e-9)
	assert.Equal(t, []string{"telegram", "vk"}, stats.Tables)
	assert.Equal(t, []string{"down"}, stats.Skipped)
}

func TestService_StatisticsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)

	svc, _ := newService(t, mocks.NewMockGateway(ctrl), nil)

	stats := svc.Statistics(testutil.NewTestContext(t))
	assert.Zero(t, stats.TotalPosts)
	assert.Zero(t, stats.AvgViews)
	assert.Empty(t, stats.Tables)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown table", &registry.UnknownTableError{Name: "x"}, http.StatusNotFound, CodeUnknownTable},
		{"unknown field", &post.UnknownFieldError{Field: "x"}, http.StatusBadRequest, CodeUnknownField},
		{"missing field", &post.MissingFieldError{Field: "date"}, http.StatusBadRequest, CodeMissingField},
		{"type mismatch", &post.TypeMismatchError{Field: "likes"}, http.StatusBadRequest, CodeTypeMismatch},
		{"invalid condition", &post.InvalidConditionError{Condition: "ne"}, http.StatusBadRequest, CodeInvalidCondition},
		{"empty update", &tablecache.EmptyUpdateError{}, http.StatusBadRequest, CodeEmptyUpdate},
		{"invalid request", &InvalidRequestError{Reason: "x"}, http.StatusBadRequest, CodeInvalidRequest},
		{"not found", &tablecache.NotFoundError{PostID: "1"}, http.StatusNotFound, CodeNotFound},
		{"wrapped fetch", fmt.Errorf("load: %w", &mws.FetchError{Status: 500}), http.StatusBadGateway, CodeRemoteFetch},
		{"write", &mws.WriteError{Op: "create"}, http.StatusBadGateway, CodeRemoteWrite},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := ErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

package api

import (
	"context"

	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/posts"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// Compile-time interface compliance check.
var _ Service = (*posts.Service)(nil)

// Service is the set of operations the HTTP handlers expose.
type Service interface {
	GetField(ctx context.Context, table, postID, field string) (post.Value, error)
	ListPosts(ctx context.Context, table string, limit int) ([]*post.Post, error)
	SortPosts(ctx context.Context, table, field string, limit int, descending bool) ([]*post.Post, error)
	FilterPosts(ctx context.Context, table, cond string, criteria []tablecache.Criterion) ([]*post.Post, error)
	CreatePost(ctx context.Context, table string, fields map[string]any) (*post.Post, error)
	UpdatePost(ctx context.Context, table, postID string, fields map[string]any) (*post.Post, error)

	AddTable(ctx context.Context, req posts.AddTableRequest) (tablecache.Stats, error)
	RemoveTable(ctx context.Context, name string) error
	Tables() []tablecache.Stats
	Statistics(ctx context.Context) posts.Statistics
}

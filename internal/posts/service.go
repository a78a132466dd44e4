package posts

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// Config holds the settings applied to every table cache the service builds.
type Config struct {
	MinRefreshInterval time.Duration
	RefreshTimeout     time.Duration
	Limit              int

	// DefaultToken is used for tables added without their own token.
	DefaultToken string //nolint:gosec // Config field, not a hardcoded secret.
}

// Service exposes the post queries and mutations over the registered tables.
type Service struct {
	log      logrus.FieldLogger
	cfg      Config
	registry *registry.Registry
	store    registry.Store
	gateway  mws.Gateway
	opts     []tablecache.Option
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCacheOptions passes options to every cache the service creates.
func WithCacheOptions(opts ...tablecache.Option) Option {
	return func(s *Service) {
		s.opts = append(s.opts, opts...)
	}
}

// WithClock replaces the clock used to stamp table definitions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a posts service. A nil store disables persistence of tables
// added at runtime.
func New(
	log logrus.FieldLogger,
	cfg Config,
	reg *registry.Registry,
	store registry.Store,
	gateway mws.Gateway,
	opts ...Option,
) *Service {
	if store == nil {
		store = registry.NopStore{}
	}

	s := &Service{
		log:      log.WithField("component", "posts"),
		cfg:      cfg,
		registry: reg,
		store:    store,
		gateway:  gateway,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetField returns one field of a post.
func (s *Service) GetField(ctx context.Context, table, postID, field string) (post.Value, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return post.Value{}, err
	}

	return cache.GetField(ctx, postID, field)
}

// ListPosts returns up to limit posts of a table in remote order. A limit of
// zero or less returns all posts.
func (s *Service) ListPosts(ctx context.Context, table string, limit int) ([]*post.Post, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return nil, err
	}

	return cache.GetPosts(ctx, limit)
}

// SortPosts returns the first limit posts of a table ordered by field.
func (s *Service) SortPosts(
	ctx context.Context,
	table, field string,
	limit int,
	descending bool,
) ([]*post.Post, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return nil, err
	}

	return cache.Sort(ctx, field, limit, descending)
}

// FilterPosts returns the posts of a table matching every criterion.
func (s *Service) FilterPosts(
	ctx context.Context,
	table, cond string,
	criteria []tablecache.Criterion,
) ([]*post.Post, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return nil, err
	}

	return cache.Filter(ctx, cond, criteria)
}

// CreatePost inserts a post into a table.
func (s *Service) CreatePost(ctx context.Context, table string, fields map[string]any) (*post.Post, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return nil, err
	}

	return cache.Create(ctx, fields)
}

// UpdatePost changes fields of a post.
func (s *Service) UpdatePost(
	ctx context.Context,
	table, postID string,
	fields map[string]any,
) (*post.Post, error) {
	cache, err := s.registry.Resolve(table)
	if err != nil {
		return nil, err
	}

	return cache.Update(ctx, postID, fields)
}

// RegisterTable builds a cache for a configured table and registers it. The
// table is loaded lazily on its first read.
func (s *Service) RegisterTable(name string, ds mws.Datasheet, variant *post.Variant) error {
	cache, err := s.newCache(name, ds, variant)
	if err != nil {
		return err
	}

	s.registry.Register(name, cache)

	return nil
}

func (s *Service) newCache(name string, ds mws.Datasheet, variant *post.Variant) (*tablecache.Cache, error) {
	if ds.Token == "" {
		ds.Token = s.cfg.DefaultToken
	}

	cache, err := tablecache.New(tablecache.Config{
		Name:               name,
		Datasheet:          ds,
		Variant:            variant,
		MinRefreshInterval: s.cfg.MinRefreshInterval,
		RefreshTimeout:     s.cfg.RefreshTimeout,
		Limit:              s.cfg.Limit,
	}, s.gateway, s.log, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	return cache, nil
}

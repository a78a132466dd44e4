package tablecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
)

const refreshKey = "refresh"

// Cache holds an in-memory snapshot of one remote table and serves reads
// from it. A snapshot older than the staleness window is refreshed lazily on
// the next read; concurrent refreshes share a single remote fetch.
type Cache struct {
	cfg     Config
	log     logrus.FieldLogger
	gateway mws.Gateway
	now     func() time.Time

	mu          sync.RWMutex
	snapshot    []*post.Post
	lastRefresh time.Time
	loaded      bool

	group   singleflight.Group
	flights atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the clock used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache for one remote table. The snapshot starts empty and is
// loaded on first read.
func New(cfg Config, gateway mws.Gateway, logger logrus.FieldLogger, opts ...Option) (*Cache, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Cache{
		cfg:     cfg,
		gateway: gateway,
		now:     time.Now,
		log: logger.WithFields(logrus.Fields{
			"component": "tablecache",
			"table":     cfg.Name,
		}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name returns the registered table name.
func (c *Cache) Name() string { return c.cfg.Name }

// Variant returns the record variant of the table.
func (c *Cache) Variant() *post.Variant { return c.cfg.Variant }

// Datasheet returns the remote table the cache mirrors.
func (c *Cache) Datasheet() mws.Datasheet { return c.cfg.Datasheet }

// Stats describes the cache state without contacting the remote table.
type Stats struct {
	Name        string    `json:"name"`
	Variant     string    `json:"variant"`
	DatasheetID string    `json:"datasheet_id"`
	ViewID      string    `json:"view_id"`
	Records     int       `json:"records"`
	Loaded      bool      `json:"loaded"`
	LastRefresh time.Time `json:"last_refresh,omitzero"`
}

// Stats returns the current cache state.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Name:        c.cfg.Name,
		Variant:     c.cfg.Variant.Name(),
		DatasheetID: c.cfg.Datasheet.ID,
		ViewID:      c.cfg.Datasheet.ViewID,
		Records:     len(c.snapshot),
		Loaded:      c.loaded,
		LastRefresh: c.lastRefresh,
	}
}

// Release drops the metric series of the table. The cache stays usable.
func (c *Cache) Release() {
	refreshTotal.DeletePartialMatch(map[string]string{"table": c.cfg.Name})
	refreshDuration.DeleteLabelValues(c.cfg.Name)
	snapshotRecords.DeleteLabelValues(c.cfg.Name)
	staleServedTotal.DeleteLabelValues(c.cfg.Name)
	decodeSkippedTotal.DeleteLabelValues(c.cfg.Name)
}

func (c *Cache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.loaded && c.now().Sub(c.lastRefresh) < c.cfg.MinRefreshInterval
}

type flightResult struct {
	flight  uint64
	fetched bool
}

// Refresh reloads the snapshot when forced, empty or stale. Concurrent calls
// wait for the fetch already in flight instead of starting another one. A
// forced refresh only returns once a fetch that started after the call has
// completed. On failure the previous snapshot is kept and a *mws.FetchError
// is returned.
func (c *Cache) Refresh(ctx context.Context, force bool) error {
	if !force && c.fresh() {
		return nil
	}

	requested := c.flights.Load()

	for {
		ch := c.group.DoChan(refreshKey, func() (any, error) {
			return c.runFlight(ctx, force)
		})

		var res singleflight.Result

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for refresh: %w", ctx.Err())
		case res = <-ch:
		}

		fr, _ := res.Val.(flightResult)

		if !force {
			return res.Err
		}

		// The flight we joined may have started before this call, or skipped
		// the fetch because the snapshot was fresh. Go again.
		if !fr.fetched || fr.flight <= requested {
			continue
		}

		return res.Err
	}
}

// runFlight executes inside the singleflight group. Only the caller that
// started the flight decides whether it may skip the fetch.
func (c *Cache) runFlight(ctx context.Context, force bool) (flightResult, error) {
	flight := c.flights.Add(1)

	if !force && c.fresh() {
		return flightResult{flight: flight}, nil
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RefreshTimeout)
	defer cancel()

	return flightResult{flight: flight, fetched: true}, c.fetch(fetchCtx)
}

func (c *Cache) fetch(ctx context.Context) error {
	start := time.Now()

	records, err := c.gateway.ListRecords(ctx, c.cfg.Datasheet)

	refreshDuration.WithLabelValues(c.cfg.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		refreshTotal.WithLabelValues(c.cfg.Name, "error").Inc()

		var fetchErr *mws.FetchError
		if !errors.As(err, &fetchErr) {
			err = &mws.FetchError{Datasheet: c.cfg.Datasheet.ID, Err: err}
		}

		return err
	}

	posts := make([]*post.Post, 0, len(records))

	for _, rec := range records {
		p, decodeErr := c.cfg.Variant.Decode(rec.RecordID, rec.Fields)
		if decodeErr != nil {
			decodeSkippedTotal.WithLabelValues(c.cfg.Name).Inc()

			c.log.WithError(decodeErr).WithField("record_id", rec.RecordID).Warn("Skipping undecodable record")

			continue
		}

		posts = append(posts, p)
	}

	c.mu.Lock()
	c.snapshot = posts
	c.lastRefresh = c.now()
	c.loaded = true
	c.mu.Unlock()

	refreshTotal.WithLabelValues(c.cfg.Name, "success").Inc()
	snapshotRecords.WithLabelValues(c.cfg.Name).Set(float64(len(posts)))

	c.log.WithFields(logrus.Fields{
		"records":  len(posts),
		"skipped":  len(records) - len(posts),
		"duration": time.Since(start),
	}).Debug("Refreshed table snapshot")

	return nil
}

// current returns the snapshot for a read, refreshing it first when stale.
// A failed refresh falls back to the previous snapshot if there is one.
func (c *Cache) current(ctx context.Context) ([]*post.Post, error) {
	err := c.Refresh(ctx, false)

	c.mu.RLock()
	snapshot, loaded := c.snapshot, c.loaded
	c.mu.RUnlock()

	if err != nil {
		if !loaded {
			return nil, err
		}

		staleServedTotal.WithLabelValues(c.cfg.Name).Inc()

		c.log.WithError(err).Warn("Refresh failed, serving previous snapshot")
	}

	return snapshot, nil
}

// GetPosts returns up to limit posts in remote order. A limit of zero or less
// returns every post, subject to the configured cap.
func (c *Cache) GetPosts(ctx context.Context, limit int) ([]*post.Post, error) {
	snapshot, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	return clone(snapshot, c.capped(limit)), nil
}

// capped applies the configured result cap to a requested limit.
func (c *Cache) capped(limit int) int {
	if limit <= 0 || limit > c.cfg.Limit {
		return c.cfg.Limit
	}

	return limit
}

func clone(posts []*post.Post, limit int) []*post.Post {
	n := min(len(posts), limit)
	out := make([]*post.Post, n)
	copy(out, posts[:n])

	return out
}

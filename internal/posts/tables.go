//nolint:tagliatelle // superior snake-case yo.
package posts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/tablecache"
)

// AddTableRequest describes a remote table to start serving. Either URL or
// both DatasheetID and ViewID must be set.
type AddTableRequest struct {
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	URL         string `json:"url"`
	DatasheetID string `json:"datasheet_id"`
	ViewID      string `json:"view_id"`
	Token       string `json:"token"` //nolint:gosec // request field.
}

// AddTable connects a remote table, loads it once and registers it. A table
// is only registered when that first load succeeds. The definition is
// persisted so the table is restored on restart.
func (s *Service) AddTable(ctx context.Context, req AddTableRequest) (tablecache.Stats, error) {
	def, err := s.definition(req)
	if err != nil {
		return tablecache.Stats{}, err
	}

	variant, _ := post.LookupVariant(def.Variant)

	cache, err := s.newCache(def.Name, mws.Datasheet{
		ID:     def.DatasheetID,
		ViewID: def.ViewID,
		Token:  def.Token,
	}, variant)
	if err != nil {
		return tablecache.Stats{}, &InvalidRequestError{Reason: err.Error()}
	}

	if err := cache.Refresh(ctx, true); err != nil {
		return tablecache.Stats{}, fmt.Errorf("load table %s: %w", def.Name, err)
	}

	replaced := s.registry.Register(def.Name, cache)

	if err := s.store.Save(ctx, def); err != nil {
		// The table is served either way; it just won't survive a restart.
		s.log.WithError(err).WithField("table", def.Name).Error("Failed to persist table definition")
	}

	stats := cache.Stats()

	s.log.WithFields(logrus.Fields{
		"table":     def.Name,
		"platform":  def.Platform,
		"datasheet": def.DatasheetID,
		"records":   stats.Records,
		"replaced":  replaced,
	}).Info("Added table")

	return stats, nil
}

func (s *Service) definition(req AddTableRequest) (registry.Definition, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		return registry.Definition{}, &InvalidRequestError{Reason: "platform is required"}
	}

	dst, view := strings.TrimSpace(req.DatasheetID), strings.TrimSpace(req.ViewID)

	if req.URL != "" {
		var err error

		dst, view, err = mws.ParseTableURL(req.URL)
		if err != nil {
			return registry.Definition{}, &InvalidRequestError{Reason: err.Error()}
		}
	}

	if dst == "" || view == "" {
		return registry.Definition{}, &InvalidRequestError{Reason: "table url or datasheet and view ids are required"}
	}

	token := strings.TrimSpace(req.Token)
	if token == "" && s.cfg.DefaultToken == "" {
		return registry.Definition{}, &InvalidRequestError{Reason: "token is required"}
	}

	variant, ok := post.LookupVariant(platform)
	if !ok {
		variant = post.General
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = platform + "_" + dst
	}

	return registry.Definition{
		Name:        name,
		Platform:    platform,
		Variant:     variant.Name(),
		DatasheetID: dst,
		ViewID:      view,
		Token:       token,
		URL:         req.URL,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// RemoveTable stops serving a table and forgets its stored definition.
func (s *Service) RemoveTable(ctx context.Context, name string) error {
	if !s.registry.Unregister(name) {
		return &registry.UnknownTableError{Name: name}
	}

	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete table definition: %w", err)
	}

	return nil
}

// RestoreTables registers every stored table definition. Tables load lazily.
func (s *Service) RestoreTables(ctx context.Context) (int, error) {
	defs, err := s.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load table definitions: %w", err)
	}

	restored := 0

	for _, def := range defs {
		variant, ok := post.LookupVariant(def.Variant)
		if !ok {
			variant = post.General
		}

		err := s.RegisterTable(def.Name, mws.Datasheet{
			ID:     def.DatasheetID,
			ViewID: def.ViewID,
			Token:  def.Token,
		}, variant)
		if err != nil {
			s.log.WithError(err).WithField("table", def.Name).Warn("Skipping stored table definition")

			continue
		}

		restored++
	}

	return restored, nil
}

// Tables describes every registered table without contacting the remote
// tables.
func (s *Service) Tables() []tablecache.Stats {
	caches := s.registry.Caches()
	out := make([]tablecache.Stats, 0, len(caches))

	for _, cache := range caches {
		out = append(out, cache.Stats())
	}

	return out
}

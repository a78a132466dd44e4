//nolint:tagliatelle // superior snake-case yo.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/redis"
)

// Compile-time interface compliance checks.
var (
	_ Store = (*RedisStore)(nil)
	_ Store = NopStore{}
)

const (
	definitionKeyPrefix = "posts:tables:"
	definitionIndexKey  = "posts:tables"
)

// Definition describes a table added at runtime, so it can be restored on
// the next start.
type Definition struct {
	Name        string    `json:"name"`
	Platform    string    `json:"platform"`
	Variant     string    `json:"variant"`
	DatasheetID string    `json:"datasheet_id"`
	ViewID      string    `json:"view_id"`
	Token       string    `json:"token"` //nolint:gosec // stored as provided.
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists table definitions.
type Store interface {
	Save(ctx context.Context, def Definition) error
	Load(ctx context.Context) ([]Definition, error)
	Delete(ctx context.Context, name string) error
}

// RedisStore keeps one JSON document per definition plus an index set of
// names.
type RedisStore struct {
	log   logrus.FieldLogger
	redis redis.Client
}

// NewRedisStore creates a Redis-backed definition store.
func NewRedisStore(log logrus.FieldLogger, client redis.Client) *RedisStore {
	return &RedisStore{
		log:   log.WithField("component", "registry_store"),
		redis: client,
	}
}

// Save writes a definition, replacing one with the same name.
func (s *RedisStore) Save(ctx context.Context, def Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	if err := s.redis.Set(ctx, definitionKeyPrefix+def.Name, string(data), 0); err != nil {
		return fmt.Errorf("store definition %s: %w", def.Name, err)
	}

	if err := s.redis.SAdd(ctx, definitionIndexKey, def.Name); err != nil {
		return fmt.Errorf("index definition %s: %w", def.Name, err)
	}

	return nil
}

// Load returns every stored definition ordered by name. Index entries whose
// document is missing or unreadable are skipped.
func (s *RedisStore) Load(ctx context.Context) ([]Definition, error) {
	names, err := s.redis.SMembers(ctx, definitionIndexKey)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	sort.Strings(names)

	defs := make([]Definition, 0, len(names))

	for _, name := range names {
		data, err := s.redis.Get(ctx, definitionKeyPrefix+name)
		if err != nil {
			if errors.Is(err, redis.ErrKeyNotFound) {
				s.log.WithField("table", name).Warn("Indexed table definition is missing")

				continue
			}

			return nil, fmt.Errorf("load definition %s: %w", name, err)
		}

		var def Definition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			s.log.WithError(err).WithField("table", name).Error("Failed to unmarshal table definition")

			continue
		}

		defs = append(defs, def)
	}

	return defs, nil
}

// Delete removes a definition. Deleting an unknown name is not an error.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, definitionKeyPrefix+name); err != nil {
		return fmt.Errorf("delete definition %s: %w", name, err)
	}

	if err := s.redis.SRem(ctx, definitionIndexKey, name); err != nil {
		return fmt.Errorf("unindex definition %s: %w", name, err)
	}

	return nil
}

// NopStore discards definitions. Used when Redis is not configured.
type NopStore struct{}

func (NopStore) Save(context.Context, Definition) error { return nil }

func (NopStore) Load(context.Context) ([]Definition, error) { return nil, nil }

func (NopStore) Delete(context.Context, string) error { return nil }

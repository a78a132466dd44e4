package tablecache

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
)

// Create validates fields against the table variant, inserts the record
// remotely and then forces a refresh so the new post is visible to the next
// read. A failed refresh is logged; the created post is still returned.
func (c *Cache) Create(ctx context.Context, fields map[string]any) (*post.Post, error) {
	payload, err := c.cfg.Variant.Payload(fields, true)
	if err != nil {
		return nil, err
	}

	rec, err := c.gateway.CreateRecord(ctx, c.cfg.Datasheet, payload)
	if err != nil {
		return nil, c.writeError("create", err)
	}

	created, err := c.merge(rec, payload)
	if err != nil {
		return nil, err
	}

	if err := c.Refresh(ctx, true); err != nil {
		c.log.WithError(err).WithField("record_id", rec.RecordID).Warn("Refresh after create failed")
	}

	c.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"post_id":   created.PostID,
	}).Info("Created post")

	return created, nil
}

// Update changes fields of the post with the given id and returns the post
// as confirmed by the remote table. The snapshot is not refreshed, so reads
// may briefly return the old values until the staleness window passes.
func (c *Cache) Update(ctx context.Context, postID string, fields map[string]any) (*post.Post, error) {
	if len(fields) == 0 {
		return nil, &EmptyUpdateError{Table: c.cfg.Name, PostID: postID}
	}

	payload, err := c.cfg.Variant.Payload(fields, false)
	if err != nil {
		return nil, err
	}

	existing, err := c.FindByKey(ctx, postID)
	if err != nil {
		return nil, err
	}

	rec, err := c.gateway.UpdateRecord(ctx, c.cfg.Datasheet, existing.RecordID, payload)
	if err != nil {
		return nil, c.writeError("update", err)
	}

	base := rawFields(existing)
	maps.Copy(base, payload)

	updated, err := c.merge(rec, base)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"record_id": existing.RecordID,
		"post_id":   postID,
		"fields":    len(payload),
	}).Info("Updated post")

	return updated, nil
}

// merge decodes a write response. Columns missing from the response are
// taken from base, which holds what was sent.
func (c *Cache) merge(rec *mws.Record, base map[string]any) (*post.Post, error) {
	raw := maps.Clone(base)
	if raw == nil {
		raw = make(map[string]any, len(rec.Fields))
	}

	for k, v := range rec.Fields {
		if v != nil {
			raw[k] = v
		}
	}

	p, err := c.cfg.Variant.Decode(rec.RecordID, raw)
	if err != nil {
		return nil, fmt.Errorf("decode written record: %w", err)
	}

	return p, nil
}

func (c *Cache) writeError(op string, err error) error {
	var writeErr *mws.WriteError
	if errors.As(err, &writeErr) {
		return err
	}

	return &mws.WriteError{Datasheet: c.cfg.Datasheet.ID, Op: op, Err: err}
}

// rawFields renders a post back into remote column values.
func rawFields(p *post.Post) map[string]any {
	fields := p.Variant().Fields()
	out := make(map[string]any, len(fields))

	for _, f := range fields {
		v, err := p.Get(f.Name)
		if err != nil {
			continue
		}

		out[f.Name] = v.Interface()
	}

	return out
}

package tablecache

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/mwsanalytics/posts-backend/internal/post"
)

// Criterion is one field/operand pair of a filter. Operands may be typed Go
// values or query text; text is parsed according to the field's kind.
type Criterion struct {
	Field string
	Value any
}

type predicate struct {
	field   post.Field
	operand post.Value
}

// FindByKey returns the first post whose post_id equals postID.
func (c *Cache) FindByKey(ctx context.Context, postID string) (*post.Post, error) {
	snapshot, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range snapshot {
		if p.PostID == postID {
			return p, nil
		}
	}

	return nil, &NotFoundError{Table: c.cfg.Name, PostID: postID}
}

// GetField returns one field of the post with the given id.
func (c *Cache) GetField(ctx context.Context, postID, field string) (post.Value, error) {
	if _, err := c.cfg.Variant.Field(field); err != nil {
		return post.Value{}, err
	}

	p, err := c.FindByKey(ctx, postID)
	if err != nil {
		return post.Value{}, err
	}

	return c.cfg.Variant.GetField(p, field)
}

// Filter returns the posts matching every criterion under cond, in remote
// order. Criteria are applied left to right; evaluation stops once nothing
// is left to filter.
func (c *Cache) Filter(ctx context.Context, cond string, criteria []Criterion) ([]*post.Post, error) {
	condition, err := post.ParseCondition(cond)
	if err != nil {
		return nil, err
	}

	predicates := make([]predicate, 0, len(criteria))

	for _, cr := range criteria {
		pr, err := c.predicate(cr)
		if err != nil {
			return nil, err
		}

		predicates = append(predicates, pr)
	}

	snapshot, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	result := snapshot

	for _, pr := range predicates {
		if len(result) == 0 {
			break
		}

		matched := make([]*post.Post, 0, len(result))

		for _, p := range result {
			if pr.matches(p, condition) {
				matched = append(matched, p)
			}
		}

		result = matched
	}

	return clone(result, c.cfg.Limit), nil
}

func (c *Cache) predicate(cr Criterion) (predicate, error) {
	field, err := c.cfg.Variant.Field(cr.Field)
	if err != nil {
		return predicate{}, err
	}

	var operand post.Value

	switch v := cr.Value.(type) {
	case post.Value:
		operand = v
	case string:
		operand, err = parseOperand(field, v)
		if err != nil {
			return predicate{}, err
		}
	default:
		operand, err = c.cfg.Variant.Coerce(field.Name, v)
		if err != nil {
			return predicate{}, err
		}
	}

	// Reject operands that can never be compared with the field.
	if _, err := post.Compare(zeroValue(field.Kind), operand); err != nil {
		return predicate{}, &post.TypeMismatchError{
			Field: field.Name,
			Want:  field.Kind,
			Got:   operand.Kind(),
			Value: operand.String(),
		}
	}

	return predicate{field: field, operand: operand}, nil
}

func parseOperand(field post.Field, text string) (post.Value, error) {
	if field.Kind == post.KindString {
		return post.String(text), nil
	}

	v, err := post.ParseValue(field.Kind, text)
	if err != nil {
		var mismatch *post.TypeMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Field = field.Name
		}

		return post.Value{}, err
	}

	return v, nil
}

func (pr predicate) matches(p *post.Post, condition post.Condition) bool {
	v, err := p.Get(pr.field.Name)
	if err != nil {
		return false
	}

	// Free-text dates have no position on the time axis.
	if pr.field.Kind == post.KindTime && v.Kind() != post.KindTime {
		return false
	}

	ok, err := condition.Match(v, pr.operand)

	return err == nil && ok
}

// Sort returns up to limit posts ordered by field. The sort is stable, so
// posts with equal values keep their remote order in both directions. A
// limit of zero or less returns no posts.
func (c *Cache) Sort(ctx context.Context, field string, limit int, descending bool) ([]*post.Post, error) {
	f, err := c.cfg.Variant.Field(field)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		return []*post.Post{}, nil
	}

	snapshot, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	sorted := clone(snapshot, len(snapshot))

	slices.SortStableFunc(sorted, func(a, b *post.Post) int {
		order := compareField(f, a, b)
		if descending {
			return -order
		}

		return order
	})

	return clone(sorted, min(limit, c.cfg.Limit)), nil
}

// compareField orders two posts by a field. Free-text dates sort after
// every timestamp.
func compareField(f post.Field, a, b *post.Post) int {
	av, _ := a.Get(f.Name)
	bv, _ := b.Get(f.Name)

	if f.Kind == post.KindTime {
		aTime, bTime := av.Kind() == post.KindTime, bv.Kind() == post.KindTime
		if aTime != bTime {
			if aTime {
				return -1
			}

			return 1
		}
	}

	order, err := post.Compare(av, bv)
	if err != nil {
		return cmp.Compare(av.String(), bv.String())
	}

	return order
}

func zeroValue(kind post.Kind) post.Value {
	switch kind {
	case post.KindInt:
		return post.Int(0)
	case post.KindFloat:
		return post.Float(0)
	case post.KindTime:
		return post.Time(time.Time{})
	case post.KindID:
		return post.ID("")
	default:
		return post.String("")
	}
}

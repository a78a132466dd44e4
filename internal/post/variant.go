package post

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Declared field names.
const (
	FieldPostID            = "post_id"
	FieldPlatform          = "platform"
	FieldFormat            = "format"
	FieldDate              = "date"
	FieldLikes             = "likes"
	FieldShares            = "shares"
	FieldCommentCount      = "comment_count"
	FieldViews             = "views"
	FieldOwnerID           = "owner_id"
	FieldReposts           = "reposts"
	FieldPollParticipation = "poll_participation"
)

// Field describes one declared attribute of a variant.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	get func(*Post) Value
	set func(*Post, Value)
}

// Variant is a fixed, ordered set of declared fields.
type Variant struct {
	name   string
	fields []Field
	index  map[string]int
}

func newVariant(name string, fields ...Field) *Variant {
	v := &Variant{
		name:   name,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}

	for i, f := range fields {
		v.index[f.Name] = i
	}

	return v
}

var coreFields = []Field{
	{
		Name: FieldPostID, Kind: KindID, Required: true,
		get: func(p *Post) Value { return ID(p.PostID) },
		set: func(p *Post, v Value) { p.PostID = v.s },
	},
	{
		Name: FieldPlatform, Kind: KindString, Required: true,
		get: func(p *Post) Value { return String(p.Platform) },
		set: func(p *Post, v Value) { p.Platform = v.s },
	},
	{
		Name: FieldFormat, Kind: KindString, Required: true,
		get: func(p *Post) Value { return String(p.Format) },
		set: func(p *Post, v Value) { p.Format = v.s },
	},
	{
		Name: FieldDate, Kind: KindTime, Required: true,
		get: func(p *Post) Value { return p.Date.Value() },
		set: func(p *Post, v Value) {
			if v.kind == KindTime {
				p.Date = NewDate(v.t)
			} else {
				p.Date = TextDate(v.s)
			}
		},
	},
	intField(FieldLikes, false, func(p *Post) *int64 { return &p.Likes }),
	intField(FieldShares, false, func(p *Post) *int64 { return &p.Shares }),
	intField(FieldCommentCount, false, func(p *Post) *int64 { return &p.CommentCount }),
	intField(FieldViews, false, func(p *Post) *int64 { return &p.Views }),
}

var vkFields = []Field{
	vkField(FieldOwnerID, true, func(x *VKExtension) *int64 { return &x.OwnerID }),
	vkField(FieldReposts, false, func(x *VKExtension) *int64 { return &x.Reposts }),
	vkField(FieldPollParticipation, false, func(x *VKExtension) *int64 { return &x.PollParticipation }),
}

func intField(name string, required bool, ref func(*Post) *int64) Field {
	return Field{
		Name: name, Kind: KindInt, Required: required,
		get: func(p *Post) Value { return Int(*ref(p)) },
		set: func(p *Post, v Value) { *ref(p) = v.i },
	}
}

func vkField(name string, required bool, ref func(*VKExtension) *int64) Field {
	return Field{
		Name: name, Kind: KindInt, Required: required,
		get: func(p *Post) Value {
			if p.VK == nil {
				return Int(0)
			}

			return Int(*ref(p.VK))
		},
		set: func(p *Post, v Value) {
			if p.VK == nil {
				p.VK = &VKExtension{}
			}

			*ref(p.VK) = v.i
		},
	}
}

// legacyColumns maps declared fields to column names written by older
// loaders. The declared name wins when both are present.
var legacyColumns = map[string]string{
	FieldPollParticipation: "polls_participation",
}

var (
	// General is the field set shared by every platform.
	General = newVariant("general", coreFields...)

	// VK extends General with VK wall attributes.
	VK = newVariant("vk", append(append([]Field{}, coreFields...), vkFields...)...)
)

var variantAliases = map[string]*Variant{
	"general":  General,
	"all":      General,
	"telegram": General,
	"tg":       General,
	"vk":       VK,
}

// LookupVariant returns the variant used for a platform or variant name.
func LookupVariant(name string) (*Variant, bool) {
	v, ok := variantAliases[strings.ToLower(strings.TrimSpace(name))]

	return v, ok
}

// Name returns the variant name.
func (v *Variant) Name() string { return v.name }

// Fields returns the declared fields in declaration order.
func (v *Variant) Fields() []Field {
	out := make([]Field, len(v.fields))
	copy(out, v.fields)

	return out
}

// IsValidField reports whether name is declared on the variant.
func (v *Variant) IsValidField(name string) bool {
	_, ok := v.index[name]

	return ok
}

// Field returns the descriptor for a declared field.
func (v *Variant) Field(name string) (Field, error) {
	i, ok := v.index[name]
	if !ok {
		return Field{}, &UnknownFieldError{Variant: v.name, Field: name}
	}

	return v.fields[i], nil
}

// GetField reads a declared field from p. Fields the post does not carry
// return the zero value of their kind.
func (v *Variant) GetField(p *Post, name string) (Value, error) {
	f, err := v.Field(name)
	if err != nil {
		return Value{}, err
	}

	return f.get(p), nil
}

// Decode builds a post from the fields of a remote record. Columns that are
// not declared on the variant are ignored.
func (v *Variant) Decode(recordID string, raw map[string]any) (*Post, error) {
	p := &Post{RecordID: recordID, variant: v}

	if v == VK {
		p.VK = &VKExtension{}
	}

	for _, f := range v.fields {
		rv, ok := raw[f.Name]
		if !ok || rv == nil {
			if legacy, has := legacyColumns[f.Name]; has {
				rv, ok = raw[legacy]
			}
		}

		if !ok || rv == nil {
			continue
		}

		val, err := toValue(f, rv, false)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", recordID, err)
		}

		f.set(p, val)
	}

	if p.PostID == "" {
		return nil, fmt.Errorf("record %s: %w", recordID, &MissingFieldError{Variant: v.name, Field: FieldPostID})
	}

	return p, nil
}

// Coerce converts a filter operand to a value comparable with field.
func (v *Variant) Coerce(field string, operand any) (Value, error) {
	f, err := v.Field(field)
	if err != nil {
		return Value{}, err
	}

	val, err := toValue(f, operand, true)
	if err != nil {
		return Value{}, err
	}

	// Free text cannot be ordered against timestamps.
	if f.Kind == KindTime && val.kind != KindTime {
		return Value{}, &TypeMismatchError{Field: f.Name, Want: KindTime, Got: val.kind, Value: val.String()}
	}

	return val, nil
}

// Payload validates the fields of a create or update request and returns
// them in the shape the remote table expects. With requireAll set, every
// required field of the variant must be present.
func (v *Variant) Payload(fields map[string]any, requireAll bool) (map[string]any, error) {
	// Check names first so an unknown field is reported before any type error.
	for name := range fields {
		if _, err := v.Field(name); err != nil {
			return nil, err
		}
	}

	if requireAll {
		for _, f := range v.fields {
			if !f.Required {
				continue
			}

			if val, ok := fields[f.Name]; !ok || val == nil {
				return nil, &MissingFieldError{Variant: v.name, Field: f.Name}
			}
		}
	}

	out := make(map[string]any, len(fields))

	for name, raw := range fields {
		f, _ := v.Field(name)

		val, err := toValue(f, raw, true)
		if err != nil {
			return nil, err
		}

		if f.Kind == KindInt && val.kind == KindFloat {
			return nil, &TypeMismatchError{Field: f.Name, Want: KindInt, Got: KindFloat, Value: val.String()}
		}

		switch val.kind {
		case KindInt:
			out[name] = val.i
		case KindFloat:
			out[name] = val.f
		case KindTime:
			out[name] = val.t.UnixMilli()
		default:
			if f.Kind == KindString || f.Kind == KindID {
				// Identifiers keep the representation the caller used.
				if n, ok := raw.(json.Number); ok {
					out[name] = n
				} else {
					out[name] = raw
				}
			} else {
				out[name] = val.s
			}
		}
	}

	return out, nil
}

// toValue converts a raw scalar to a value of f's kind. In strict mode
// (request input) strings are not parsed into numbers; remote data is
// converted leniently since spreadsheet columns are often typed as text.
func toValue(f Field, raw any, strict bool) (Value, error) {
	mismatch := func(got Kind) error {
		return &TypeMismatchError{Field: f.Name, Want: f.Kind, Got: got, Value: fmt.Sprint(raw)}
	}

	switch f.Kind {
	case KindInt:
		switch n := raw.(type) {
		case int:
			return Int(int64(n)), nil
		case int32:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case float64:
			if strict && n != math.Trunc(n) {
				return Float(n), nil
			}

			return Int(int64(n)), nil
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return Int(i), nil
			}

			fl, err := n.Float64()
			if err != nil {
				return Value{}, mismatch(KindString)
			}

			if strict {
				return Float(fl), nil
			}

			return Int(int64(fl)), nil
		case string:
			if strict {
				return Value{}, mismatch(KindString)
			}

			if n == "" {
				return Int(0), nil
			}

			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return Value{}, mismatch(KindString)
			}

			return Int(i), nil
		case time.Time:
			return Value{}, mismatch(KindTime)
		default:
			return Value{}, mismatch(0)
		}
	case KindString, KindID:
		text, got, ok := toText(raw, strict)
		if !ok {
			return Value{}, mismatch(got)
		}

		if f.Kind == KindID {
			return ID(text), nil
		}

		return String(text), nil
	case KindTime:
		switch t := raw.(type) {
		case time.Time:
			return Time(t), nil
		case string:
			if parsed, ok := ParseTime(t); ok {
				return Time(parsed), nil
			}

			return String(t), nil
		case json.Number:
			ms, err := t.Int64()
			if err != nil {
				return Value{}, mismatch(KindFloat)
			}

			return Time(time.UnixMilli(ms).UTC()), nil
		case float64:
			return Time(time.UnixMilli(int64(t)).UTC()), nil
		case int64:
			return Time(time.UnixMilli(t).UTC()), nil
		case int:
			return Time(time.UnixMilli(int64(t)).UTC()), nil
		default:
			return Value{}, mismatch(0)
		}
	default:
		return Value{}, mismatch(0)
	}
}

// toText converts a raw scalar to text. Integral numbers are formatted in
// base 10; on failure the kind that was found is returned.
func toText(raw any, strict bool) (string, Kind, bool) {
	switch s := raw.(type) {
	case string:
		return s, 0, true
	case json.Number:
		return s.String(), 0, true
	case int:
		return strconv.Itoa(s), 0, true
	case int64:
		return strconv.FormatInt(s, 10), 0, true
	case float64:
		if s != math.Trunc(s) {
			return "", KindFloat, false
		}

		return strconv.FormatInt(int64(s), 10), 0, true
	case []any:
		// Multi-select columns come back as arrays; keep the first option.
		if !strict && len(s) > 0 {
			if first, ok := s[0].(string); ok {
				return first, 0, true
			}
		}

		return "", 0, false
	case time.Time:
		return "", KindTime, false
	default:
		return "", 0, false
	}
}

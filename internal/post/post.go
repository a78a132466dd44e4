//nolint:tagliatelle // MWS column names are snake_case.
package post

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Date is a post timestamp. Tables filled by hand often carry free text in
// the date column, so a Date keeps the raw text when it cannot be parsed.
type Date struct {
	t     time.Time
	text  string
	valid bool
}

// NewDate returns a Date holding a timestamp.
func NewDate(t time.Time) Date { return Date{t: t, valid: true} }

// TextDate returns a Date holding unparsed text.
func TextDate(text string) Date { return Date{text: text} }

// Time returns the timestamp and whether the date holds one.
func (d Date) Time() (time.Time, bool) { return d.t, d.valid }

// Text returns the raw text of an unparsed date.
func (d Date) Text() string { return d.text }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return !d.valid && d.text == "" }

// Value returns the date as a timestamp value, or a string value for text.
func (d Date) Value() Value {
	if d.valid {
		return Time(d.t)
	}

	return String(d.text)
}

// MarshalJSON encodes timestamps as RFC3339 and text verbatim.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.valid {
		return json.Marshal(d.t.Format(time.RFC3339))
	}

	return json.Marshal(d.text)
}

// VKExtension carries the VK-specific post attributes.
type VKExtension struct {
	OwnerID           int64
	Reposts           int64
	PollParticipation int64
}

// Post is one social-media post as stored in a remote table. Posts are built
// once per fetch and never modified afterwards.
type Post struct {
	// RecordID is the remote record identifier, used for updates.
	RecordID string

	PostID       string
	Platform     string
	Format       string
	Date         Date
	Likes        int64
	Shares       int64
	CommentCount int64
	Views        int64

	// VK is set for posts of the VK variant.
	VK *VKExtension

	variant *Variant
}

// Variant returns the field set the post was built against.
func (p *Post) Variant() *Variant {
	if p.variant == nil {
		if p.VK != nil {
			return VK
		}

		return General
	}

	return p.variant
}

// Get returns a declared field of the post.
func (p *Post) Get(field string) (Value, error) {
	return p.Variant().GetField(p, field)
}

// MarshalJSON writes the declared fields of the post's variant as a flat object.
func (p *Post) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	if p.RecordID != "" {
		id, err := json.Marshal(p.RecordID)
		if err != nil {
			return nil, err
		}

		buf.WriteString(`"record_id":`)
		buf.Write(id)
		buf.WriteByte(',')
	}

	for i, f := range p.Variant().Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}

		var val []byte

		if f.Name == FieldDate {
			val, err = json.Marshal(p.Date)
		} else {
			val, err = json.Marshal(f.get(p).Interface())
		}

		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", f.Name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

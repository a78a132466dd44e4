//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"fmt"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
)

// TableConfig defines a table served from start-up.
type TableConfig struct {
	Name        string `yaml:"name"`         // "all", "vk", "telegram", ...
	Variant     string `yaml:"variant"`      // "general" or "vk"; derived from the name when empty
	URL         string `yaml:"url"`          // Table link; alternative to the ids below
	DatasheetID string `yaml:"datasheet_id"` // dst...
	ViewID      string `yaml:"view_id"`      // viw...
	Token       string `yaml:"token"`        // Falls back to mws.token
}

// Validate validates a table configuration. A table link, when given, fills
// in the datasheet and view ids.
func (t *TableConfig) Validate(defaultToken string) error {
	if t.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	if t.URL != "" {
		dst, view, err := mws.ParseTableURL(t.URL)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}

		t.DatasheetID, t.ViewID = dst, view
	}

	if t.DatasheetID == "" || t.ViewID == "" {
		return fmt.Errorf("table %s: url or datasheet_id and view_id are required", t.Name)
	}

	if t.Variant == "" {
		t.Variant = "general"

		if v, ok := post.LookupVariant(t.Name); ok {
			t.Variant = v.Name()
		}
	}

	if _, ok := post.LookupVariant(t.Variant); !ok {
		return fmt.Errorf("table %s: unknown variant %q", t.Name, t.Variant)
	}

	if t.Token == "" && defaultToken == "" {
		return fmt.Errorf("table %s: token is required when mws.token is not set", t.Name)
	}

	return nil
}

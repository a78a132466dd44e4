package mws

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ParseTableURL extracts the datasheet and view ids from a table link such as
// https://tables.mws.ru/workbench/dstXXXX/viwYYYY or .../datasheets/dstXXXX/views/viwYYYY.
// When the link has no views segment the last path segment is used as the view.
func ParseTableURL(raw string) (datasheetID, viewID string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid table link: %w", err)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	if i := slices.Index(parts, "datasheets"); i >= 0 && i+1 < len(parts) {
		datasheetID = parts[i+1]
	} else {
		for _, p := range parts {
			if strings.HasPrefix(p, "dst") {
				datasheetID = p

				break
			}
		}
	}

	if datasheetID == "" {
		return "", "", fmt.Errorf("invalid table link %q: no datasheet id", raw)
	}

	if i := slices.Index(parts, "views"); i >= 0 && i+1 < len(parts) {
		viewID = parts[i+1]
	} else {
		viewID = parts[len(parts)-1]
	}

	if viewID == datasheetID {
		return "", "", fmt.Errorf("invalid table link %q: no view id", raw)
	}

	return datasheetID, viewID, nil
}

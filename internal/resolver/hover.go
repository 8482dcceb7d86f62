package resolver

import (
	"encoding/json"
	"strings"
)

// flattenHover extracts a human-readable string from a hover result.
// Servers return contents in several shapes: a bare string, a MarkedString
// or MarkupContent object carrying a value field, or an array of either.
// Unknown shapes degrade to an empty string, never an error.
func flattenHover(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var hover struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(raw, &hover); err != nil {
		return ""
	}
	return flattenHoverContents(hover.Contents)
}

func flattenHoverContents(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var valued struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &valued); err == nil && valued.Value != "" {
		return strings.TrimSpace(valued.Value)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err == nil {
		flattened := make([]string, 0, len(parts))
		for _, part := range parts {
			if text := flattenHoverContents(part); text != "" {
				flattened = append(flattened, text)
			}
		}
		return strings.Join(flattened, "\n\n")
	}

	return ""
}

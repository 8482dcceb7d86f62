package resolver

import (
	"encoding/json"
	"strings"

	"go.lsp.dev/uri"
)

// rawRange mirrors an LSP range without pulling result decoding through the
// typed protocol structs, since servers vary in which optional fields they
// populate.
type rawRange struct {
	Start struct {
		Line      uint32 `json:"line"`
		Character uint32 `json:"character"`
	} `json:"start"`
}

// rawLocation accepts Location, LocationLink, and multilspy-style results
// carrying an absolutePath field.
type rawLocation struct {
	URI                  string    `json:"uri"`
	TargetURI            string    `json:"targetUri"`
	AbsolutePath         string    `json:"absolutePath"`
	Range                *rawRange `json:"range"`
	TargetRange          *rawRange `json:"targetRange"`
	TargetSelectionRange *rawRange `json:"targetSelectionRange"`
}

// decodeLocations normalizes a definition or references result into
// locations. The result may be null, a single location object, an array of
// Location, or an array of LocationLink; entries that cannot be resolved to
// a file path are dropped.
func decodeLocations(raw json.RawMessage) []Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var rawLocs []rawLocation
	if err := json.Unmarshal(raw, &rawLocs); err != nil {
		var single rawLocation
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		rawLocs = []rawLocation{single}
	}

	locs := make([]Location, 0, len(rawLocs))
	for _, rl := range rawLocs {
		path, ok := rl.path()
		if !ok {
			continue
		}
		rng := rl.startRange()
		if rng == nil {
			continue
		}
		locs = append(locs, Location{
			Path:      path,
			Line:      rng.Start.Line,
			Character: rng.Start.Character,
		})
	}
	return locs
}

func (rl *rawLocation) path() (string, bool) {
	if rl.AbsolutePath != "" {
		return rl.AbsolutePath, true
	}
	for _, s := range []string{rl.TargetURI, rl.URI} {
		if p, ok := uriToPath(s); ok {
			return p, true
		}
	}
	return "", false
}

// startRange picks the most precise range available: a LocationLink's
// selection range points at the symbol name itself.
func (rl *rawLocation) startRange() *rawRange {
	switch {
	case rl.TargetSelectionRange != nil:
		return rl.TargetSelectionRange
	case rl.TargetRange != nil:
		return rl.TargetRange
	default:
		return rl.Range
	}
}

// uriToPath converts a file:// URI to a local filesystem path. Non-file
// schemes are rejected rather than passed to uri.Filename, which panics on
// them.
func uriToPath(s string) (string, bool) {
	if !strings.HasPrefix(s, "file://") {
		return "", false
	}
	return uri.URI(s).Filename(), true
}

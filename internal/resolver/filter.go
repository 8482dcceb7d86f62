package resolver

import (
	"path/filepath"
	"strings"
)

// dependencyPathMarkers identify paths inside virtual environments,
// installed-package directories, and interpreter standard-library trees.
// Workspace-scoped queries must not conflate those with workspace code.
var dependencyPathMarkers = []string{
	"/site-packages/",
	"/dist-packages/",
	"/.venv/",
	"/venv/",
	"/virtualenvs/",
	"/typeshed/",
	"/lib/python",
	"/node_modules/",
}

// isDependencyPath matches by case-insensitive substring against both path
// separator conventions.
func isDependencyPath(path string) bool {
	// filepath.ToSlash only rewrites the host OS separator, but servers on
	// any platform may hand back Windows-style paths.
	normalized := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	for _, marker := range dependencyPathMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// filterLocations drops dependency-tree results and, when exclude is
// non-empty, results pointing back into that file (the caller's own scratch
// source).
func filterLocations(locs []Location, exclude string) []Location {
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		if isDependencyPath(loc.Path) {
			continue
		}
		if exclude != "" && sameFile(loc.Path, exclude) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// dedupe removes duplicate locations keyed on (path, line, character),
// preserving the order the server returned them in.
func dedupe(locs []Location) []Location {
	seen := make(map[Location]struct{}, len(locs))
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}

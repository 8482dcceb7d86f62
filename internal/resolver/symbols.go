package resolver

import (
	"context"
	"encoding/json"
)

// SymbolInfo is a named symbol with its defining location.
type SymbolInfo struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Container string   `json:"container,omitempty"`
	Location  Location `json:"location"`
}

// symbolKindNames maps the LSP SymbolKind enumeration to readable names.
var symbolKindNames = map[int]string{
	1: "File", 2: "Module", 3: "Namespace", 4: "Package", 5: "Class",
	6: "Method", 7: "Property", 8: "Field", 9: "Constructor", 10: "Enum",
	11: "Interface", 12: "Function", 13: "Variable", 14: "Constant",
	15: "String", 16: "Number", 17: "Boolean", 18: "Array", 19: "Object",
	20: "Key", 21: "Null", 22: "EnumMember", 23: "Struct", 24: "Event",
	25: "Operator", 26: "TypeParameter",
}

// SymbolKindName returns the readable name for an LSP symbol kind.
func SymbolKindName(kind int) string {
	if name, ok := symbolKindNames[kind]; ok {
		return name
	}
	return "Unknown"
}

// rawSymbol accepts both SymbolInformation (flat, with a location) and
// DocumentSymbol (hierarchical, with ranges and children).
type rawSymbol struct {
	Name           string       `json:"name"`
	Kind           int          `json:"kind"`
	ContainerName  string       `json:"containerName"`
	Location       *rawLocation `json:"location"`
	SelectionRange *rawRange    `json:"selectionRange"`
	Range          *rawRange    `json:"range"`
	Children       []rawSymbol  `json:"children"`
}

// SearchSymbols searches the workspace by symbol name. Dependency-tree
// matches are excluded.
func (r *Resolver) SearchSymbols(ctx context.Context, query string) ([]SymbolInfo, error) {
	raw, err := r.q.WorkspaceSymbols(ctx, query)
	if err != nil {
		return nil, queryError(err)
	}

	var rawSyms []rawSymbol
	if err := json.Unmarshal(raw, &rawSyms); err != nil {
		return nil, nil
	}

	syms := make([]SymbolInfo, 0, len(rawSyms))
	for _, rs := range rawSyms {
		if rs.Location == nil {
			continue
		}
		path, ok := rs.Location.path()
		if !ok || isDependencyPath(path) {
			continue
		}
		rng := rs.Location.startRange()
		if rng == nil {
			continue
		}
		syms = append(syms, SymbolInfo{
			Name:      rs.Name,
			Kind:      SymbolKindName(rs.Kind),
			Container: rs.ContainerName,
			Location: Location{
				Path:      path,
				Line:      rng.Start.Line,
				Character: rng.Start.Character,
			},
		})
	}
	return syms, nil
}

// FileSymbols lists the symbols defined in one file, flattening
// hierarchical DocumentSymbol trees depth-first.
func (r *Resolver) FileSymbols(ctx context.Context, path string) ([]SymbolInfo, error) {
	raw, err := r.q.DocumentSymbols(ctx, path)
	if err != nil {
		return nil, queryError(err)
	}

	var rawSyms []rawSymbol
	if err := json.Unmarshal(raw, &rawSyms); err != nil {
		return nil, nil
	}

	var syms []SymbolInfo
	var walk func(parent string, nodes []rawSymbol)
	walk = func(parent string, nodes []rawSymbol) {
		for _, rs := range nodes {
			info, ok := rs.toInfo(path, parent)
			if ok {
				syms = append(syms, info)
			}
			if len(rs.Children) > 0 {
				walk(rs.Name, rs.Children)
			}
		}
	}
	walk("", rawSyms)
	return syms, nil
}

func (rs *rawSymbol) toInfo(filePath, parent string) (SymbolInfo, bool) {
	info := SymbolInfo{
		Name:      rs.Name,
		Kind:      SymbolKindName(rs.Kind),
		Container: rs.ContainerName,
	}
	if info.Container == "" {
		info.Container = parent
	}

	switch {
	case rs.Location != nil:
		path, ok := rs.Location.path()
		if !ok {
			return SymbolInfo{}, false
		}
		rng := rs.Location.startRange()
		if rng == nil {
			return SymbolInfo{}, false
		}
		info.Location = Location{Path: path, Line: rng.Start.Line, Character: rng.Start.Character}
	case rs.SelectionRange != nil:
		info.Location = Location{Path: filePath, Line: rs.SelectionRange.Start.Line, Character: rs.SelectionRange.Start.Character}
	case rs.Range != nil:
		info.Location = Location{Path: filePath, Line: rs.Range.Start.Line, Character: rs.Range.Start.Character}
	default:
		return SymbolInfo{}, false
	}
	return info, true
}

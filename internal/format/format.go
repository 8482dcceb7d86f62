// Package format renders resolver results for human-readable output:
// workspace-relative paths, 1-indexed display lines, and a few lines of
// surrounding source for context.
package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/resolver"
)

// definitionContextLines is the number of source lines shown before and
// after a definition site.
const definitionContextLines = 3

// Formatter renders results relative to one workspace root.
type Formatter struct {
	root string
}

// New creates a formatter for the given workspace root.
func New(root string) *Formatter {
	return &Formatter{root: root}
}

// Definition renders a resolved definition with surrounding source context
// and hover text when present.
func (f *Formatter) Definition(def *resolver.Definition) string {
	if def == nil {
		return "no definition found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d", f.displayPath(def.Path), def.Line+1, def.Character)
	if ctx := fileContext(def.Path, int(def.Line), definitionContextLines); ctx != "" {
		b.WriteString("\n")
		b.WriteString(ctx)
	}
	if def.Hover != "" {
		b.WriteString("\n---\n")
		b.WriteString(def.Hover)
	}
	return b.String()
}

// References renders a reference list, one line of source each.
func (f *Formatter) References(refs []resolver.Reference) string {
	if len(refs) == 0 {
		return "no references found"
	}

	lines := make([]string, 0, len(refs)+1)
	lines = append(lines, fmt.Sprintf("%d references:", len(refs)))
	for _, ref := range refs {
		line := fmt.Sprintf("  %s:%d:%d", f.displayPath(ref.Path), ref.Line+1, ref.Character)
		if src := singleLine(ref.Path, int(ref.Line)); src != "" {
			line += "  " + src
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Symbols renders a symbol list.
func (f *Formatter) Symbols(syms []resolver.SymbolInfo) string {
	if len(syms) == 0 {
		return "no symbols found"
	}

	lines := make([]string, 0, len(syms)+1)
	lines = append(lines, fmt.Sprintf("%d symbols:", len(syms)))
	for _, sym := range syms {
		name := sym.Name
		if sym.Container != "" {
			name = sym.Container + "." + name
		}
		lines = append(lines, fmt.Sprintf("  %-10s %s  %s:%d:%d",
			sym.Kind, name, f.displayPath(sym.Location.Path), sym.Location.Line+1, sym.Location.Character))
	}
	return strings.Join(lines, "\n")
}

// displayPath prefers a workspace-relative path and falls back to the
// absolute one for dependency-tree results.
func (f *Formatter) displayPath(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// fileContext returns up to contextLines lines before and after the target
// line. Read failures degrade to no context.
func fileContext(path string, centerLine, contextLines int) string {
	lines, err := readLines(path)
	if err != nil {
		return ""
	}

	start := centerLine - contextLines
	if start < 0 {
		start = 0
	}
	end := centerLine + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.TrimRight(strings.Join(lines[start:end], "\n"), " \t\n")
}

func singleLine(path string, line int) string {
	lines, err := readLines(path)
	if err != nil || line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line])
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}

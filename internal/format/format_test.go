package format

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/resolver"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefinitionRendering(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "calc.py", "# calc\n\ndef add(a, b):\n    return a + b\n")

	f := New(root)
	out := f.Definition(&resolver.Definition{
		Location: resolver.Location{Path: path, Line: 2, Character: 4},
		Hover:    "def add(a, b)",
	})

	assert.True(t, strings.HasPrefix(out, "calc.py:3:4"), "want relative path and 1-indexed line, got %q", out)
	assert.Contains(t, out, "def add(a, b):")
	assert.Contains(t, out, "def add(a, b)")
}

func TestDefinitionNil(t *testing.T) {
	assert.Equal(t, "no definition found", New("/work").Definition(nil))
}

func TestReferencesRendering(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "main.py", "from calc import add\n\nresult = add(1, 2)\n")

	out := New(root).References([]resolver.Reference{
		{Path: path, Line: 0, Character: 17},
		{Path: path, Line: 2, Character: 9},
	})

	assert.Contains(t, out, "2 references:")
	assert.Contains(t, out, "main.py:1:17")
	assert.Contains(t, out, "result = add(1, 2)")
}

func TestDependencyPathShownAbsolute(t *testing.T) {
	out := New("/work").Definition(&resolver.Definition{
		Location: resolver.Location{Path: "/usr/lib/python3.11/posixpath.py", Line: 76, Character: 4},
	})
	assert.Contains(t, out, "/usr/lib/python3.11/posixpath.py:77:4")
}

func TestSymbolsRendering(t *testing.T) {
	out := New("/work").Symbols([]resolver.SymbolInfo{
		{Name: "add", Kind: "Method", Container: "Calculator",
			Location: resolver.Location{Path: "/work/math_utils.py", Line: 20, Character: 8}},
	})
	assert.Contains(t, out, "Calculator.add")
	assert.Contains(t, out, "math_utils.py:21:8")
}

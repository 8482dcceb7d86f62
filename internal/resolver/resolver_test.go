package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/protocol"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/transport"
)

// stubQuerier scripts session responses without a language server.
type stubQuerier struct {
	root string

	definitionFn func(path string, line, character uint32) (json.RawMessage, error)
	referencesFn func(path string, line, character uint32) (json.RawMessage, error)
	hoverFn      func() (json.RawMessage, error)
	workspaceFn  func(query string) (json.RawMessage, error)
	documentFn   func(path string) (json.RawMessage, error)

	opened []string
	closed []string
}

func (s *stubQuerier) Definition(_ context.Context, path string, line, character uint32) (json.RawMessage, error) {
	if s.definitionFn == nil {
		return json.RawMessage(`[]`), nil
	}
	return s.definitionFn(path, line, character)
}

func (s *stubQuerier) References(_ context.Context, path string, line, character uint32) (json.RawMessage, error) {
	if s.referencesFn == nil {
		return json.RawMessage(`[]`), nil
	}
	return s.referencesFn(path, line, character)
}

func (s *stubQuerier) Hover(context.Context, string, uint32, uint32) (json.RawMessage, error) {
	if s.hoverFn == nil {
		return json.RawMessage(`null`), nil
	}
	return s.hoverFn()
}

func (s *stubQuerier) DocumentSymbols(_ context.Context, path string) (json.RawMessage, error) {
	if s.documentFn == nil {
		return json.RawMessage(`[]`), nil
	}
	return s.documentFn(path)
}

func (s *stubQuerier) WorkspaceSymbols(_ context.Context, query string) (json.RawMessage, error) {
	if s.workspaceFn == nil {
		return json.RawMessage(`[]`), nil
	}
	return s.workspaceFn(query)
}

func (s *stubQuerier) DidOpen(_ context.Context, path, _ string) error {
	s.opened = append(s.opened, path)
	return nil
}

func (s *stubQuerier) DidClose(_ context.Context, path string) error {
	s.closed = append(s.closed, path)
	return nil
}

func (s *stubQuerier) WorkspaceRoot() string { return s.root }

func locationJSON(path string, line, character int) string {
	return fmt.Sprintf(`{"uri":"file://%s","range":{"start":{"line":%d,"character":%d},"end":{"line":%d,"character":%d}}}`,
		path, line, character, line, character+1)
}

func TestDefinitionExcludesDependencyTrees(t *testing.T) {
	q := &stubQuerier{
		root: "/work",
		definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return json.RawMessage("[" +
				locationJSON("/work/.venv/lib/python3.11/site-packages/requests/api.py", 10, 4) + "," +
				locationJSON("/work/calc.py", 3, 4) +
				"]"), nil
		},
	}
	r := New(q)

	def, err := r.Definition(context.Background(), "/work/main.py", 5, 12, false)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, Location{Path: "/work/calc.py", Line: 3, Character: 4}, def.Location)
}

func TestDefinitionEmptyAndErrorResults(t *testing.T) {
	t.Run("empty result is none", func(t *testing.T) {
		r := New(&stubQuerier{root: "/work"})
		def, err := r.Definition(context.Background(), "/work/main.py", 0, 0, false)
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("null result is none", func(t *testing.T) {
		q := &stubQuerier{root: "/work", definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return json.RawMessage(`null`), nil
		}}
		def, err := New(q).Definition(context.Background(), "/work/main.py", 0, 0, false)
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("protocol error is none, not failure", func(t *testing.T) {
		q := &stubQuerier{root: "/work", definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return nil, &transport.ProtocolError{Method: "textDocument/definition", Err: &protocol.RPCError{Code: protocol.InvalidParams, Message: "bad position"}}
		}}
		def, err := New(q).Definition(context.Background(), "/work/main.py", 0, 0, false)
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("timeout propagates", func(t *testing.T) {
		q := &stubQuerier{root: "/work", definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return nil, transport.ErrTimeout
		}}
		_, err := New(q).Definition(context.Background(), "/work/main.py", 0, 0, false)
		assert.ErrorIs(t, err, transport.ErrTimeout)
	})
}

func TestDefinitionDecodesLocationLinks(t *testing.T) {
	q := &stubQuerier{
		root: "/work",
		definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return json.RawMessage(`[{
				"targetUri": "file:///work/calc.py",
				"targetRange": {"start":{"line":2,"character":0},"end":{"line":8,"character":0}},
				"targetSelectionRange": {"start":{"line":2,"character":4},"end":{"line":2,"character":7}}
			}]`), nil
		},
	}
	def, err := New(q).Definition(context.Background(), "/work/main.py", 5, 12, false)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, Location{Path: "/work/calc.py", Line: 2, Character: 4}, def.Location)
}

func TestDefinitionHoverFailureNeverFatal(t *testing.T) {
	q := &stubQuerier{
		root: "/work",
		definitionFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return json.RawMessage("[" + locationJSON("/work/calc.py", 3, 4) + "]"), nil
		},
		hoverFn: func() (json.RawMessage, error) {
			return nil, transport.ErrTimeout
		},
	}
	def, err := New(q).Definition(context.Background(), "/work/main.py", 5, 12, true)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Empty(t, def.Hover)
}

func TestReferencesDeduplicates(t *testing.T) {
	q := &stubQuerier{
		root: "/work",
		referencesFn: func(string, uint32, uint32) (json.RawMessage, error) {
			return json.RawMessage("[" +
				locationJSON("/work/main.py", 5, 12) + "," +
				locationJSON("/work/other.py", 1, 0) + "," +
				locationJSON("/work/main.py", 5, 12) + "," +
				locationJSON("/work/venv/lib/python3.11/site-packages/mod.py", 0, 0) +
				"]"), nil
		},
	}
	refs, err := New(q).References(context.Background(), "/work/main.py", 5, 12)
	require.NoError(t, err)

	require.Len(t, refs, 2)
	assert.Equal(t, Location{Path: "/work/main.py", Line: 5, Character: 12}, refs[0])
	assert.Equal(t, Location{Path: "/work/other.py", Line: 1, Character: 0}, refs[1])

	seen := map[Reference]int{}
	for _, ref := range refs {
		seen[ref]++
		assert.LessOrEqual(t, seen[ref], 1, "duplicate (path,line,character) in output")
	}
}

func TestIsDependencyPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/work/.venv/lib/python3.11/site-packages/requests/api.py", true},
		{"/usr/lib/python3.11/os/path.py", true},
		{"/work/venv/bin/activate.py", true},
		{`C:\Project\VENV\Lib\site-packages\mod.py`, true},
		{"/home/u/.pyenv/versions/3.11.2/lib/python3.11/typing.py", true},
		{"/work/src/typeshed_helpers.py", false},
		{"/work/calc.py", false},
		{"/work/inventory/items.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isDependencyPath(tt.path))
		})
	}
}

func TestFlattenHover(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `{"contents":"os.path.join(a, *p)"}`, "os.path.join(a, *p)"},
		{"markup content", `{"contents":{"kind":"markdown","value":"**join**"}}`, "**join**"},
		{"marked string", `{"contents":{"language":"python","value":"def join(a, *p)"}}`, "def join(a, *p)"},
		{"list of mixed", `{"contents":["sig",{"value":"docs"}]}`, "sig\n\ndocs"},
		{"empty list", `{"contents":[]}`, ""},
		{"null hover", `null`, ""},
		{"unknown shape", `{"contents":42}`, ""},
		{"no contents", `{"range":{}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flattenHover(json.RawMessage(tt.raw)))
		})
	}
}

func TestBuildScratchModuleOnly(t *testing.T) {
	sc := buildScratch("/work", "os.path", "")
	assert.Equal(t, "import os.path\n", sc.content)
	assert.Equal(t, uint32(0), sc.targetLine)
	// Target sits on the module name token, right after "import ".
	assert.Equal(t, uint32(7), sc.targetChar)
	assert.Equal(t, byte('o'), sc.content[sc.targetChar])
	assert.True(t, filepath.IsAbs(sc.path))
	assert.Contains(t, filepath.Base(sc.path), ScratchPrefix)
	assert.Equal(t, ".py", filepath.Ext(sc.path))
}

func TestBuildScratchWithQualpath(t *testing.T) {
	sc := buildScratch("/work", "os.path", "join")
	assert.Equal(t, "import os.path as __m\n__m.join\n", sc.content)
	assert.Equal(t, uint32(1), sc.targetLine)
	// Target is the last character of the attribute access line.
	assert.Equal(t, uint32(len("__m.join")-1), sc.targetChar)

	sc = buildScratch("/work", "collections", "abc.Mapping.get")
	assert.Equal(t, "import collections as __m\n__m.abc.Mapping.get\n", sc.content)
	assert.Equal(t, uint32(len("__m.abc.Mapping.get")-1), sc.targetChar)
}

func TestScratchFilenamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		sc := buildScratch("/work", "os", "")
		assert.False(t, seen[sc.path], "duplicate scratch filename %s", sc.path)
		seen[sc.path] = true
	}
}

func scratchLeftovers(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, ScratchPrefix+"*"))
	require.NoError(t, err)
	return matches
}

func TestDefinitionByFQNCleansUpScratchOnSuccess(t *testing.T) {
	root := t.TempDir()

	var sawScratch bool
	q := &stubQuerier{root: root}
	q.definitionFn = func(path string, line, character uint32) (json.RawMessage, error) {
		// The scratch file must exist while the query runs.
		if _, err := os.Stat(path); err == nil {
			sawScratch = true
		}
		return json.RawMessage("[" + locationJSON("/usr/lib/python3.11/posixpath.py", 77, 4) + "]"), nil
	}

	def, err := New(q).DefinitionByFQN(context.Background(), "os.path", "join", false)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "/usr/lib/python3.11/posixpath.py", def.Path)

	assert.True(t, sawScratch, "definition query never saw the scratch file on disk")
	assert.Empty(t, scratchLeftovers(t, root), "scratch file leaked after success")
	require.Len(t, q.opened, 1)
	assert.Equal(t, q.opened, q.closed, "didOpen without matching didClose")
}

func TestDefinitionByFQNCleansUpScratchOnError(t *testing.T) {
	root := t.TempDir()

	q := &stubQuerier{root: root}
	q.definitionFn = func(string, uint32, uint32) (json.RawMessage, error) {
		return nil, errors.New("pipe closed unexpectedly")
	}

	_, err := New(q).DefinitionByFQN(context.Background(), "os.path", "join", false)
	require.Error(t, err)
	assert.Empty(t, scratchLeftovers(t, root), "scratch file leaked after error")
}

func TestDefinitionByFQNCleansUpScratchOnEmptyResult(t *testing.T) {
	root := t.TempDir()

	q := &stubQuerier{root: root}
	def, err := New(q).DefinitionByFQN(context.Background(), "os.path", "nonexistent_attr", false)
	require.NoError(t, err)
	assert.Nil(t, def, "unresolvable qualpath yields none, not an error")
	assert.Empty(t, scratchLeftovers(t, root))
}

func TestFQNEmptyModuleFailsFast(t *testing.T) {
	q := &stubQuerier{root: t.TempDir()}
	q.definitionFn = func(string, uint32, uint32) (json.RawMessage, error) {
		t.Fatal("no query may be issued for an empty module")
		return nil, nil
	}

	_, err := New(q).DefinitionByFQN(context.Background(), "", "join", false)
	assert.ErrorIs(t, err, ErrEmptyModule)

	_, err = New(q).ReferencesByFQN(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyModule)

	assert.Empty(t, q.opened, "no document may be opened for an empty module")
}

func TestReferencesByFQNExcludesScratchSelf(t *testing.T) {
	root := t.TempDir()

	q := &stubQuerier{root: root}
	q.referencesFn = func(path string, line, character uint32) (json.RawMessage, error) {
		// The import line in the scratch file shows up as a reference and
		// must be dropped; real workspace usages stay.
		return json.RawMessage("[" +
			locationJSON(path, 1, 4) + "," +
			locationJSON(filepath.Join(root, "main.py"), 12, 8) +
			"]"), nil
	}

	refs, err := New(q).ReferencesByFQN(context.Background(), "os.path", "join")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, filepath.Join(root, "main.py"), refs[0].Path)
	assert.Empty(t, scratchLeftovers(t, root))
}

func TestSearchSymbolsFiltersAndNamesKinds(t *testing.T) {
	q := &stubQuerier{root: "/work"}
	q.workspaceFn = func(query string) (json.RawMessage, error) {
		assert.Equal(t, "Calculator", query)
		return json.RawMessage(`[
			{"name":"Calculator","kind":5,"containerName":"math_utils","location":` + locationJSON("/work/math_utils.py", 14, 6) + `},
			{"name":"Calculator","kind":5,"location":` + locationJSON("/work/.venv/lib/python3.11/site-packages/lib/calc.py", 3, 0) + `}
		]`), nil
	}

	syms, err := New(q).SearchSymbols(context.Background(), "Calculator")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Class", syms[0].Kind)
	assert.Equal(t, "math_utils", syms[0].Container)
	assert.Equal(t, Location{Path: "/work/math_utils.py", Line: 14, Character: 6}, syms[0].Location)
}

func TestFileSymbolsFlattensHierarchy(t *testing.T) {
	q := &stubQuerier{root: "/work"}
	q.documentFn = func(path string) (json.RawMessage, error) {
		return json.RawMessage(`[
			{"name":"Calculator","kind":5,
			 "range":{"start":{"line":14,"character":0},"end":{"line":30,"character":0}},
			 "selectionRange":{"start":{"line":14,"character":6},"end":{"line":14,"character":16}},
			 "children":[
				{"name":"add","kind":6,
				 "range":{"start":{"line":20,"character":4},"end":{"line":23,"character":0}},
				 "selectionRange":{"start":{"line":20,"character":8},"end":{"line":20,"character":11}}}
			 ]}
		]`), nil
	}

	syms, err := New(q).FileSymbols(context.Background(), "/work/math_utils.py")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "Calculator", syms[0].Name)
	assert.Equal(t, uint32(14), syms[0].Location.Line)
	assert.Equal(t, "add", syms[1].Name)
	assert.Equal(t, "Method", syms[1].Kind)
	assert.Equal(t, "Calculator", syms[1].Container)
	assert.Equal(t, "/work/math_utils.py", syms[1].Location.Path)
}

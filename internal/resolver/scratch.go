package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ScratchPrefix marks synthetic source files written into the workspace
// root. A crash between creation and removal can leak one; the prefix keeps
// leftovers identifiable for cleanup.
const ScratchPrefix = ".repograph-scratch-"

// ErrEmptyModule rejects an FQN query with an empty module name before any
// subprocess interaction.
var ErrEmptyModule = errors.New("module name must not be empty")

// ScratchError indicates the synthetic source file could not be written or
// removed.
type ScratchError struct {
	Op   string
	Path string
	Err  error
}

func (e *ScratchError) Error() string {
	return fmt.Sprintf("scratch %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScratchError) Unwrap() error { return e.Err }

// scratchFile is a transient source snippet plus the position inside it that
// points at the symbol of interest.
type scratchFile struct {
	path       string
	content    string
	targetLine uint32
	targetChar uint32
}

// buildScratch synthesizes the snippet for a module plus optional dotted
// qualifier. Without a qualifier the snippet is a bare import and the target
// sits on the module name token; with one, an aliased import followed by an
// attribute chain, targeting the final attribute.
func buildScratch(root, module, qualpath string) *scratchFile {
	name := ScratchPrefix + uuid.NewString() + ".py"
	sc := &scratchFile{path: filepath.Join(root, name)}

	if qualpath == "" {
		sc.content = "import " + module + "\n"
		sc.targetLine = 0
		sc.targetChar = uint32(len("import "))
		return sc
	}

	access := "__m." + qualpath
	sc.content = "import " + module + " as __m\n" + access + "\n"
	sc.targetLine = 1
	sc.targetChar = uint32(len(access) - 1)
	return sc
}

// withScratch runs fn against a freshly written scratch file and guarantees
// the file is removed on every exit path. The uuid filename keeps concurrent
// resolutions from ever touching each other's files.
func (r *Resolver) withScratch(ctx context.Context, module, qualpath string, fn func(sc *scratchFile) error) error {
	if module == "" {
		return ErrEmptyModule
	}

	sc := buildScratch(r.root, module, qualpath)
	if err := os.WriteFile(sc.path, []byte(sc.content), 0o644); err != nil {
		return &ScratchError{Op: "write", Path: sc.path, Err: err}
	}
	defer func() {
		if err := os.Remove(sc.path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("failed to remove scratch file %s: %v", sc.path, err)
		}
	}()

	if err := r.q.DidOpen(ctx, sc.path, sc.content); err != nil {
		return err
	}
	defer func() {
		if err := r.q.DidClose(ctx, sc.path); err != nil {
			r.logger.Debug("didClose for scratch file failed: %v", err)
		}
	}()

	return fn(sc)
}

// DefinitionByFQN resolves the definition of module[.qualpath] even when the
// symbol appears nowhere in the workspace, by querying a position inside
// synthesized source. The scratch file's own lines are excluded from
// results.
func (r *Resolver) DefinitionByFQN(ctx context.Context, module, qualpath string, wantHover bool) (*Definition, error) {
	var def *Definition
	err := r.withScratch(ctx, module, qualpath, func(sc *scratchFile) error {
		d, err := r.definitionAnywhere(ctx, sc.path, sc.targetLine, sc.targetChar, wantHover, sc.path)
		def = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// ReferencesByFQN resolves workspace usage sites of module[.qualpath]. The
// reference that exists only because of the injected scratch source is
// excluded.
func (r *Resolver) ReferencesByFQN(ctx context.Context, module, qualpath string) ([]Reference, error) {
	var refs []Reference
	err := r.withScratch(ctx, module, qualpath, func(sc *scratchFile) error {
		rs, err := r.references(ctx, sc.path, sc.targetLine, sc.targetChar, sc.path)
		refs = rs
		return err
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// definitionAnywhere is the FQN variant of definition resolution: the target
// symbol usually lives in a dependency tree (that is the point of the
// query), so only the scratch file itself is excluded.
func (r *Resolver) definitionAnywhere(ctx context.Context, path string, line, character uint32, wantHover bool, exclude string) (*Definition, error) {
	raw, err := r.q.Definition(ctx, path, line, character)
	if err != nil {
		return nil, queryError(err)
	}

	var locs []Location
	for _, loc := range decodeLocations(raw) {
		if sameFile(loc.Path, exclude) {
			continue
		}
		locs = append(locs, loc)
	}
	if len(locs) == 0 {
		return nil, nil
	}

	def := &Definition{Location: locs[0]}
	if wantHover {
		if hoverRaw, err := r.q.Hover(ctx, path, line, character); err == nil {
			def.Hover = flattenHover(hoverRaw)
		}
	}
	return def, nil
}

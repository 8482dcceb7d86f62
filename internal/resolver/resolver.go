// Package resolver turns LSP definition/reference/hover queries into exact
// workspace locations, including for symbols that never appear in any
// workspace file (resolved through synthesized scratch source).
package resolver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/common"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/transport"
)

// Location is a resolved position: absolute file path plus zero-based line
// and character. Immutable once constructed.
type Location struct {
	Path      string `json:"path"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Definition is a resolved definition site with optional hover text.
type Definition struct {
	Location
	Hover string `json:"hover,omitempty"`
}

// Reference is a resolved usage site.
type Reference = Location

// Querier is the session surface the resolver needs. *session.Session
// satisfies it.
type Querier interface {
	Definition(ctx context.Context, path string, line, character uint32) (json.RawMessage, error)
	References(ctx context.Context, path string, line, character uint32) (json.RawMessage, error)
	Hover(ctx context.Context, path string, line, character uint32) (json.RawMessage, error)
	DocumentSymbols(ctx context.Context, path string) (json.RawMessage, error)
	WorkspaceSymbols(ctx context.Context, query string) (json.RawMessage, error)
	DidOpen(ctx context.Context, path, text string) error
	DidClose(ctx context.Context, path string) error
	WorkspaceRoot() string
}

// Resolver resolves definitions and references through one session.
type Resolver struct {
	q      Querier
	root   string
	logger *common.SafeLogger
}

// New creates a resolver bound to the given session.
func New(q Querier) *Resolver {
	return &Resolver{
		q:      q,
		root:   q.WorkspaceRoot(),
		logger: common.LSPLogger,
	}
}

// Definition resolves the definition of the symbol at a zero-based position.
// Results pointing into dependency trees are excluded; the first remaining
// candidate wins. Returns nil when nothing resolves. Hover lookup failures
// are never fatal to the definition result.
func (r *Resolver) Definition(ctx context.Context, path string, line, character uint32, wantHover bool) (*Definition, error) {
	return r.definition(ctx, path, line, character, wantHover, "")
}

func (r *Resolver) definition(ctx context.Context, path string, line, character uint32, wantHover bool, exclude string) (*Definition, error) {
	raw, err := r.q.Definition(ctx, path, line, character)
	if err != nil {
		return nil, queryError(err)
	}

	locs := filterLocations(decodeLocations(raw), exclude)
	if len(locs) == 0 {
		return nil, nil
	}

	def := &Definition{Location: locs[0]}
	if wantHover {
		if hoverRaw, err := r.q.Hover(ctx, path, line, character); err == nil {
			def.Hover = flattenHover(hoverRaw)
		} else {
			r.logger.Debug("hover failed at %s:%d:%d: %v", path, line, character, err)
		}
	}
	return def, nil
}

// References resolves all usage sites of the symbol at a zero-based
// position. Dependency-tree results are excluded and duplicates on
// (path, line, character) are removed, preserving server order.
func (r *Resolver) References(ctx context.Context, path string, line, character uint32) ([]Reference, error) {
	return r.references(ctx, path, line, character, "")
}

func (r *Resolver) references(ctx context.Context, path string, line, character uint32, exclude string) ([]Reference, error) {
	raw, err := r.q.References(ctx, path, line, character)
	if err != nil {
		return nil, queryError(err)
	}
	return dedupe(filterLocations(decodeLocations(raw), exclude)), nil
}

// queryError translates per-query protocol errors into a none result;
// timeouts and transport failures propagate to the caller.
func queryError(err error) error {
	var perr *transport.ProtocolError
	if errors.As(err, &perr) {
		return nil
	}
	return err
}

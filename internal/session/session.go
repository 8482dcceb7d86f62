// Package session drives the LSP lifecycle over a transport client:
// initialize handshake, capability validation, typed feature requests, and
// graceful shutdown.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/common"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/protocol"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/transport"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/version"
)

// DefaultRequestTimeout bounds each request when the config does not set one.
const DefaultRequestTimeout = 30 * time.Second

// State tracks the session lifecycle. Queries are only legal in StateReady.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateShuttingDown
	StateClosed
)

// ErrSessionClosed is returned for any query on a session that is not ready.
var ErrSessionClosed = errors.New("session is not ready")

// HandshakeError indicates the initialize response lacked a capability this
// client depends on. The session must not be used for queries.
type HandshakeError struct {
	Missing string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed: server does not advertise %s", e.Missing)
}

// Config describes a workspace session.
type Config struct {
	// Command and Args launch the language server, e.g.
	// "jedi-language-server" or "pyright-langserver --stdio".
	Command string
	Args    []string

	// WorkspaceRoot is the absolute path of the workspace. One session
	// serves exactly one workspace.
	WorkspaceRoot string

	// RequestTimeout bounds each individual request.
	RequestTimeout time.Duration

	// InitializationOptions are passed through to the server verbatim.
	InitializationOptions map[string]interface{}
}

// Session is an initialized connection to one language server for one
// workspace. Create with Connect, release with Close; it is not reusable
// after Close.
type Session struct {
	client *transport.Client
	config Config
	logger *common.SafeLogger

	mu    sync.Mutex
	state State
}

// Connect launches the server process and performs the full handshake. On
// any failure the subprocess is torn down before returning.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	client := transport.NewClient(transport.Config{
		Command:    cfg.Command,
		Args:       cfg.Args,
		WorkingDir: cfg.WorkspaceRoot,
	})
	return connect(ctx, client, cfg, true)
}

// ConnectWithClient performs the handshake over an already-constructed
// transport client. Used by tests and by callers supplying a custom client.
func ConnectWithClient(ctx context.Context, client *transport.Client, cfg Config) (*Session, error) {
	return connect(ctx, client, cfg, false)
}

func connect(ctx context.Context, client *transport.Client, cfg Config, start bool) (*Session, error) {
	root, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace root %q: %w", cfg.WorkspaceRoot, err)
	}
	cfg.WorkspaceRoot = root
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Session{
		client: client,
		config: cfg,
		logger: common.LSPLogger,
		state:  StateUninitialized,
	}

	// Handlers must be in place before initialize goes out: the server may
	// start pushing progress and diagnostics the moment it responds.
	s.registerDefaultHandlers()

	if start {
		if err := client.Start(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.initialize(ctx); err != nil {
		_ = client.Stop()
		return nil, err
	}
	return s, nil
}

func (s *Session) initialize(ctx context.Context) error {
	s.setState(StateInitializing)

	initParams := map[string]interface{}{
		"processId": os.Getpid(),
		"clientInfo": map[string]interface{}{
			"name":    "lsp-repograph",
			"version": version.GetVersion(),
		},
		"rootUri":  string(uri.File(s.config.WorkspaceRoot)),
		"rootPath": s.config.WorkspaceRoot,
		"workspaceFolders": []map[string]interface{}{
			{
				"uri":  string(uri.File(s.config.WorkspaceRoot)),
				"name": filepath.Base(s.config.WorkspaceRoot),
			},
		},
		"initializationOptions": s.config.InitializationOptions,
		"capabilities": map[string]interface{}{
			"workspace": map[string]interface{}{
				"symbol":           map[string]interface{}{"dynamicRegistration": true},
				"workspaceFolders": true,
				"configuration":    true,
			},
			"textDocument": map[string]interface{}{
				"synchronization": map[string]interface{}{
					"dynamicRegistration": true,
					"didSave":             true,
				},
				"hover": map[string]interface{}{
					"dynamicRegistration": true,
					"contentFormat":       []string{"markdown", "plaintext"},
				},
				"definition": map[string]interface{}{
					"dynamicRegistration": true,
					"linkSupport":         true,
				},
				"references": map[string]interface{}{
					"dynamicRegistration": true,
				},
				"documentSymbol": map[string]interface{}{
					"dynamicRegistration":               true,
					"hierarchicalDocumentSymbolSupport": true,
				},
				"publishDiagnostics": map[string]interface{}{
					"relatedInformation": true,
				},
			},
		},
		"trace": "off",
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	result, err := s.client.SendRequest(reqCtx, protocol.MethodInitialize, initParams)
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	if err := validateCapabilities(result); err != nil {
		return err
	}

	if err := s.client.SendNotification(ctx, protocol.MethodInitialized, map[string]interface{}{}); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	s.setState(StateReady)
	s.logger.Info("session ready for workspace %s", s.config.WorkspaceRoot)
	return nil
}

// validateCapabilities checks the initialize result for the providers this
// client cannot work without. Providers may be advertised as booleans or as
// option objects, so presence is checked on the raw JSON.
func validateCapabilities(result json.RawMessage) error {
	var initResult struct {
		Capabilities struct {
			DefinitionProvider json.RawMessage `json:"definitionProvider"`
			ReferencesProvider json.RawMessage `json:"referencesProvider"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &initResult); err != nil {
		return &HandshakeError{Missing: "a parseable capabilities object"}
	}

	if !providerEnabled(initResult.Capabilities.DefinitionProvider) {
		return &HandshakeError{Missing: "definitionProvider"}
	}
	if !providerEnabled(initResult.Capabilities.ReferencesProvider) {
		return &HandshakeError{Missing: "referencesProvider"}
	}
	return nil
}

func providerEnabled(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false":
		return false
	}
	return true
}

// WorkspaceRoot returns the absolute workspace root this session serves.
func (s *Session) WorkspaceRoot() string {
	return s.config.WorkspaceRoot
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) ensureReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrSessionClosed
	}
	return nil
}

// request issues a feature request with the session's per-request timeout.
func (s *Session) request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	return s.client.SendRequest(reqCtx, method, params)
}

// Definition issues textDocument/definition at a zero-based position.
func (s *Session) Definition(ctx context.Context, path string, line, character uint32) (json.RawMessage, error) {
	return s.request(ctx, protocol.MethodTextDocumentDefinition, lsp.DefinitionParams{
		TextDocumentPositionParams: positionParams(path, line, character),
	})
}

// References issues textDocument/references at a zero-based position,
// including the declaration itself.
func (s *Session) References(ctx context.Context, path string, line, character uint32) (json.RawMessage, error) {
	return s.request(ctx, protocol.MethodTextDocumentReferences, lsp.ReferenceParams{
		TextDocumentPositionParams: positionParams(path, line, character),
		Context:                    lsp.ReferenceContext{IncludeDeclaration: true},
	})
}

// Hover issues textDocument/hover at a zero-based position.
func (s *Session) Hover(ctx context.Context, path string, line, character uint32) (json.RawMessage, error) {
	return s.request(ctx, protocol.MethodTextDocumentHover, lsp.HoverParams{
		TextDocumentPositionParams: positionParams(path, line, character),
	})
}

// DocumentSymbols issues textDocument/documentSymbol for a file.
func (s *Session) DocumentSymbols(ctx context.Context, path string) (json.RawMessage, error) {
	return s.request(ctx, protocol.MethodTextDocumentDocumentSymbol, lsp.DocumentSymbolParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri.File(path)},
	})
}

// WorkspaceSymbols issues workspace/symbol with the given query.
func (s *Session) WorkspaceSymbols(ctx context.Context, query string) (json.RawMessage, error) {
	return s.request(ctx, protocol.MethodWorkspaceSymbol, lsp.WorkspaceSymbolParams{Query: query})
}

// DidOpen announces a document and its content to the server.
func (s *Session) DidOpen(ctx context.Context, path, text string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	return s.client.SendNotification(ctx, protocol.MethodTextDocumentDidOpen, lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:        uri.File(path),
			LanguageID: lsp.PythonLanguage,
			Version:    1,
			Text:       text,
		},
	})
}

// DidClose retracts a previously opened document.
func (s *Session) DidClose(ctx context.Context, path string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	return s.client.SendNotification(ctx, protocol.MethodTextDocumentDidClose, lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri.File(path)},
	})
}

func positionParams(path string, line, character uint32) lsp.TextDocumentPositionParams {
	return lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri.File(path)},
		Position:     lsp.Position{Line: line, Character: character},
	}
}

// Close performs the two-step shutdown sequence (shutdown request, exit
// notification) and then terminates the subprocess. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateShuttingDown
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	if _, err := s.client.SendRequest(ctx, protocol.MethodShutdown, nil); err != nil {
		s.logger.Warn("shutdown request failed: %v", err)
	}
	if err := s.client.SendNotification(ctx, protocol.MethodExit, nil); err != nil {
		s.logger.Warn("exit notification failed: %v", err)
	}

	err := s.client.Stop()
	s.setState(StateClosed)
	return err
}

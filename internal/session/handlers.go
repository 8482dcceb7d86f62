package session

import (
	"encoding/json"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/protocol"
)

// registerDefaultHandlers installs handlers for the server-to-client traffic
// a compliant server may emit at any point after initialize. Notifications
// are drained (logged at most); server requests get the trivial reply they
// need so the server never stalls.
func (s *Session) registerDefaultHandlers() {
	s.client.RegisterHandler(protocol.MethodWindowLogMessage, func(params json.RawMessage) (interface{}, error) {
		var p struct {
			Type    int    `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &p); err == nil {
			s.logger.Debug("server log: %s", p.Message)
		}
		return nil, nil
	})

	s.client.RegisterHandler(protocol.MethodWindowShowMessage, func(params json.RawMessage) (interface{}, error) {
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &p); err == nil {
			s.logger.Info("server message: %s", p.Message)
		}
		return nil, nil
	})

	s.client.RegisterHandler(protocol.MethodProgress, func(json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	s.client.RegisterHandler(protocol.MethodPublishDiagnostics, func(json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	// Dynamic capability registration is acknowledged but otherwise ignored:
	// the capabilities this client needs are validated at handshake time.
	s.client.RegisterHandler(protocol.MethodClientRegisterCapability, func(json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	s.client.RegisterHandler(protocol.MethodClientUnregisterCapability, func(json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	// workspace/configuration expects one entry per requested item.
	s.client.RegisterHandler(protocol.MethodWorkspaceConfiguration, func(params json.RawMessage) (interface{}, error) {
		var p struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return []interface{}{}, nil
		}
		return make([]interface{}, len(p.Items)), nil
	})
}

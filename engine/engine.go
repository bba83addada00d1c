// Package engine defines the narrow capability interface through which
// WhastapWeb talks to the messaging-protocol engine. The engine owns the
// actual wire protocol, encryption and low-level session state; everything
// above it sees only this contract.
package engine

import (
	"context"
	"encoding/json"
)

// SessionInfo is the engine's view of one named session.
type SessionInfo struct {
	Name string `json:"name"`
	// User is the authenticated remote identity attached to the session.
	// Empty until the pairing challenge has been completed.
	User string `json:"user,omitempty"`
}

// Paired reports whether an authenticated identity is attached.
func (s SessionInfo) Paired() bool {
	return s.User != ""
}

// StartHandlers carries the callbacks the engine invokes while a session
// start attempt progresses. The engine may invoke each callback zero or
// more times over the session's lifetime; callers that only care about the
// first event must de-duplicate themselves.
type StartHandlers struct {
	// OnConnected fires when an authenticated identity attaches.
	OnConnected func()
	// OnQRUpdated fires each time the engine issues or refreshes a
	// pairing challenge.
	OnQRUpdated func(challenge string)
}

// Message is the payload for one outbound send through a session.
type Message struct {
	SessionID string `json:"session_id"`
	To        string `json:"to"`
	Text      string `json:"text,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// Engine is the capability contract implemented by protocol engine adapters.
// Delivery results are passed through verbatim as raw JSON; the engine's
// acknowledgment shape is not interpreted by this process.
type Engine interface {
	// Session reports the engine's state for one named session.
	Session(ctx context.Context, name string) (SessionInfo, bool, error)

	// Sessions lists every live session the engine knows about.
	Sessions(ctx context.Context) ([]SessionInfo, error)

	// StartSession begins pairing for a new named session. The call
	// returns once the engine has accepted the attempt; progress is
	// reported through the handlers.
	StartSession(ctx context.Context, name string, h StartHandlers) error

	// DeleteSession tears down a session. Deleting an absent session is
	// not an error.
	DeleteSession(ctx context.Context, name string) error

	SendText(ctx context.Context, msg Message) (json.RawMessage, error)
	SendImage(ctx context.Context, msg Message) (json.RawMessage, error)
	SendDocument(ctx context.Context, msg Message) (json.RawMessage, error)
	SendVideo(ctx context.Context, msg Message) (json.RawMessage, error)
}

// HealthReporter is optionally implemented by adapters that can report
// transport-level connectivity.
type HealthReporter interface {
	Connected() bool
}

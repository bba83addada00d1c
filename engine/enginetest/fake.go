// Package enginetest provides a scripted in-memory engine for tests.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/piyushkb/WhastapWeb/engine"
)

// Fake is an in-memory engine.Engine whose start behavior is scripted per
// test. Zero value is not usable; construct with New.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]engine.SessionInfo
	handlers map[string]engine.StartHandlers

	// QROnStart, when non-empty, is emitted through OnQRUpdated during
	// StartSession. ConnectOnStart emits OnConnected instead. When both
	// are set the QR fires first, mirroring an engine that issues a
	// challenge and then sees it scanned immediately.
	QROnStart      string
	ConnectOnStart bool

	// ConnectedUser is the identity attached when a session connects.
	ConnectedUser string

	// StartErr, DeleteErr and SendErr force the corresponding calls to fail.
	StartErr  error
	DeleteErr error
	SendErr   error

	// Sent records every outbound message in dispatch order.
	Sent []SentMessage

	deleteCalls int
}

// SentMessage is one recorded outbound dispatch.
type SentMessage struct {
	Kind string
	Msg  engine.Message
}

// New creates an empty fake engine.
func New() *Fake {
	return &Fake{
		sessions:      make(map[string]engine.SessionInfo),
		handlers:      make(map[string]engine.StartHandlers),
		ConnectedUser: "12345@test",
	}
}

// Session implements engine.Engine.
func (f *Fake) Session(_ context.Context, name string) (engine.SessionInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.sessions[name]
	return info, ok, nil
}

// Sessions implements engine.Engine.
func (f *Fake) Sessions(_ context.Context) ([]engine.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engine.SessionInfo, 0, len(f.sessions))
	for _, info := range f.sessions {
		out = append(out, info)
	}
	return out, nil
}

// StartSession implements engine.Engine. Scripted events fire synchronously
// before the call returns so tests stay deterministic.
func (f *Fake) StartSession(_ context.Context, name string, h engine.StartHandlers) error {
	f.mu.Lock()
	if f.StartErr != nil {
		err := f.StartErr
		f.mu.Unlock()
		return err
	}
	f.sessions[name] = engine.SessionInfo{Name: name}
	f.handlers[name] = h
	qr := f.QROnStart
	connect := f.ConnectOnStart
	f.mu.Unlock()

	if qr != "" && h.OnQRUpdated != nil {
		h.OnQRUpdated(qr)
	}
	if connect {
		f.attachUser(name)
		if h.OnConnected != nil {
			h.OnConnected()
		}
	}
	return nil
}

// DeleteSession implements engine.Engine. Deleting an absent session succeeds.
func (f *Fake) DeleteSession(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.sessions, name)
	delete(f.handlers, name)
	return nil
}

// SendText implements engine.Engine.
func (f *Fake) SendText(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return f.send(ctx, "text", msg)
}

// SendImage implements engine.Engine.
func (f *Fake) SendImage(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return f.send(ctx, "image", msg)
}

// SendDocument implements engine.Engine.
func (f *Fake) SendDocument(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return f.send(ctx, "document", msg)
}

// SendVideo implements engine.Engine.
func (f *Fake) SendVideo(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return f.send(ctx, "video", msg)
}

func (f *Fake) send(_ context.Context, kind string, msg engine.Message) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.Sent = append(f.Sent, SentMessage{Kind: kind, Msg: msg})
	result := fmt.Sprintf(`{"status":"sent","id":%q,"to":%q}`, uuid.NewString(), msg.To)
	return json.RawMessage(result), nil
}

// Connected implements engine.HealthReporter.
func (f *Fake) Connected() bool {
	return true
}

// EmitQR fires a later pairing challenge for an already-started session,
// as the engine does when a challenge expires and is reissued.
func (f *Fake) EmitQR(name, challenge string) {
	f.mu.Lock()
	h, ok := f.handlers[name]
	f.mu.Unlock()
	if ok && h.OnQRUpdated != nil {
		h.OnQRUpdated(challenge)
	}
}

// EmitConnected fires a later identity attachment for an already-started
// session.
func (f *Fake) EmitConnected(name string) {
	f.mu.Lock()
	h, ok := f.handlers[name]
	f.mu.Unlock()
	if !ok {
		return
	}
	f.attachUser(name)
	if h.OnConnected != nil {
		h.OnConnected()
	}
}

// Seed installs a session directly, bypassing the pairing flow.
func (f *Fake) Seed(name, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[name] = engine.SessionInfo{Name: name, User: user}
}

// DeleteCalls reports how many times DeleteSession was invoked.
func (f *Fake) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func (f *Fake) attachUser(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.sessions[name]; ok {
		info.User = f.ConnectedUser
		f.sessions[name] = info
	}
}

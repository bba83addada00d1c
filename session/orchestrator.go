// Package session implements the session lifecycle orchestrator: it owns
// the registry of session names, drives the start/pair/logout state machine
// and resolves the asynchronous pairing challenge into a synchronous start
// result. Session state itself lives in the protocol engine; the registry
// holds only names and lifecycle status, and is reconciled against the
// engine on every list.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/metric"
)

// State is the lifecycle state of one session name.
type State int

const (
	// StateAbsent means no entry exists for the name.
	StateAbsent State = iota
	// StateStarting means a start was requested and no terminal event
	// has been observed yet.
	StateStarting
	// StateAwaitingPairing means a challenge has been issued and no
	// identity is attached yet.
	StateAwaitingPairing
	// StateConnected means an authenticated identity is attached.
	StateConnected
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateAwaitingPairing:
		return "awaiting_pairing"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status is the externally visible state of one session name. "connected"
// denotes registry presence; IsScanned is the authentication signal.
type Status struct {
	Status    string `json:"status"`
	IsScanned bool   `json:"isScanned"`
}

// Entry is one row of the session list.
type Entry struct {
	Session   string `json:"session"`
	Status    string `json:"status"`
	IsScanned bool   `json:"isScanned"`
}

// StartResult is the terminal outcome of one start attempt. Exactly one of
// the two shapes occurs: a challenge (QR non-empty) or a connection
// (Connected true, QR empty).
type StartResult struct {
	QR        string
	Connected bool
}

// Orchestrator owns the session name registry and delegates session state
// to the engine.
type Orchestrator struct {
	eng          engine.Engine
	logger       *slog.Logger
	metrics      *metric.Metrics
	startTimeout time.Duration

	mu     sync.Mutex
	states map[string]State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithStartTimeout bounds the start wait. Zero keeps the wait unbounded.
func WithStartTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.startTimeout = d
	}
}

// New creates an orchestrator over the given engine.
func New(eng engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eng:    eng,
		logger: slog.Default(),
		states: make(map[string]State),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// startOutcome is the one-shot result slot of a start attempt.
type startOutcome struct {
	qr        string
	connected bool
}

// Start begins pairing for a new session and blocks until the engine
// reports either a pairing challenge or a connected identity, whichever
// fires first. Later events for the same attempt only advance registry
// state; they never re-resolve the call.
//
// The registry existence check and the transition into StateStarting happen
// as one atomic step, so two concurrent starts for the same name cannot
// both observe StateAbsent.
func (o *Orchestrator) Start(ctx context.Context, name string) (StartResult, error) {
	if name == "" {
		return StartResult{}, errors.WrapInvalid(errors.ErrSessionNameRequired, "Orchestrator", "Start", "name check")
	}

	o.mu.Lock()
	if st := o.states[name]; st != StateAbsent {
		o.mu.Unlock()
		o.metrics.RecordSessionStart("conflict")
		return StartResult{}, errors.WrapConflict(errors.ErrSessionExists, "Orchestrator", "Start", "registry claim")
	}
	o.states[name] = StateStarting
	o.mu.Unlock()

	// The registry claim is tentative until the engine view agrees: after
	// a restart the registry is empty while the engine may still hold the
	// session.
	if _, exists, err := o.eng.Session(ctx, name); err != nil {
		o.clear(name)
		o.metrics.RecordSessionStart("error")
		return StartResult{}, errors.WrapEngine(err, "Orchestrator", "Start", "engine session lookup")
	} else if exists {
		o.clear(name)
		o.metrics.RecordSessionStart("conflict")
		return StartResult{}, errors.WrapConflict(errors.ErrSessionExists, "Orchestrator", "Start", "engine claim")
	}

	// One-shot resolution: whichever callback fires first delivers the
	// outcome, every later firing only advances registry state.
	resolved := make(chan startOutcome, 1)
	var once sync.Once
	handlers := engine.StartHandlers{
		OnConnected: func() {
			o.setConnected(name)
			once.Do(func() { resolved <- startOutcome{connected: true} })
		},
		OnQRUpdated: func(challenge string) {
			o.setAwaitingPairing(name)
			once.Do(func() { resolved <- startOutcome{qr: challenge} })
		},
	}

	if err := o.eng.StartSession(ctx, name, handlers); err != nil {
		o.clear(name)
		o.metrics.RecordSessionStart("error")
		return StartResult{}, errors.WrapEngine(err, "Orchestrator", "Start", "engine start")
	}

	var timeout <-chan time.Time
	if o.startTimeout > 0 {
		timer := time.NewTimer(o.startTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-resolved:
		if out.connected {
			o.logger.Info("session connected during start", "session", name)
			o.metrics.RecordSessionStart("connected")
			return StartResult{Connected: true}, nil
		}
		o.logger.Info("pairing challenge issued", "session", name)
		o.metrics.RecordSessionStart("qr")
		return StartResult{QR: out.qr}, nil

	case <-timeout:
		o.teardown(name)
		o.metrics.RecordSessionStart("timeout")
		return StartResult{}, errors.WrapTimeout(errors.ErrStartTimeout, "Orchestrator", "Start", "pairing wait")

	case <-ctx.Done():
		o.teardown(name)
		o.metrics.RecordSessionStart("error")
		if ctx.Err() == context.DeadlineExceeded {
			return StartResult{}, errors.WrapTimeout(ctx.Err(), "Orchestrator", "Start", "pairing wait")
		}
		return StartResult{}, errors.WrapEngine(ctx.Err(), "Orchestrator", "Start", "pairing wait")
	}
}

// Status reports the state of one session name. Absent sessions, and
// sessions the engine cannot currently be asked about, report not connected.
func (o *Orchestrator) Status(ctx context.Context, name string) Status {
	info, exists, err := o.eng.Session(ctx, name)
	if err != nil {
		o.logger.Warn("engine session lookup failed", "session", name, "error", err)
		return Status{Status: "not connected", IsScanned: false}
	}
	if !exists {
		return Status{Status: "not connected", IsScanned: false}
	}
	return Status{Status: "connected", IsScanned: info.Paired()}
}

// List returns the engine's current session set and reconciles the
// registry against it: names the engine dropped leave the registry, names
// it reports that the registry lost are re-adopted.
func (o *Orchestrator) List(ctx context.Context) ([]Entry, error) {
	infos, err := o.eng.Sessions(ctx)
	if err != nil {
		return nil, errors.WrapEngine(err, "Orchestrator", "List", "engine session list")
	}

	o.mu.Lock()
	live := make(map[string]bool, len(infos))
	for _, info := range infos {
		live[info.Name] = true
		if o.states[info.Name] == StateAbsent {
			if info.Paired() {
				o.states[info.Name] = StateConnected
			} else {
				o.states[info.Name] = StateAwaitingPairing
			}
		}
	}
	for name, st := range o.states {
		// A name still starting has no engine entry yet; leave it.
		if !live[name] && st != StateStarting {
			delete(o.states, name)
		}
	}
	o.mu.Unlock()

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Session:   info.Name,
			Status:    "connected",
			IsScanned: info.Paired(),
		})
	}
	o.metrics.RecordSessionsActive(len(entries))
	return entries, nil
}

// Logout tears down a session. Deleting an absent session is not an error,
// so logout is idempotent.
func (o *Orchestrator) Logout(ctx context.Context, name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrSessionNameRequired, "Orchestrator", "Logout", "name check")
	}

	if err := o.eng.DeleteSession(ctx, name); err != nil {
		return errors.WrapEngine(err, "Orchestrator", "Logout", "engine delete")
	}

	o.clear(name)
	o.logger.Info("session logged out", "session", name)
	return nil
}

// Exists reports whether a session name resolves to a live engine session.
func (o *Orchestrator) Exists(ctx context.Context, name string) (bool, error) {
	_, exists, err := o.eng.Session(ctx, name)
	if err != nil {
		return false, errors.WrapEngine(err, "Orchestrator", "Exists", "engine session lookup")
	}
	return exists, nil
}

// StateOf returns the registry state for one name.
func (o *Orchestrator) StateOf(name string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[name]
}

func (o *Orchestrator) setConnected(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.states[name] != StateAbsent {
		o.states[name] = StateConnected
	}
}

// setAwaitingPairing advances Starting to AwaitingPairing. A refreshed
// challenge for an already-connected session never regresses the state.
func (o *Orchestrator) setAwaitingPairing(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st := o.states[name]; st == StateStarting || st == StateAwaitingPairing {
		o.states[name] = StateAwaitingPairing
	}
}

func (o *Orchestrator) clear(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.states, name)
}

// teardown abandons a start attempt: the engine-side session is deleted so
// a later start can claim the name again.
func (o *Orchestrator) teardown(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.eng.DeleteSession(ctx, name); err != nil {
		o.logger.Warn("failed to tear down abandoned start", "session", name, "error", err)
	}
	o.clear(name)
}

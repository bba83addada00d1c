// Package natsengine implements the engine capability contract against a
// protocol engine sidecar reachable over NATS. Session queries, deletes and
// outbound sends use request/reply; start attempts additionally subscribe to
// the engine's per-session event subject, which delivers pairing challenges
// and connection notifications.
package natsengine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/pkg/retry"
)

// Subjects of the engine sidecar's request/reply API.
const (
	subjSessionGet    = "engine.session.get"
	subjSessionList   = "engine.session.list"
	subjSessionStart  = "engine.session.start"
	subjSessionDelete = "engine.session.delete"
	subjMessageText   = "engine.message.text"
	subjMessageImage  = "engine.message.image"
	subjMessageDoc    = "engine.message.document"
	subjMessageVideo  = "engine.message.video"

	// subjSessionEvents carries qr/connected events for one session.
	subjSessionEvents = "engine.session.events.%s"
)

// Client is a NATS-backed engine adapter.
type Client struct {
	url        string
	clientName string
	timeout    time.Duration
	retryCfg   retry.Config
	logger     *slog.Logger

	conn   *nats.Conn
	closed atomic.Bool

	// eventSubs holds the per-session event subscriptions created by
	// StartSession, keyed by session name.
	mu        sync.Mutex
	eventSubs map[string]*nats.Subscription
}

var _ engine.Engine = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout overrides the default per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientName sets the NATS connection name.
func WithClientName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.clientName = name
		}
	}
}

// WithRetry overrides the backoff applied to read-side requests.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// New creates a client for the engine sidecar at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		clientName: "whastapweb",
		timeout:    5 * time.Second,
		retryCfg:   retry.DefaultConfig(),
		logger:     slog.Default(),
		eventSubs:  make(map[string]*nats.Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the NATS connection. Reconnects are unbounded; the
// engine sidecar restarting must not take the gateway down with it.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := nats.Connect(c.url,
		nats.Name(c.clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(c.timeout),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("engine connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("engine connection restored", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return errors.WrapEngine(err, "Client", "Connect", "NATS connect")
	}
	c.conn = conn

	// RetryOnFailedConnect returns immediately; wait for the first
	// connection so startup failures surface here instead of on the
	// first request.
	deadline := time.Now().Add(c.timeout)
	for !conn.IsConnected() {
		select {
		case <-ctx.Done():
			return errors.WrapEngine(ctx.Err(), "Client", "Connect", "wait for connection")
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return errors.WrapEngine(errors.ErrEngineUnavailable, "Client", "Connect", "wait for connection")
		}
	}

	c.logger.Info("connected to engine", "url", conn.ConnectedUrl())
	return nil
}

// Close drains the connection and drops all event subscriptions.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	for name, sub := range c.eventSubs {
		_ = sub.Unsubscribe()
		delete(c.eventSubs, name)
	}
	c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
	}
}

// Connected implements engine.HealthReporter.
func (c *Client) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// reply is the envelope every engine sidecar response uses.
type reply struct {
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// request performs one JSON request/reply round trip.
func (c *Client) request(ctx context.Context, subject string, payload any) (json.RawMessage, error) {
	if c.conn == nil || !c.conn.IsConnected() {
		return nil, errors.WrapEngine(errors.ErrEngineUnavailable, "Client", "request", subject)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapEngine(err, "Client", "request", "marshal payload")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapEngine(err, "Client", "request", fmt.Sprintf("request to %s", subject))
	}

	var r reply
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		return nil, errors.WrapEngine(err, "Client", "request", "decode reply")
	}
	if r.Error != "" {
		return nil, errors.WrapEngine(fmt.Errorf("engine: %s", r.Error), "Client", "request", subject)
	}
	return r.Data, nil
}

type sessionRequest struct {
	Session string `json:"session"`
}

type getReply struct {
	Found   bool               `json:"found"`
	Session engine.SessionInfo `json:"session"`
}

// requestRead is a read-side request with backoff. These calls are
// idempotent, so a transient transport failure is retried rather than
// surfaced to the caller.
func (c *Client) requestRead(ctx context.Context, subject string, payload any) (json.RawMessage, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (json.RawMessage, error) {
		data, err := c.request(ctx, subject, payload)
		if err != nil && !transient(err) {
			return nil, retry.NonRetryable(err)
		}
		return data, err
	})
}

// transient reports whether a request failure is worth retrying. An error
// the engine itself reported is final; only transport-level failures are
// transient.
func transient(err error) bool {
	return stderrors.Is(err, nats.ErrTimeout) ||
		stderrors.Is(err, nats.ErrNoResponders) ||
		stderrors.Is(err, errors.ErrEngineUnavailable)
}

// Session implements engine.Engine.
func (c *Client) Session(ctx context.Context, name string) (engine.SessionInfo, bool, error) {
	data, err := c.requestRead(ctx, subjSessionGet, sessionRequest{Session: name})
	if err != nil {
		return engine.SessionInfo{}, false, err
	}
	var r getReply
	if err := json.Unmarshal(data, &r); err != nil {
		return engine.SessionInfo{}, false, errors.WrapEngine(err, "Client", "Session", "decode session")
	}
	return r.Session, r.Found, nil
}

// Sessions implements engine.Engine.
func (c *Client) Sessions(ctx context.Context) ([]engine.SessionInfo, error) {
	data, err := c.requestRead(ctx, subjSessionList, struct{}{})
	if err != nil {
		return nil, err
	}
	var infos []engine.SessionInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, errors.WrapEngine(err, "Client", "Sessions", "decode session list")
	}
	return infos, nil
}

// sessionEvent is one message on the per-session event subject.
type sessionEvent struct {
	Type string `json:"type"` // "qr" or "connected"
	QR   string `json:"qr,omitempty"`
	User string `json:"user,omitempty"`
}

// StartSession implements engine.Engine. The event subscription is created
// before the start request so a challenge emitted immediately cannot be
// missed; it lives until DeleteSession or Close.
func (c *Client) StartSession(ctx context.Context, name string, h engine.StartHandlers) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return errors.WrapEngine(errors.ErrEngineUnavailable, "Client", "StartSession", "connection check")
	}

	subject := fmt.Sprintf(subjSessionEvents, name)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev sessionEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Warn("dropping malformed session event", "session", name, "error", err)
			return
		}
		switch ev.Type {
		case "qr":
			if h.OnQRUpdated != nil {
				h.OnQRUpdated(ev.QR)
			}
		case "connected":
			if h.OnConnected != nil {
				h.OnConnected()
			}
		default:
			c.logger.Debug("ignoring session event", "session", name, "type", ev.Type)
		}
	})
	if err != nil {
		return errors.WrapEngine(err, "Client", "StartSession", "subscribe to session events")
	}

	c.mu.Lock()
	if old, ok := c.eventSubs[name]; ok {
		_ = old.Unsubscribe()
	}
	c.eventSubs[name] = sub
	c.mu.Unlock()

	if _, err := c.request(ctx, subjSessionStart, sessionRequest{Session: name}); err != nil {
		c.dropEventSub(name)
		return err
	}
	return nil
}

// DeleteSession implements engine.Engine.
func (c *Client) DeleteSession(ctx context.Context, name string) error {
	c.dropEventSub(name)
	_, err := c.request(ctx, subjSessionDelete, sessionRequest{Session: name})
	return err
}

func (c *Client) dropEventSub(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.eventSubs[name]; ok {
		_ = sub.Unsubscribe()
		delete(c.eventSubs, name)
	}
}

// SendText implements engine.Engine.
func (c *Client) SendText(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return c.request(ctx, subjMessageText, msg)
}

// SendImage implements engine.Engine.
func (c *Client) SendImage(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return c.request(ctx, subjMessageImage, msg)
}

// SendDocument implements engine.Engine.
func (c *Client) SendDocument(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return c.request(ctx, subjMessageDoc, msg)
}

// SendVideo implements engine.Engine.
func (c *Client) SendVideo(ctx context.Context, msg engine.Message) (json.RawMessage, error) {
	return c.request(ctx, subjMessageVideo, msg)
}

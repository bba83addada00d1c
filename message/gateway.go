package message

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/metric"
)

// SessionResolver answers whether a session name resolves to a live
// session. Satisfied by the session orchestrator.
type SessionResolver interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Gateway dispatches outbound messages through the engine. It performs no
// retries and no delivery confirmation of its own: whatever acknowledgment
// the engine yields is the result.
type Gateway struct {
	eng      engine.Engine
	sessions SessionResolver
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a message gateway over the given engine and session
// resolver.
func NewGateway(eng engine.Engine, sessions SessionResolver, opts ...Option) *Gateway {
	g := &Gateway{
		eng:      eng,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send validates the request, resolves the session and makes exactly one
// engine call. The engine's delivery result is passed through verbatim.
func (g *Gateway) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		g.metrics.RecordMessageSent(string(req.Kind), "invalid")
		return nil, err
	}

	exists, err := g.sessions.Exists(ctx, req.Session)
	if err != nil {
		g.metrics.RecordMessageSent(string(req.Kind), "error")
		return nil, err
	}
	if !exists {
		g.metrics.RecordMessageSent(string(req.Kind), "no_session")
		return nil, errors.WrapNotFound(errors.ErrSessionNotFound, "Gateway", "Send", "session lookup")
	}

	msg := engine.Message{
		SessionID: req.Session,
		To:        req.To,
		Text:      req.Text,
		MediaURL:  req.MediaURL,
		Filename:  req.Filename,
	}

	var result json.RawMessage
	switch req.Kind {
	case KindText:
		result, err = g.eng.SendText(ctx, msg)
	case KindImage:
		result, err = g.eng.SendImage(ctx, msg)
	case KindDocument:
		result, err = g.eng.SendDocument(ctx, msg)
	case KindVideo:
		result, err = g.eng.SendVideo(ctx, msg)
	default:
		// Validate already rejected unknown kinds.
		return nil, errors.WrapInvalid(fmt.Errorf("unknown message kind %q", req.Kind), "Gateway", "Send", "kind dispatch")
	}
	if err != nil {
		g.metrics.RecordMessageSent(string(req.Kind), "error")
		return nil, errors.WrapEngine(err, "Gateway", "Send", "engine dispatch")
	}

	g.logger.Debug("message dispatched", "kind", req.Kind, "session", req.Session, "to", req.To)
	g.metrics.RecordMessageSent(string(req.Kind), "ok")
	return result, nil
}

package natsengine

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piyushkb/WhastapWeb/engine"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/pkg/retry"
)

func noopHandlers() engine.StartHandlers {
	return engine.StartHandlers{
		OnConnected: func() {},
		OnQRUpdated: func(string) {},
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("nats://localhost:4222")

	assert.Equal(t, "whastapweb", c.clientName)
	assert.Equal(t, 5*time.Second, c.timeout)
	assert.NotNil(t, c.logger)
	assert.NotNil(t, c.eventSubs)
}

func TestNew_Options(t *testing.T) {
	logger := slog.Default()
	c := New("nats://localhost:4222",
		WithRequestTimeout(250*time.Millisecond),
		WithClientName("gateway-1"),
		WithLogger(logger),
	)

	assert.Equal(t, 250*time.Millisecond, c.timeout)
	assert.Equal(t, "gateway-1", c.clientName)
	assert.Same(t, logger, c.logger)
}

func TestNew_IgnoresZeroOptions(t *testing.T) {
	c := New("nats://localhost:4222",
		WithRequestTimeout(0),
		WithClientName(""),
		WithLogger(nil),
	)

	assert.Equal(t, 5*time.Second, c.timeout)
	assert.Equal(t, "whastapweb", c.clientName)
	assert.NotNil(t, c.logger)
}

func TestRequest_DisconnectedFailsAsEngineError(t *testing.T) {
	c := New("nats://localhost:4222")

	_, err := c.request(context.Background(), subjSessionList, struct{}{})
	require.Error(t, err)
	assert.True(t, errors.IsEngine(err))
}

func TestStartSession_DisconnectedFailsAsEngineError(t *testing.T) {
	c := New("nats://localhost:4222")

	err := c.StartSession(context.Background(), "acct1", noopHandlers())
	require.Error(t, err)
	assert.True(t, errors.IsEngine(err))
}

func TestSessions_DisconnectedRetriesThenFails(t *testing.T) {
	c := New("nats://localhost:4222", WithRetry(retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
	}))

	_, err := c.Sessions(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsEngine(err))
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(nats.ErrTimeout))
	assert.True(t, transient(nats.ErrNoResponders))
	assert.True(t, transient(errors.WrapEngine(errors.ErrEngineUnavailable, "Client", "request", "test")))
	assert.False(t, transient(stderrors.New("engine: session not found")))
}

func TestConnected_FalseBeforeConnect(t *testing.T) {
	c := New("nats://localhost:4222")
	assert.False(t, c.Connected())
}

func TestClose_Idempotent(t *testing.T) {
	c := New("nats://localhost:4222")
	c.Close()
	c.Close()
}

package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piyushkb/WhastapWeb/engine/enginetest"
	"github.com/piyushkb/WhastapWeb/errors"
	"github.com/piyushkb/WhastapWeb/session"
)

func TestStart_ChallengeIssued(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	res, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	assert.Equal(t, "QR123", res.QR)
	assert.False(t, res.Connected)
	assert.Equal(t, session.StateAwaitingPairing, orch.StateOf("acct1"))
}

func TestStart_ConnectedWithoutChallenge(t *testing.T) {
	eng := enginetest.New()
	eng.ConnectOnStart = true
	orch := session.New(eng)

	res, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	assert.True(t, res.Connected)
	assert.Empty(t, res.QR)
	assert.Equal(t, session.StateConnected, orch.StateOf("acct1"))
}

func TestStart_FirstEventWins(t *testing.T) {
	// Engine emits a challenge and then connects within the same attempt;
	// the call must resolve with the challenge only, while the registry
	// still advances to connected.
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	eng.ConnectOnStart = true
	orch := session.New(eng)

	res, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	assert.Equal(t, "QR123", res.QR)
	assert.False(t, res.Connected)
	assert.Equal(t, session.StateConnected, orch.StateOf("acct1"))
}

func TestStart_SecondStartConflicts(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	_, err = orch.Start(context.Background(), "acct1")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestStart_EngineSessionSurvivesRestart(t *testing.T) {
	// Fresh orchestrator (empty registry) but the engine still holds the
	// session: the engine view wins and the start conflicts.
	eng := enginetest.New()
	eng.Seed("acct1", "12345@test")
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))
}

func TestStart_ConcurrentSameName_ExactlyOneWins(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orch.Start(context.Background(), "acct1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.IsConflict(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestStart_DifferentNamesProceedIndependently(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)
	_, err = orch.Start(context.Background(), "acct2")
	require.NoError(t, err)

	assert.Equal(t, session.StateAwaitingPairing, orch.StateOf("acct1"))
	assert.Equal(t, session.StateAwaitingPairing, orch.StateOf("acct2"))
}

func TestStart_EngineFailureLeavesSessionAbsent(t *testing.T) {
	eng := enginetest.New()
	eng.StartErr = errors.ErrEngineUnavailable
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.Error(t, err)
	assert.True(t, errors.IsEngine(err))
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))

	// The name is free again once the failure is cleared.
	eng.StartErr = nil
	eng.QROnStart = "QR456"
	res, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)
	assert.Equal(t, "QR456", res.QR)
}

func TestStart_BoundedWaitTimesOut(t *testing.T) {
	// Engine never fires either callback.
	eng := enginetest.New()
	orch := session.New(eng, session.WithStartTimeout(30*time.Millisecond))

	start := time.Now()
	_, err := orch.Start(context.Background(), "acct1")
	require.Error(t, err)

	assert.True(t, errors.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
	// The abandoned attempt is torn down so the name is reusable.
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))
	assert.GreaterOrEqual(t, eng.DeleteCalls(), 1)
}

func TestStart_ContextCancellation(t *testing.T) {
	eng := enginetest.New()
	orch := session.New(eng)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Start(ctx, "acct1")
	require.Error(t, err)
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))
}

func TestStart_EmptyNameRejected(t *testing.T) {
	orch := session.New(enginetest.New())

	_, err := orch.Start(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestStatus_NeverStarted(t *testing.T) {
	orch := session.New(enginetest.New())

	st := orch.Status(context.Background(), "ghost")
	assert.Equal(t, "not connected", st.Status)
	assert.False(t, st.IsScanned)
}

func TestStatus_ChallengeOutstanding(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	// Session exists in the engine but has no identity attached yet:
	// connected, not scanned.
	st := orch.Status(context.Background(), "acct1")
	assert.Equal(t, "connected", st.Status)
	assert.False(t, st.IsScanned)
}

func TestStatus_PairedAfterLaterConnect(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	eng.EmitConnected("acct1")

	st := orch.Status(context.Background(), "acct1")
	assert.Equal(t, "connected", st.Status)
	assert.True(t, st.IsScanned)
	assert.Equal(t, session.StateConnected, orch.StateOf("acct1"))
}

func TestStatus_LaterQRRefreshDoesNotRegressConnected(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	eng.EmitConnected("acct1")
	eng.EmitQR("acct1", "QR999")

	assert.Equal(t, session.StateConnected, orch.StateOf("acct1"))
}

func TestList_ReflectsEngineState(t *testing.T) {
	eng := enginetest.New()
	eng.Seed("acct1", "12345@test")
	eng.Seed("acct2", "")
	orch := session.New(eng)

	entries, err := orch.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]bool{}
	for _, e := range entries {
		byName[e.Session] = e.IsScanned
		assert.Equal(t, "connected", e.Status)
	}
	assert.True(t, byName["acct1"])
	assert.False(t, byName["acct2"])
}

func TestList_EmptyEngine(t *testing.T) {
	orch := session.New(enginetest.New())

	entries, err := orch.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList_ReconcilesDroppedSessions(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	// Engine-initiated teardown behind the orchestrator's back.
	require.NoError(t, eng.DeleteSession(context.Background(), "acct1"))

	entries, err := orch.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))
}

func TestLogout_Idempotent(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)

	require.NoError(t, orch.Logout(context.Background(), "acct1"))
	require.NoError(t, orch.Logout(context.Background(), "acct1"))
	assert.Equal(t, session.StateAbsent, orch.StateOf("acct1"))
}

func TestLogout_EmptyNameRejected(t *testing.T) {
	orch := session.New(enginetest.New())

	err := orch.Logout(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLogout_FreesNameForRestart(t *testing.T) {
	eng := enginetest.New()
	eng.QROnStart = "QR123"
	orch := session.New(eng)

	_, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)
	require.NoError(t, orch.Logout(context.Background(), "acct1"))

	res, err := orch.Start(context.Background(), "acct1")
	require.NoError(t, err)
	assert.Equal(t, "QR123", res.QR)
}

func TestExists(t *testing.T) {
	eng := enginetest.New()
	eng.Seed("acct1", "")
	orch := session.New(eng)

	ok, err := orch.Exists(context.Background(), "acct1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orch.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", session.StateAbsent.String())
	assert.Equal(t, "starting", session.StateStarting.String())
	assert.Equal(t, "awaiting_pairing", session.StateAwaitingPairing.String())
	assert.Equal(t, "connected", session.StateConnected.String())
}

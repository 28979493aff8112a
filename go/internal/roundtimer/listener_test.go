package roundtimer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource chan Expiration

func (c chanSource) Expirations(context.Context) (<-chan Expiration, error) {
	return c, nil
}

type recordingHandler struct {
	mu    sync.Mutex
	calls []Expiration
	done  chan struct{}
	err   error
}

func (h *recordingHandler) HandleRoundExpired(_ context.Context, matchID, roundID uuid.UUID) error {
	h.mu.Lock()
	h.calls = append(h.calls, Expiration{MatchID: matchID, RoundID: roundID})
	h.mu.Unlock()
	h.done <- struct{}{}
	return h.err
}

func TestListener_DispatchesEachExpiration(t *testing.T) {
	src := make(chanSource, 4)
	h := &recordingHandler{done: make(chan struct{}, 4), err: errors.New("boom")}
	l, err := NewListener(src, h, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- l.Run(ctx) }()

	first := Expiration{MatchID: uuid.New(), RoundID: uuid.New()}
	second := Expiration{MatchID: uuid.New(), RoundID: uuid.New()}
	src <- first
	src <- second

	for i := 0; i < 2; i++ {
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler not invoked")
		}
	}

	h.mu.Lock()
	assert.ElementsMatch(t, []Expiration{first, second}, h.calls)
	h.mu.Unlock()

	close(src)
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop when source closed")
	}
}

func TestListener_MemoryTimerEndToEnd(t *testing.T) {
	timer := NewMemoryTimer(nil)
	h := &recordingHandler{done: make(chan struct{}, 1)}
	l, err := NewListener(timer, h, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	matchID, roundID := uuid.New(), uuid.New()
	require.NoError(t, timer.Start(ctx, matchID, roundID, 10*time.Millisecond))

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expired round never reached the handler")
	}
	h.mu.Lock()
	assert.Equal(t, []Expiration{{MatchID: matchID, RoundID: roundID}}, h.calls)
	h.mu.Unlock()
}

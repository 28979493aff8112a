package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBus struct {
	mock.Mock
}

func (m *mockBus) Publish(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendMatchEnded(ctx context.Context, payload MatchEndedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, FallbackTimeout: time.Second}
}

func endedMatch(t *testing.T) *models.GameMatch {
	t.Helper()
	m := models.NewMatch(uuid.New(), uuid.New(), time.Now().UTC())
	answer := models.NewCoordinate(-19.916681, -43.934493)
	_, err := m.StartRound(models.Location{}, time.Now().UTC())
	require.NoError(t, err)
	_, err = m.EndRound(answer, models.Some(answer), models.None[models.Coordinate]())
	require.NoError(t, err)
	m.EndMatch(time.Now().UTC())
	return m
}

func TestPublisher_RoundEndedFirstAttempt(t *testing.T) {
	bus := new(mockBus)
	p := NewPublisher(bus, nil, fastRetry(), clockwork.NewRealClock())
	m := endedMatch(t)
	payload := NewRoundEndedPayload(m, m.Rounds[0], time.Now().UTC())

	bus.On("Publish", mock.Anything, mock.MatchedBy(func(e Event) bool {
		var decoded RoundEndedPayload
		return e.Topic == TopicRoundEnded &&
			e.MatchID == m.ID &&
			json.Unmarshal(e.Payload, &decoded) == nil &&
			decoded.RoundID == m.Rounds[0].ID
	})).Return(nil).Once()

	require.NoError(t, p.PublishRoundEnded(context.Background(), payload))
	bus.AssertExpectations(t)
}

func TestPublisher_RetriesWithSameEventID(t *testing.T) {
	bus := new(mockBus)
	p := NewPublisher(bus, nil, fastRetry(), clockwork.NewRealClock())
	m := endedMatch(t)

	var ids []uuid.UUID
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { ids = append(ids, args.Get(1).(Event).ID) }).
		Return(errors.New("no responders")).Twice()
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { ids = append(ids, args.Get(1).(Event).ID) }).
		Return(nil).Once()

	require.NoError(t, p.PublishRoundEnded(context.Background(), NewRoundEndedPayload(m, m.Rounds[0], time.Now())))
	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[1], ids[2])
}

func TestPublisher_BackoffFollowsClock(t *testing.T) {
	bus := new(mockBus)
	start := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	p := NewPublisher(bus, nil, RetryConfig{MaxAttempts: 2, BaseDelay: time.Second}, clock)
	m := endedMatch(t)

	var created []time.Time
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = append(created, args.Get(1).(Event).CreatedAt) }).
		Return(errors.New("no responders")).Once()
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = append(created, args.Get(1).(Event).CreatedAt) }).
		Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- p.PublishRoundEnded(context.Background(), NewRoundEndedPayload(m, m.Rounds[0], start))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	// second attempt waits BaseDelay*2
	clock.Advance(2 * time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("publish did not resume after the backoff elapsed")
	}
	bus.AssertExpectations(t)
	assert.Equal(t, []time.Time{start, start}, created)
}

func TestPublisher_RoundEndedFailureSkipsFallback(t *testing.T) {
	bus := new(mockBus)
	sink := new(mockSink)
	p := NewPublisher(bus, sink, fastRetry(), clockwork.NewRealClock())
	m := endedMatch(t)

	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("down")).Times(3)

	err := p.PublishRoundEnded(context.Background(), NewRoundEndedPayload(m, m.Rounds[0], time.Now()))
	require.Error(t, err)
	p.Wait()

	bus.AssertExpectations(t)
	sink.AssertNotCalled(t, "SendMatchEnded", mock.Anything, mock.Anything)
}

func TestPublisher_MatchEndedFallsBackAfterRetries(t *testing.T) {
	bus := new(mockBus)
	sink := new(mockSink)
	p := NewPublisher(bus, sink, fastRetry(), clockwork.NewRealClock())
	payload := NewMatchEndedPayload(endedMatch(t))

	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("down")).Times(3)
	sink.On("SendMatchEnded", mock.Anything, mock.MatchedBy(func(got MatchEndedPayload) bool {
		return got.MatchID == payload.MatchID
	})).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	err := p.PublishMatchEnded(ctx, payload)
	cancel() // the fallback must outlive the caller's context
	require.Error(t, err)

	p.Wait()
	bus.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestPublisher_FallbackFailureIsContained(t *testing.T) {
	bus := new(mockBus)
	sink := new(mockSink)
	p := NewPublisher(bus, sink, RetryConfig{MaxAttempts: 1, FallbackTimeout: time.Second}, clockwork.NewRealClock())
	payload := NewMatchEndedPayload(endedMatch(t))

	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("down")).Once()
	sink.On("SendMatchEnded", mock.Anything, mock.Anything).Return(errors.New("503")).Once()

	require.Error(t, p.PublishMatchEnded(context.Background(), payload))
	p.Wait()
	sink.AssertExpectations(t)
}

func TestPublisher_StopsRetryingOnCancel(t *testing.T) {
	bus := new(mockBus)
	p := NewPublisher(bus, nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}, clockwork.NewRealClock())
	m := endedMatch(t)

	ctx, cancel := context.WithCancel(context.Background())
	bus.On("Publish", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(errors.New("down")).Once()

	err := p.PublishRoundEnded(ctx, NewRoundEndedPayload(m, m.Rounds[0], time.Now()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewMatchEndedPayload(t *testing.T) {
	m := endedMatch(t)
	payload := NewMatchEndedPayload(m)

	assert.Equal(t, m.ID, payload.MatchID)
	assert.Equal(t, m.PlayerAID, payload.WinnerID.OrElse(uuid.Nil))
	assert.Equal(t, m.PlayerBID, payload.LoserID.OrElse(uuid.Nil))
	assert.Equal(t, 100, payload.PointsEarned.OrElse(0))
	assert.Equal(t, 30, payload.PointsLost.OrElse(0))
	require.Len(t, payload.Rounds, 1)
	assert.Equal(t, 5000, payload.Rounds[0].PlayerAPoints)
	assert.False(t, payload.Rounds[0].PlayerBGuess.IsSome())
}

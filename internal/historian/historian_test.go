// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/cache"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]cache.GameActionRecord
	abandoned []uuid.UUID
	fail      bool
}

func (f *fakeSink) InsertGameActions(_ context.Context, records []cache.GameActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) MarkGameAbandoned(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, id)
	return nil
}

func newTestService(sink Sink, batch int) *Service {
	logger, _ := test.NewNullLogger()
	return NewService(nil, sink, Config{QueueName: "q", BatchSize: batch, Inactivity: time.Minute}, logger)
}

func payload(t *testing.T, gameID uuid.UUID, idx int, kind string) string {
	t.Helper()
	data, err := json.Marshal(cache.GameActionRecord{
		GameID:        gameID,
		ActionIndex:   idx,
		ActorSeat:     0,
		ActionType:    kind,
		ActionPayload: map[string]interface{}{"card": "10_Hearts"},
		Timestamp:     time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	return string(data)
}

func TestHandlePayloadBatches(t *testing.T) {
	sink := &fakeSink{}
	s := newTestService(sink, 3)
	ctx := context.Background()
	game := uuid.New()

	require.NoError(t, s.HandlePayload(ctx, payload(t, game, 1, "GAME_START")))
	require.NoError(t, s.HandlePayload(ctx, payload(t, game, 2, "CARD_REQUEST")))
	assert.Empty(t, sink.batches)
	assert.Equal(t, 2, s.Buffered())

	require.NoError(t, s.HandlePayload(ctx, payload(t, game, 3, "CARD_REQUEST")))
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
	assert.Equal(t, "10_Hearts", sink.batches[0][1].ActionPayload["card"])
	assert.Equal(t, 0, s.Buffered())
}

func TestHandlePayloadRejectsGarbage(t *testing.T) {
	s := newTestService(&fakeSink{}, 10)
	assert.Error(t, s.HandlePayload(context.Background(), "not json"))
	assert.Error(t, s.HandlePayload(context.Background(), `{"action_index": 1}`))
	assert.Equal(t, 0, s.Buffered())
}

func TestFlushRetriesAfterFailure(t *testing.T) {
	sink := &fakeSink{fail: true}
	s := newTestService(sink, 10)
	ctx := context.Background()
	require.NoError(t, s.HandlePayload(ctx, payload(t, uuid.New(), 1, "GAME_START")))

	assert.Error(t, s.Flush(ctx))
	assert.Equal(t, 1, s.Buffered())

	sink.fail = false
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, s.Buffered())
	require.Len(t, sink.batches, 1)
	require.NoError(t, s.Flush(ctx), "empty flush is a no-op")
	assert.Len(t, sink.batches, 1)
}

func TestFlushFailureKeepsNewestRecords(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := &fakeSink{fail: true}
	s := NewService(nil, sink, Config{QueueName: "q", BatchSize: 2, MaxBuffered: 5}, logger)
	ctx := context.Background()
	gameID := uuid.New()

	for i := 1; i <= 9; i++ {
		s.HandlePayload(ctx, payload(t, gameID, i, "CARD_REQUEST"))
		assert.LessOrEqual(t, s.Buffered(), 5, "after record %d", i)
	}
	assert.Equal(t, 5, s.Buffered())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "dropped")

	sink.fail = false
	require.NoError(t, s.Flush(ctx))
	require.Len(t, sink.batches, 1)
	var indexes []int
	for _, rec := range sink.batches[0] {
		indexes = append(indexes, rec.ActionIndex)
	}
	assert.Equal(t, []int{5, 6, 7, 8, 9}, indexes)
}

func TestSweepInactive(t *testing.T) {
	sink := &fakeSink{}
	s := newTestService(sink, 10)
	ctx := context.Background()
	stale, finished := uuid.New(), uuid.New()

	require.NoError(t, s.HandlePayload(ctx, payload(t, stale, 1, "GAME_START")))
	require.NoError(t, s.HandlePayload(ctx, payload(t, finished, 1, "GAME_START")))
	require.NoError(t, s.HandlePayload(ctx, payload(t, finished, 2, "GAME_OVER")))

	assert.Equal(t, 0, s.SweepInactive(ctx, time.Now()))
	assert.Equal(t, 1, s.SweepInactive(ctx, time.Now().Add(2*time.Minute)))
	assert.Equal(t, []uuid.UUID{stale}, sink.abandoned)
	assert.Equal(t, 0, s.SweepInactive(ctx, time.Now().Add(time.Hour)))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HISTORIAN_QUEUE_NAME", "custom")
	t.Setenv("HISTORIAN_BATCH_SIZE", "7")
	t.Setenv("HISTORIAN_FLUSH_MS", "not-a-number")
	cfg := ConfigFromEnv()
	assert.Equal(t, "custom", cfg.QueueName)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushDelay)
	assert.Equal(t, defaultMaxBuffered, cfg.MaxBuffered)
}

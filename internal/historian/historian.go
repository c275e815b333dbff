// Package historian drains the Redis action queue into Postgres in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/cache"
	"github.com/jason-s-yu/literature/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink is where flushed records end up.
type Sink interface {
	InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// PostgresSink writes through the shared database pool.
type PostgresSink struct{}

func (PostgresSink) InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	return database.InsertGameActions(ctx, records)
}

func (PostgresSink) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return database.MarkGameAbandoned(ctx, gameID)
}

// Config controls batching and abandonment.
type Config struct {
	QueueName  string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // a game silent this long is marked abandoned
	// MaxBuffered bounds the records kept for retry while the sink is failing.
	// The oldest records are dropped first.
	MaxBuffered int
}

const defaultMaxBuffered = 10000

// ConfigFromEnv reads HISTORIAN_QUEUE_NAME, HISTORIAN_BATCH_SIZE, HISTORIAN_FLUSH_MS,
// HISTORIAN_MAX_BUFFERED and GAME_INACTIVITY_TIMEOUT_SEC.
func ConfigFromEnv() Config {
	return Config{
		QueueName:  cache.QueueName(),
		BatchSize:  cache.GetEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(cache.GetEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(cache.GetEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,

		MaxBuffered: cache.GetEnvInt("HISTORIAN_MAX_BUFFERED", defaultMaxBuffered),
	}
}

// Service pops action records and persists them.
type Service struct {
	rdb    *redis.Client
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	lastActivity sync.Map // uuid.UUID -> time.Time

	batchMu sync.Mutex
	batch   []cache.GameActionRecord
}

func NewService(rdb *redis.Client, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.MaxBuffered < cfg.BatchSize {
		cfg.MaxBuffered = defaultMaxBuffered
		if cfg.MaxBuffered < cfg.BatchSize {
			cfg.MaxBuffered = cfg.BatchSize
		}
	}
	return &Service{
		rdb:    rdb,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		batch:  make([]cache.GameActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.flushLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.logger.WithField("queue", s.cfg.QueueName).Info("historian started")
	<-ctx.Done()
	wg.Wait()

	final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(final); err != nil {
		s.logger.Errorf("final flush: %v", err)
	}
	s.logger.Info("historian stopped")
}

// readLoop uses BLPop with a short timeout so cancellation is noticed.
func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := s.rdb.BLPop(ctx, 3*time.Second, s.cfg.QueueName).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.logger.Errorf("BLPop: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		if err := s.HandlePayload(ctx, res[1]); err != nil {
			s.logger.Warnf("dropping action record: %v", err)
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Errorf("flush: %v", err)
			}
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.SweepInactive(ctx, now)
		}
	}
}

// HandlePayload decodes one queue entry and buffers it, flushing when the batch is full.
func (s *Service) HandlePayload(ctx context.Context, payload string) error {
	var record cache.GameActionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return fmt.Errorf("invalid action record: %w", err)
	}
	if record.GameID == uuid.Nil {
		return errors.New("action record without game_id")
	}
	if record.ActionType == "GAME_OVER" {
		s.lastActivity.Delete(record.GameID)
	} else {
		s.lastActivity.Store(record.GameID, time.Now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered records in one call to the sink. On failure the records are
// put back so the next flush retries them, up to MaxBuffered.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	pending := s.batch
	s.batch = make([]cache.GameActionRecord, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertGameActions(ctx, pending); err != nil {
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		dropped := s.trimLocked()
		s.batchMu.Unlock()
		if dropped > 0 {
			s.logger.Warnf("historian buffer full: dropped %d oldest action records", dropped)
		}
		return err
	}
	s.logger.Debugf("Flushed %d actions to DB.", len(pending))
	return nil
}

// trimLocked drops the oldest records beyond MaxBuffered. Assumes batchMu is held.
func (s *Service) trimLocked() int {
	over := len(s.batch) - s.cfg.MaxBuffered
	if over <= 0 {
		return 0
	}
	kept := make([]cache.GameActionRecord, s.cfg.MaxBuffered, s.cfg.MaxBuffered+s.cfg.BatchSize)
	copy(kept, s.batch[over:])
	s.batch = kept
	return over
}

// Buffered returns how many records are waiting for the next flush.
func (s *Service) Buffered() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// SweepInactive marks every game silent for longer than the inactivity window as abandoned
// and returns how many were marked.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) int {
	marked := 0
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.Inactivity {
			return true
		}
		if err := s.sink.MarkGameAbandoned(ctx, gameID); err != nil {
			s.logger.Errorf("failed to mark game %v abandoned: %v", gameID, err)
			return true
		}
		s.lastActivity.Delete(gameID)
		marked++
		s.logger.Infof("Marked game %v as abandoned due to inactivity.", gameID)
		return true
	})
	return marked
}

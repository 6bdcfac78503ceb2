// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"

	jobqueue "github.com/kaanreal/companella-sub001/internal/adapters/mq/queue"
	workerpool "github.com/kaanreal/companella-sub001/internal/adapters/mq/worker"
	repository "github.com/kaanreal/companella-sub001/internal/adapters/repository"
	"github.com/kaanreal/companella-sub001/internal/domain/analysis"
	"github.com/kaanreal/companella-sub001/internal/domain/dedupe"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/pkg/logger"
	"github.com/kaanreal/companella-sub001/pkg/metrics"
)

// engineAdapter adapts the analysis.Engine to the worker.Analyzer interface.
type engineAdapter struct {
	engine *analysis.Engine
}

func (a *engineAdapter) Analyze(ctx context.Context, job workerpool.Job) (*model.Report, error) {
	return a.engine.Analyze(job.Notes, job.Events, job.OD)
}

// Service implements the API dependencies for the replay analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	scoreboard repository.Store
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	engine     *analysis.Engine
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	defaultOD   float64

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultOD sets the overall difficulty applied to submissions that
// omit it.
func WithDefaultOD(od float64) Option {
	return func(s *Service) {
		if od >= 0 && od <= 10 {
			s.defaultOD = od
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		defaultOD:   8.0,
		stopCh:      make(chan struct{}),
		logger:      nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting analysis service...")

	// Initialize components
	s.scoreboard = repository.NewTreapStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.engine = analysis.NewEngine()

	// Create and start worker pool with the analysis engine
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, &engineAdapter{engine: s.engine}, s.scoreboard)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("defaultOD", s.defaultOD),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping analysis service...")

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if s.scoreboard != nil {
		if closer, ok := s.scoreboard.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	if q, ok := s.jobQueue.(*jobqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// SeenAndRecord atomically checks if an analysis id was seen and records it
// if not. Returns true if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordAnalysisDuplicate()
	}
	return seen
}

// Unrecord removes an analysis ID from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// DefaultOD returns the overall difficulty applied to submissions that
// omit it.
func (s *Service) DefaultOD() float64 {
	return s.defaultOD
}

// Enqueue submits an analysis job for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, j model.Job) bool {
	s.logger.Debug(ctx, "enqueueing analysis job",
		logger.String("analysisID", j.AnalysisID),
		logger.String("player", j.Player),
		logger.Int("notes", len(j.Notes)),
		logger.Int("events", len(j.Events)),
	)

	ok := s.jobQueue.Enqueue(ctx, j)
	if ok {
		metrics.UpdateQueueSize(s.jobQueue.Len(ctx))
	}
	return ok
}

// GetReport returns the archived report for an analysis.
func (s *Service) GetReport(ctx context.Context, analysisID string) (*model.Report, error) {
	return s.scoreboard.GetReport(ctx, analysisID)
}

// TopN returns the top N scoreboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.scoreboard.TopN(ctx, n)
}

// Rank returns the rank and best entry for a given player.
func (s *Service) Rank(ctx context.Context, player string) (repository.Entry, error) {
	return s.scoreboard.Rank(ctx, player)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"defaultOD":   s.defaultOD,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		totalPlayers := s.scoreboard.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalPlayers"] = totalPlayers

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalPlayers(totalPlayers)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

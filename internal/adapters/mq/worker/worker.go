// Package worker defines worker contracts for asynchronous replay analysis.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/kaanreal/companella-sub001/internal/adapters/mq/queue"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/pkg/logger"
	"github.com/kaanreal/companella-sub001/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Analyzer runs the timing analysis for one job.
type Analyzer interface {
	Analyze(ctx context.Context, job Job) (*model.Report, error)
}

// Recorder stores a finished report and ranks the player's best run.
type Recorder interface {
	Record(ctx context.Context, analysisID, player string, rep *model.Report) (bool, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes analysis jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing analysis jobs.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	recorder Recorder
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, analyzer Analyzer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		analyzer: analyzer,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop.
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob runs one analysis and records the outcome.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	analysisStart := time.Now()
	rep, err := w.analyzer.Analyze(ctx, job)
	metrics.RecordAnalysisLatency(float64(time.Since(analysisStart).Milliseconds()))

	if err != nil {
		metrics.RecordAnalysisError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "analysis_error")
		metrics.RecordErrorByType("analysis_error", "high")
		w.logger.Error(ctx, "analysis failed for job",
			logger.String("analysisID", job.AnalysisID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to analyze job %s: %w", job.AnalysisID, err)
	}

	recordJudgementMetrics(rep)

	improved, err := w.recorder.Record(ctx, job.AnalysisID, job.Player, rep)
	if err != nil {
		metrics.RecordScoreboardError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoreboard_error")
		metrics.RecordErrorByType("scoreboard_error", "high")
		w.logger.Error(ctx, "scoreboard update failed for job",
			logger.String("analysisID", job.AnalysisID),
			logger.Error(err),
		)
		return fmt.Errorf("scoreboard update failed: %w", err)
	}

	metrics.RecordAnalysisCompleted()
	if improved {
		metrics.RecordScoreboardUpdate()
	}

	w.logger.Debug(ctx, "job processed",
		logger.String("analysisID", job.AnalysisID),
		logger.String("player", job.Player),
		logger.Float64("accuracy", rep.Accuracy),
		logger.Float64("unstableRate", rep.UnstableRate),
	)
	return nil
}

// recordJudgementMetrics publishes the per-band tally and ghost taps.
func recordJudgementMetrics(rep *model.Report) {
	t := rep.Judgements
	metrics.RecordJudgements(model.JudgementMax.String(), t.Max)
	metrics.RecordJudgements(model.JudgementPerfect.String(), t.Perfect)
	metrics.RecordJudgements(model.JudgementGreat.String(), t.Great)
	metrics.RecordJudgements(model.JudgementGood.String(), t.Good)
	metrics.RecordJudgements(model.JudgementBad.String(), t.Bad)
	metrics.RecordJudgements(model.JudgementMiss.String(), t.Miss)
	metrics.RecordGhostTaps(rep.GhostTapCount)
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	analyzer Analyzer
	recorder Recorder

	// Shutdown control
	shutdown chan struct{}

	// Metrics tracking
	processedCount    int64
	lastProcessedTime time.Time

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, analyzer Analyzer, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		analyzer:          analyzer,
		recorder:          recorder,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			analyzer,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics updates worker-related metrics.
func (p *Pool) updateMetrics() {
	now := time.Now()
	timeDiff := now.Sub(p.lastProcessedTime).Seconds()
	if timeDiff > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(p.processedCount) / timeDiff)
	}
	p.processedCount = 0
	p.lastProcessedTime = now
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}

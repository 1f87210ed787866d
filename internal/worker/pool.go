// Package worker implements the buffered worker pool that writes the
// prediction audit trail to ClickHouse off the request path:
// - Load shedding when the queue is full
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

// Prometheus metrics
var (
	auditEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_enqueued_total",
		Help: "Total number of predictions queued for audit",
	})

	auditWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_written_total",
		Help: "Total number of audit rows written to ClickHouse",
	})

	auditFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_failed_total",
		Help: "Total number of audit rows that failed to write",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictor_audit_queue_depth",
		Help: "Current depth of the audit queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictor_audit_batch_insert_duration_seconds",
		Help:    "Duration of audit batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	auditLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_load_shed_total",
		Help: "Total number of audit rows dropped due to load shedding",
	})
)

// Feature sources recorded with each audit row.
const (
	SourceRequest = "request"
	SourceHistory = "history"
)

// Job is one served prediction waiting to be audited.
type Job struct {
	Prediction    models.Prediction
	FeatureSource string
	Timestamp     time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages a pool of workers writing audit rows
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Audit pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue, waits for the workers to drain and flush it, then
// releases the pool context.
func (p *Pool) Stop() {
	p.logger.Info("Stopping audit pool...")
	close(p.jobQueue)
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("Audit pool stopped")
}

// Enqueue queues a prediction for audit. It never blocks: when the queue is
// full or the pool is stopped the row is dropped and false is returned.
func (p *Pool) Enqueue(job Job) (queued bool) {
	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now().UTC()
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue audit row (pool stopped)", "error", r)
			auditLoadShed.Inc()
			queued = false
		}
	}()

	select {
	case p.jobQueue <- job:
		auditEnqueued.Inc()
		return true
	default:
		p.logger.Warnw("Audit queue full, dropping row", "requestID", job.Prediction.RequestID)
		auditLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker drains the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Audit batch failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			auditFailed.Add(float64(len(batch)))
		} else {
			auditWritten.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())
		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			flush()
			return
		}
	}
}

const insertAudit = `
	INSERT INTO prediction_audit (
		timestamp, request_id, model_version,
		home_team_id, home_team, away_team_id, away_team,
		home_win_prob, away_win_prob, predicted_winner_id, confidence, feature_source
	)
`

// processBatch writes one batch. It runs on a fresh context so the final
// flush during shutdown still reaches ClickHouse.
func (p *Pool) processBatch(batch []Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, insertAudit)
	if err != nil {
		return err
	}

	for _, job := range batch {
		pr := job.Prediction
		err := chBatch.Append(
			job.Timestamp,
			pr.RequestID,
			pr.ModelVersion,
			pr.HomeTeam.ID,
			pr.HomeTeam.Abbreviation,
			pr.AwayTeam.ID,
			pr.AwayTeam.Abbreviation,
			pr.HomeWinProb,
			pr.AwayWinProb,
			pr.PredictedWinner.ID,
			pr.Confidence,
			job.FeatureSource,
		)
		if err != nil {
			p.logger.Warnw("Failed to append audit row", "error", err, "requestID", pr.RequestID)
			continue
		}
	}

	if err := chBatch.Send(); err != nil {
		p.logger.Errorw("Failed to send batch to ClickHouse", "error", err, "batchSize", len(batch))
		return err
	}
	return nil
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// EnsureSchema creates the audit table when it does not exist.
func EnsureSchema(ctx context.Context, ch driver.Conn) error {
	return ch.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prediction_audit (
			timestamp           DateTime64(3, 'UTC'),
			request_id          String,
			model_version       String,
			home_team_id        Int64,
			home_team           LowCardinality(String),
			away_team_id        Int64,
			away_team           LowCardinality(String),
			home_win_prob       Float64,
			away_win_prob       Float64,
			predicted_winner_id Int64,
			confidence          Float64,
			feature_source      LowCardinality(String)
		)
		ENGINE = MergeTree
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, request_id)
	`)
}

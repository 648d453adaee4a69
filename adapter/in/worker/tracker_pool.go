package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"

	"tracker_server/pkg/metrics"
)

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	MaxWorkers       int
	QueueSize        int
	JobTimeout       time.Duration
	JobTimeoutByType map[JobType]time.Duration
	BatchSize        int
	WorkerChanSize   int
	RatePerSecond    int
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:     8,
		QueueSize:      1000,
		JobTimeout:     30 * time.Second,
		BatchSize:      10,
		WorkerChanSize: 100,
		RatePerSecond:  100,
		JobTimeoutByType: map[JobType]time.Duration{
			// LLM enrichment can stall a pipeline run for a while
			JobMessageProcess:     60 * time.Second,
			JobApplicationReinfer: 15 * time.Second,
		},
	}
}

// Pool is a worker pool built on go-pkgz/pool. Reinfer jobs triggered by
// user actions run in a separate small pool so a burst of inbound mail
// cannot starve them.
type Pool struct {
	handler *Handler
	config  *PoolConfig

	pool         *pool.WorkerGroup[*Message]
	priorityPool *pool.WorkerGroup[*Message]

	ctx    context.Context
	cancel context.CancelFunc

	metrics *PoolMetrics
	latency *metrics.LatencyTracker
	log     zerolog.Logger

	rateLimiter *TokenBucket

	priorityJobs chan *Message

	dlq   chan *Message
	dlqWg sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// PoolMetrics holds pool metrics.
type PoolMetrics struct {
	JobsProcessed     int64
	JobsFailed        int64
	JobsDropped       int64
	JobsRetried       int64
	AvgProcessTime    int64 // milliseconds
	QueueSize         int32
	PriorityQueueSize int32
}

// messageWorker implements pool.Worker for Message processing.
type messageWorker struct {
	pool *Pool
}

func (w *messageWorker) Do(ctx context.Context, msg *Message) error {
	return w.pool.processJob(ctx, msg)
}

// NewPool creates a new worker pool.
func NewPool(handler *Handler, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		handler:      handler,
		config:       config,
		ctx:          ctx,
		cancel:       cancel,
		metrics:      &PoolMetrics{},
		latency:      metrics.NewLatencyTracker(1000),
		log:          log.With().Str("component", "worker_pool").Logger(),
		rateLimiter:  NewTokenBucket(config.RatePerSecond, time.Second),
		priorityJobs: make(chan *Message, config.QueueSize/10),
		dlq:          make(chan *Message, 100),
	}
}

// Start starts the worker pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	worker := &messageWorker{pool: p}
	p.pool = pool.New[*Message](p.config.MaxWorkers, worker).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	priorityWorker := &messageWorker{pool: p}
	p.priorityPool = pool.New[*Message](p.config.MaxWorkers/4+1, priorityWorker).
		WithBatchSize(p.config.BatchSize/2 + 1).
		WithWorkerChanSize(p.config.WorkerChanSize/2 + 1).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start main pool")
		return
	}
	if err := p.priorityPool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start priority pool")
		return
	}

	p.started = true

	p.dlqWg.Add(1)
	go p.dlqProcessor()
	go p.metricsReporter()
	go p.priorityQueueConsumer()

	p.log.Info().
		Int("max_workers", p.config.MaxWorkers).
		Int("queue_size", p.config.QueueSize).
		Int("batch_size", p.config.BatchSize).
		Msg("worker pool started")
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping worker pool...")

	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.pool != nil {
		if err := p.pool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing main pool")
		}
	}
	if p.priorityPool != nil {
		if err := p.priorityPool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing priority pool")
		}
	}

	p.cancel()

	close(p.dlq)
	close(p.priorityJobs)
	p.dlqWg.Wait()

	p.log.Info().
		Int64("processed", p.metrics.JobsProcessed).
		Int64("failed", p.metrics.JobsFailed).
		Msg("worker pool stopped")
}

// Submit submits a job to the pool.
func (p *Pool) Submit(msg *Message) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	if !p.rateLimiter.Allow() {
		atomic.AddInt64(&p.metrics.JobsDropped, 1)
		p.log.Warn().
			Str("job_id", msg.ID).
			Str("job_type", string(msg.Type)).
			Msg("job dropped due to rate limiting")
		return false
	}

	p.pool.Submit(msg)
	atomic.AddInt32(&p.metrics.QueueSize, 1)
	return true
}

// SubmitPriority submits a priority job.
func (p *Pool) SubmitPriority(msg *Message) bool {
	select {
	case p.priorityJobs <- msg:
		atomic.AddInt32(&p.metrics.PriorityQueueSize, 1)
		return true
	default:
		// priority queue full, fall back to the main queue
		return p.Submit(msg)
	}
}

func (p *Pool) priorityQueueConsumer() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-p.priorityJobs:
			if !ok {
				return
			}
			atomic.AddInt32(&p.metrics.PriorityQueueSize, -1)
			p.mu.Lock()
			started := p.started
			pool := p.priorityPool
			p.mu.Unlock()

			if started && pool != nil {
				pool.Submit(msg)
			}
		}
	}
}

func (p *Pool) getJobTimeout(jobType JobType) time.Duration {
	if timeout, ok := p.config.JobTimeoutByType[jobType]; ok {
		return timeout
	}
	return p.config.JobTimeout
}

// processJob processes a single job with timeout.
func (p *Pool) processJob(ctx context.Context, msg *Message) error {
	start := time.Now()
	defer func() {
		atomic.AddInt32(&p.metrics.QueueSize, -1)
	}()

	timeout := p.getJobTimeout(msg.Type)
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.handler.Process(jobCtx, msg)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-jobCtx.Done():
		if jobCtx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
			p.log.Warn().
				Str("job_id", msg.ID).
				Str("job_type", string(msg.Type)).
				Dur("timeout", timeout).
				Msg("job timed out")
		} else {
			err = jobCtx.Err()
		}
	}

	elapsed := time.Since(start)
	p.latency.Record(elapsed)
	p.updateAvgProcessTime(elapsed.Milliseconds())

	if err != nil {
		p.log.Error().
			Err(err).
			Str("job_id", msg.ID).
			Str("job_type", string(msg.Type)).
			Int("retries", msg.Retries).
			Msg("job processing failed")

		// Exponential backoff with jitter to avoid a thundering herd
		if msg.Retries < 3 {
			msg.Retries++
			atomic.AddInt64(&p.metrics.JobsRetried, 1)

			base := time.Duration(1<<msg.Retries) * time.Second
			jitter := time.Duration(rand.Intn(500)) * time.Millisecond
			backoff := base + jitter

			time.AfterFunc(backoff, func() {
				p.Submit(msg)
			})
		} else {
			atomic.AddInt64(&p.metrics.JobsFailed, 1)
			select {
			case p.dlq <- msg:
				p.log.Warn().
					Str("job_id", msg.ID).
					Str("job_type", string(msg.Type)).
					Msg("job moved to DLQ after max retries")
			default:
				p.log.Error().
					Str("job_id", msg.ID).
					Msg("DLQ full, job lost")
			}
		}
		return err
	}

	atomic.AddInt64(&p.metrics.JobsProcessed, 1)
	return nil
}

func (p *Pool) updateAvgProcessTime(elapsed int64) {
	current := atomic.LoadInt64(&p.metrics.AvgProcessTime)
	if current == 0 {
		atomic.StoreInt64(&p.metrics.AvgProcessTime, elapsed)
	} else {
		newAvg := (current*9 + elapsed) / 10
		atomic.StoreInt64(&p.metrics.AvgProcessTime, newAvg)
	}
}

func (p *Pool) dlqProcessor() {
	defer p.dlqWg.Done()

	for {
		select {
		case <-p.ctx.Done():
			for msg := range p.dlq {
				p.log.Error().
					Str("job_id", msg.ID).
					Str("job_type", string(msg.Type)).
					Msg("DLQ: job lost during shutdown")
			}
			return
		case msg, ok := <-p.dlq:
			if !ok {
				return
			}
			// Idempotent reprocessing makes manual replay safe; the log
			// line carries everything needed to resubmit.
			p.log.Error().
				Str("job_id", msg.ID).
				Str("job_type", string(msg.Type)).
				Int("retries", msg.Retries).
				Interface("payload", msg.Payload).
				Msg("DLQ: job permanently failed")
		}
	}
}

func (p *Pool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			lat := p.latency.Stats()
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("dropped", atomic.LoadInt64(&p.metrics.JobsDropped)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int64("avg_process_ms", atomic.LoadInt64(&p.metrics.AvgProcessTime)).
				Dur("p50", lat.P50).
				Dur("p95", lat.P95).
				Dur("p99", lat.P99).
				Int32("queue_size", atomic.LoadInt32(&p.metrics.QueueSize)).
				Int32("priority_queue", atomic.LoadInt32(&p.metrics.PriorityQueueSize)).
				Msg("worker pool metrics")
		}
	}
}

// GetMetrics returns current pool metrics.
func (p *Pool) GetMetrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed:     atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:        atomic.LoadInt64(&p.metrics.JobsFailed),
		JobsDropped:       atomic.LoadInt64(&p.metrics.JobsDropped),
		JobsRetried:       atomic.LoadInt64(&p.metrics.JobsRetried),
		AvgProcessTime:    atomic.LoadInt64(&p.metrics.AvgProcessTime),
		QueueSize:         atomic.LoadInt32(&p.metrics.QueueSize),
		PriorityQueueSize: atomic.LoadInt32(&p.metrics.PriorityQueueSize),
	}
}

// Latency returns processing latency statistics for the sliding window.
func (p *Pool) Latency() metrics.LatencyStats {
	return p.latency.Stats()
}

// Wait waits for all submitted jobs to complete.
func (p *Pool) Wait() error {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()

	if pool != nil {
		return pool.Wait(p.ctx)
	}
	return nil
}

// =============================================================================
// Token Bucket
// =============================================================================

// TokenBucket implements lock-free token bucket rate limiting using atomic
// operations. This is the submission-side guard; per-user HTTP limiting is
// handled separately in middleware.
type TokenBucket struct {
	tokens       int64 // atomic
	maxTokens    int64 // atomic
	refillRate   int64 // atomic
	intervalNs   int64 // interval in nanoseconds (atomic)
	lastRefillNs int64 // atomic (UnixNano)
}

// NewTokenBucket creates a new rate limiter.
func NewTokenBucket(ratePerSecond int, interval time.Duration) *TokenBucket {
	tokens := int64(ratePerSecond)
	return &TokenBucket{
		tokens:       tokens,
		maxTokens:    tokens,
		refillRate:   tokens,
		intervalNs:   int64(interval),
		lastRefillNs: time.Now().UnixNano(),
	}
}

// Allow checks if a request is allowed using atomic operations (lock-free).
func (r *TokenBucket) Allow() bool {
	now := time.Now().UnixNano()
	intervalNs := atomic.LoadInt64(&r.intervalNs)
	lastRefill := atomic.LoadInt64(&r.lastRefillNs)

	elapsed := now - lastRefill
	if elapsed >= intervalNs {
		intervals := elapsed / intervalNs
		refillRate := atomic.LoadInt64(&r.refillRate)
		maxTokens := atomic.LoadInt64(&r.maxTokens)
		tokensToAdd := intervals * refillRate

		if atomic.CompareAndSwapInt64(&r.lastRefillNs, lastRefill, now) {
			for {
				current := atomic.LoadInt64(&r.tokens)
				newTokens := current + tokensToAdd
				if newTokens > maxTokens {
					newTokens = maxTokens
				}
				if atomic.CompareAndSwapInt64(&r.tokens, current, newTokens) {
					break
				}
			}
		}
	}

	for {
		current := atomic.LoadInt64(&r.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&r.tokens, current, current-1) {
			return true
		}
	}
}

package bootstrap

import (
	"context"
	"os"
	"sync"

	"tracker_server/adapter/in/worker"
	"tracker_server/config"
	"tracker_server/internal/stream"
	"tracker_server/pkg/logger"

	"github.com/rs/zerolog"
)

type Worker struct {
	pool     *worker.Pool
	consumer *stream.Consumer
	sweeper  *worker.GhostSweeper
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	handler := worker.NewHandler(deps.Pipeline)

	poolConfig := worker.DefaultPoolConfig()
	if cfg.WorkerMax > 0 {
		poolConfig.MaxWorkers = cfg.WorkerMax
	}
	if cfg.WorkerQueueSize > 0 {
		poolConfig.QueueSize = cfg.WorkerQueueSize
	}
	if cfg.WorkerBatchSize > 0 {
		poolConfig.BatchSize = cfg.WorkerBatchSize
	}
	if cfg.WorkerRate > 0 {
		poolConfig.RatePerSecond = cfg.WorkerRate
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		pool:   pool,
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	// Redis stream consumer (only when Redis is up)
	if deps.Redis != nil {
		rs := stream.NewRedisStream(deps.Redis, cfg.ConsumerGroup)
		w.consumer = stream.NewConsumer(rs, handler, cfg.NodeID)
		logger.Info("Redis stream consumer configured (group=%s, consumer=%s)", cfg.ConsumerGroup, cfg.NodeID)
	} else {
		logger.Warn("Redis not available, worker will only process direct submissions")
	}

	if cfg.SweeperEnabled {
		w.sweeper = worker.NewGhostSweeper(deps.Store, pool, cfg.SweeperInterval, cfg.SweeperIdleWindow)
		logger.Info("Ghost sweeper configured (interval=%s, idle_window=%s)", cfg.SweeperInterval, cfg.SweeperIdleWindow)
	}

	return w, cleanup, nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pool.Start()
	}()

	if w.consumer != nil {
		w.zlog.Info().Msg("starting redis stream consumer")
		w.consumer.Start(w.ctx)
	}

	if w.sweeper != nil {
		w.sweeper.Start()
		w.zlog.Info().Msg("started ghost sweeper")
	}

	// Block until context is cancelled
	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()

	if w.sweeper != nil {
		w.sweeper.Stop()
	}

	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) Submit(msg *worker.Message) bool {
	if msg.IsPriority() {
		return w.pool.SubmitPriority(msg)
	}
	return w.pool.Submit(msg)
}

func (w *Worker) SubmitPriority(msg *worker.Message) bool {
	return w.pool.SubmitPriority(msg)
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}

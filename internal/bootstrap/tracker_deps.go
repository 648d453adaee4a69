package bootstrap

import (
	"context"
	"strings"
	"time"

	"tracker_server/adapter/out/cache"
	"tracker_server/adapter/out/enrichment"
	"tracker_server/adapter/out/mongodb"
	"tracker_server/adapter/out/persistence"
	"tracker_server/config"
	"tracker_server/core/port/in"
	"tracker_server/core/port/out"
	"tracker_server/core/service/pipeline"
	"tracker_server/core/service/tracker"
	"tracker_server/infra/database"
	"tracker_server/internal/stream"
	"tracker_server/pkg/logger"
	"tracker_server/pkg/metrics"
	"tracker_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Adapters
	Store    out.Store
	Bodies   out.BodyRepository  // nil without MongoDB
	Ledger   out.ProcessedLedger // nil without Redis
	Enricher out.IdentityEnricher

	// Services
	Pipeline in.PipelineService
	Tracker  in.TrackerService

	// Messaging
	Producer *stream.Producer
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool, used for health checks and raw queries)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the persistence adapters)
	// simple_protocol avoids prepared statement conflicts behind PgBouncer
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		for _, fn := range cleanups {
			fn()
		}
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	metrics.RegisterPool("postgres", sqlDB.DB)

	deps.Store = persistence.NewStore(sqlDB)

	// Redis (ledger, streams, rate limiting; all degrade gracefully)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed, running without ledger and streams: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })

		deps.Ledger = cache.NewProcessedLedger(redisClient)
		deps.Producer = stream.NewProducer(stream.NewRedisStream(redisClient, cfg.ConsumerGroup))
	}

	// MongoDB (raw message bodies)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL, cfg.MongoDBName)
		if err != nil {
			logger.Warn("MongoDB connection failed, message bodies will not be archived: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			bodies := mongodb.NewBodyAdapter(mongoClient.Database(cfg.MongoDBName))
			if err := bodies.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure MongoDB indexes: %v", err)
			}
			deps.Bodies = bodies
		}
	}

	// Identity enricher (optional)
	if cfg.OpenAIAPIKey != "" {
		deps.Enricher = enrichment.NewOpenAIEnricher(enrichment.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
			MaxBodySize: cfg.LLMMaxBody,
		}, logger.Default())
	}

	ids, err := snowflake.NewGenerator(cfg.SnowflakeWorkerID)
	if err != nil {
		for _, fn := range cleanups {
			fn()
		}
		return nil, nil, err
	}

	deps.Pipeline = pipeline.NewService(deps.Store, ids, logger.Default(), pipeline.Options{
		Bodies:    deps.Bodies,
		Ledger:    deps.Ledger,
		Enricher:  deps.Enricher,
		LedgerTTL: cfg.LedgerTTL,
	})
	deps.Tracker = tracker.NewService(deps.Store, deps.Pipeline, logger.Default())

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return deps, cleanup, nil
}

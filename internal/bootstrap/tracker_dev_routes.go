package bootstrap

import (
	"github.com/gofiber/fiber/v2"

	"tracker_server/infra/database"
	"tracker_server/pkg/metrics"
)

// RegisterDevRoutes registers development-only debug routes without
// authentication. Never mounted in production.
func RegisterDevRoutes(app *fiber.App, deps *Dependencies) {
	debug := app.Group("/debug")

	debug.Get("/pools", func(c *fiber.Ctx) error {
		out := fiber.Map{
			"sql":    metrics.GetAllPoolStats(),
			"health": metrics.GetAllPoolHealth(),
		}
		if deps.DB != nil {
			out["pgx"] = database.GetPoolStats(deps.DB)
		}
		if deps.Redis != nil {
			out["redis"] = database.GetRedisStats(deps.Redis)
		}
		return c.JSON(out)
	})

	debug.Get("/config", func(c *fiber.Ctx) error {
		cfg := deps.Config
		return c.JSON(fiber.Map{
			"environment":         cfg.Environment,
			"sweeper_enabled":     cfg.SweeperEnabled,
			"sweeper_interval":    cfg.SweeperInterval.String(),
			"sweeper_idle_window": cfg.SweeperIdleWindow.String(),
			"worker_max":          cfg.WorkerMax,
			"consumer_group":      cfg.ConsumerGroup,
			"enricher_enabled":    deps.Enricher != nil,
			"ledger_enabled":      deps.Ledger != nil,
			"bodies_enabled":      deps.Bodies != nil,
		})
	})
}

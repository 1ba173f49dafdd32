package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/database"
	"github.com/Agustinnra/turicanje-bot/internal/session"
)

// HealthCheck reports liveness plus bot-level state: session count and
// whether outbound messages are actually delivered.
func HealthCheck(cfg *config.Config, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"time":            time.Now().In(cfg.Bot.Location()).Format(time.RFC3339),
			"dry_run":         !cfg.WhatsApp.SendEnabled,
			"active_sessions": store.Len(),
		})
	}
}

// ReadinessCheck verifies the catalog database answers
func ReadinessCheck(db *database.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}

// LivenessCheck is the bare k8s probe
func LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/uniportal-api/internal/config"
	"github.com/noah-isme/uniportal-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Service       string    `json:"service"`
	Environment   string    `json:"environment"`
	StorageDriver string    `json:"storageDriver"`
	AIConfigured  bool      `json:"aiConfigured"`
}

// HealthCheck returns a handler that reports application health information.
// aiConfigured tells operators whether evaluations run live or fall back to canned feedback.
func HealthCheck(cfg config.Config, aiConfigured bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:        "ok",
			Timestamp:     time.Now().UTC(),
			Service:       cfg.AppName,
			Environment:   cfg.AppEnv,
			StorageDriver: cfg.StorageDriver,
			AIConfigured:  aiConfigured,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

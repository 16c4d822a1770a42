package utils

import "github.com/gofiber/fiber/v2"

const correlationHeader = "X-Correlation-ID"

// APIResponse is the envelope every portal endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	// CorrelationID is set on errors so the portal UI can quote it in its error banner.
	CorrelationID string `json:"correlationId,omitempty"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers a success envelope with an explicit status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return send(c, status, APIResponse{
		Success: true,
		Data:    data,
		Message: orDefault(message, "success"),
	})
}

// SendError answers an error envelope.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithDetails(c, status, message, nil)
}

// SendErrorWithDetails answers an error envelope carrying machine-readable details.
func SendErrorWithDetails(c *fiber.Ctx, status int, message string, details interface{}) error {
	return send(c, status, APIResponse{
		Success:       false,
		Message:       orDefault(message, "error"),
		Details:       details,
		CorrelationID: c.GetRespHeader(correlationHeader),
	})
}

func send(c *fiber.Ctx, status int, body APIResponse) error {
	return c.Status(status).JSON(body)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

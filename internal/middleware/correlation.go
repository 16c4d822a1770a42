package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request identifier between the portal UI and this service.
const CorrelationHeader = "X-Correlation-ID"

const correlationLocalsKey = "correlation_id"

var correlationPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type correlationContextKey struct{}

// CorrelationID tags every request with an identifier. A well-formed id sent by the
// portal UI is reused, anything else is replaced with a fresh uuid.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if !correlationPattern.MatchString(id) {
			id = uuid.NewString()
		}

		c.Locals(correlationLocalsKey, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationContextKey{}, id))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocalsKey).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

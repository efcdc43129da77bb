package middlewares

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/utils"
)

const LocRequestID = "reqid"

// RequestID: Request-ID + timing + batas waktu context per request
// (selaras dengan statement_timeout di DSN).
func RequestID(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals(LocRequestID, id)

		start := time.Now()
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		err := c.Next()
		if dur := time.Since(start); dur > time.Second {
			log.Printf("[SLOW] id=%s %s %s dur=%s", id, c.Method(), c.OriginalURL(), dur)
		}
		return err
	}
}

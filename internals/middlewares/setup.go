package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/middlewares/logger"
)

// SetupMiddlewares: urutan penting, recover paling luar.
func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(RequestID(5 * time.Second))
	app.Use(logger.LoggerMiddleware())
	app.Use(CorsMiddleware(configs.CorsOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
	app.Use(GlobalRateLimiter())
}

// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	authMiddleware "sekolahku_backend/internals/middlewares/auth"
	routeDetails "sekolahku_backend/internals/route/details"
)

var startTime time.Time

// SetupRoutes memasang semua group. cache boleh nil (tanpa redis).
func SetupRoutes(app *fiber.App, db *gorm.DB, cache psvc.ViewCache) {
	startTime = time.Now()

	BaseRoutes(app, db)

	jwt := authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
		Secret:              configs.JWTSecret,
		AllowCookieFallback: true,
	})

	// ===================== PRIVATE (USER) =====================
	log.Println("[INFO] Setting up PRIVATE group /api/u ...")
	private := app.Group("/api/u", jwt)
	routeDetails.MaterialsPrivateRoutes(private, db, cache)

	// ===================== ADMIN / GURU =====================
	log.Println("[INFO] Setting up ADMIN group /api/a ...")
	admin := app.Group("/api/a",
		jwt,
		authMiddleware.OnlyRoles(constants.RoleErrorTeacher("materi & progress siswa"), constants.TeacherAndAbove...),
	)
	routeDetails.MaterialsAdminRoutes(admin, db, cache)
}

package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	progressController "sekolahku_backend/internals/features/materials/progress/controller"
	"sekolahku_backend/internals/features/materials/progress/service"
)

// ProgressUserRoutes: /api/u/progress (milik caller sendiri)
func ProgressUserRoutes(r fiber.Router, db *gorm.DB, cache service.ViewCache) {
	ctrl := progressController.NewProgressController(db, cache)

	progress := r.Group("/progress")
	progress.Get("/", ctrl.GetOwnProgress)
	progress.Get("/sub-chapter", ctrl.GetSubChapterProgress)
	progress.Post("/sub-chapter", ctrl.SetCompletion)
}

// ProgressAdminRoutes: /api/a/progress/oversight (read-only)
func ProgressAdminRoutes(r fiber.Router, db *gorm.DB, cache service.ViewCache) {
	ctrl := progressController.NewProgressController(db, cache)

	oversight := r.Group("/progress/oversight")
	oversight.Get("/", ctrl.GetOversight)
	oversight.Get("/export", ctrl.ExportOversight)
}

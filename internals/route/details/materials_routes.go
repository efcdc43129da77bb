package details

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	HierarchyRoutes "sekolahku_backend/internals/features/materials/hierarchy/route"
	ProgressRoutes "sekolahku_backend/internals/features/materials/progress/route"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	"sekolahku_backend/internals/middlewares"
)

// Untuk user login (siswa/guru/admin)
// Contoh akses: /api/u/materials, /api/u/progress
func MaterialsPrivateRoutes(api fiber.Router, db *gorm.DB, cache psvc.ViewCache) {
	HierarchyRoutes.HierarchyUserRoutes(api, db, cache)

	api.Use("/progress", middlewares.ProgressWriteLimiter())
	ProgressRoutes.ProgressUserRoutes(api, db, cache)
}

// Untuk guru/admin
// Contoh akses: /api/a/materials, /api/a/progress/oversight?student_id=
func MaterialsAdminRoutes(api fiber.Router, db *gorm.DB, cache psvc.ViewCache) {
	HierarchyRoutes.HierarchyAdminRoutes(api, db, cache)
	ProgressRoutes.ProgressAdminRoutes(api, db, cache)
}

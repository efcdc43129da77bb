package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	hierarchyController "sekolahku_backend/internals/features/materials/hierarchy/controller"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

// HierarchyUserRoutes: /api/u/materials (baca; siswa difilter per kelas)
func HierarchyUserRoutes(r fiber.Router, db *gorm.DB, cache psvc.ViewCache) {
	ctrl := hierarchyController.NewHierarchyController(db, cache)

	materials := r.Group("/materials")
	materials.Get("/", ctrl.ListVisibleMaterials)
	materials.Get("/:id", ctrl.GetVisibleMaterial)
	materials.Get("/:id/tree", ctrl.GetTree)
}

// HierarchyAdminRoutes: /api/a/... (guru/admin, role dicek di group)
func HierarchyAdminRoutes(r fiber.Router, db *gorm.DB, cache psvc.ViewCache) {
	ctrl := hierarchyController.NewHierarchyController(db, cache)

	materials := r.Group("/materials")
	materials.Get("/", ctrl.ListMaterials)
	materials.Post("/", ctrl.CreateMaterial)
	materials.Get("/:id", ctrl.GetMaterial)
	materials.Put("/:id", ctrl.UpdateMaterial)
	materials.Delete("/:id", ctrl.DeleteMaterial)
	materials.Get("/:id/chapters", ctrl.ListChapters)
	materials.Post("/:id/chapters", ctrl.CreateChapter)

	chapters := r.Group("/chapters")
	chapters.Put("/:id", ctrl.UpdateChapter)
	chapters.Delete("/:id", ctrl.DeleteChapter)
	chapters.Get("/:id/sub-chapters", ctrl.ListSubChapters)
	chapters.Post("/:id/sub-chapters", ctrl.CreateSubChapter)

	subChapters := r.Group("/sub-chapters")
	subChapters.Put("/:id", ctrl.UpdateSubChapter)
	subChapters.Delete("/:id", ctrl.DeleteSubChapter)
}

// file: internals/features/materials/hierarchy/controller/hierarchy_controller.go
package controller

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sekolahku_backend/internals/features/materials/hierarchy/dto"
	"sekolahku_backend/internals/features/materials/hierarchy/service"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
	helperAuth "sekolahku_backend/internals/helpers/auth"
)

type HierarchyController struct {
	Svc       *service.Service
	Validator *validator.Validate
}

func NewHierarchyController(db *gorm.DB, cache psvc.ViewCache) *HierarchyController {
	return &HierarchyController{
		Svc:       service.New(db, cache),
		Validator: validator.New(),
	}
}

// parseAndValidate: 400 body rusak, 422 gagal validasi.
func (h *HierarchyController) parseAndValidate(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
	}
	if err := h.Validator.Struct(req); err != nil {
		return helper.Validation(err)
	}
	return nil
}

func listFilter(c *fiber.Ctx) (service.ListFilter, error) {
	f := service.ListFilter{Search: strings.TrimSpace(c.Query("q"))}
	id, present, err := helper.ParseUUIDQuery(c, "subject_id", "subjectId")
	if err != nil {
		return f, err
	}
	if present {
		f.SubjectID = &id
	}
	return f, nil
}

/* =========================================================
 * ADMIN / GURU : materi
 * ========================================================= */

// POST /api/a/materials
func (h *HierarchyController) CreateMaterial(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateMaterialRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	createdBy := ident.UserID
	mat, err := h.Svc.CreateMaterial(c.UserContext(), req, &createdBy)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "Materi berhasil dibuat", dto.NewMaterialResponse(*mat, nil))
}

// PUT /api/a/materials/:id
func (h *HierarchyController) UpdateMaterial(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateMaterialRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	mat, err := h.Svc.UpdateMaterial(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "Materi berhasil diperbarui", dto.NewMaterialResponse(*mat, nil))
}

// DELETE /api/a/materials/:id
func (h *HierarchyController) DeleteMaterial(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteMaterial(c.UserContext(), id); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "Materi berhasil dihapus", fiber.Map{"material_id": id})
}

// GET /api/a/materials?page=&per_page=&q=&subject_id=
func (h *HierarchyController) ListMaterials(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)

	rows, total, err := h.Svc.ListMaterials(c.UserContext(), f, p)
	if err != nil {
		return helper.FailWithData(c, err, []any{})
	}
	pg := helper.BuildPagination(total, p, len(rows))
	return helper.JsonList(c, "ok", dto.NewMaterialResponses(rows), &pg)
}

// GET /api/a/materials/:id
func (h *HierarchyController) GetMaterial(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	mat, subject, err := h.Svc.GetMaterial(c.UserContext(), id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.NewMaterialResponse(*mat, subject))
}

/* =========================================================
 * ADMIN / GURU : bab & sub bab
 * ========================================================= */

// POST /api/a/materials/:id/chapters
func (h *HierarchyController) CreateChapter(c *fiber.Ctx) error {
	materialID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateChapterRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	ch, err := h.Svc.CreateChapter(c.UserContext(), materialID, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "Bab berhasil dibuat", dto.NewChapterResponse(*ch))
}

// GET /api/a/materials/:id/chapters
func (h *HierarchyController) ListChapters(c *fiber.Ctx) error {
	materialID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Svc.ListChapters(c.UserContext(), materialID)
	if err != nil {
		return helper.FailWithData(c, err, []any{})
	}
	return helper.JsonList(c, "ok", dto.NewChapterResponses(rows), nil)
}

// PUT /api/a/chapters/:id
func (h *HierarchyController) UpdateChapter(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateChapterRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	ch, err := h.Svc.UpdateChapter(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "Bab berhasil diperbarui", dto.NewChapterResponse(*ch))
}

// DELETE /api/a/chapters/:id
func (h *HierarchyController) DeleteChapter(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteChapter(c.UserContext(), id); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "Bab berhasil dihapus", fiber.Map{"chapter_id": id})
}

// POST /api/a/chapters/:id/sub-chapters
func (h *HierarchyController) CreateSubChapter(c *fiber.Ctx) error {
	chapterID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateSubChapterRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	sc, err := h.Svc.CreateSubChapter(c.UserContext(), chapterID, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "Sub bab berhasil dibuat", dto.NewSubChapterResponse(*sc))
}

// GET /api/a/chapters/:id/sub-chapters
func (h *HierarchyController) ListSubChapters(c *fiber.Ctx) error {
	chapterID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Svc.ListSubChapters(c.UserContext(), chapterID)
	if err != nil {
		return helper.FailWithData(c, err, []any{})
	}
	return helper.JsonList(c, "ok", dto.NewSubChapterResponses(rows), nil)
}

// PUT /api/a/sub-chapters/:id
func (h *HierarchyController) UpdateSubChapter(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateSubChapterRequest
	if err := h.parseAndValidate(c, &req); err != nil {
		return err
	}

	sc, err := h.Svc.UpdateSubChapter(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "Sub bab berhasil diperbarui", dto.NewSubChapterResponse(*sc))
}

// DELETE /api/a/sub-chapters/:id
func (h *HierarchyController) DeleteSubChapter(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteSubChapter(c.UserContext(), id); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "Sub bab berhasil dihapus", fiber.Map{"sub_chapter_id": id})
}

/* =========================================================
 * USER (siswa/guru/admin)
 * ========================================================= */

// GET /api/u/materials → siswa hanya melihat materi untuk kelasnya.
func (h *HierarchyController) ListVisibleMaterials(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	f, err := listFilter(c)
	if err != nil {
		return err
	}

	if !ident.IsStudent() {
		p := helper.ResolvePaging(c, 20, 100)
		rows, total, err := h.Svc.ListMaterials(c.UserContext(), f, p)
		if err != nil {
			return helper.FailWithData(c, err, []any{})
		}
		pg := helper.BuildPagination(total, p, len(rows))
		return helper.JsonList(c, "ok", dto.NewMaterialResponses(rows), &pg)
	}

	rows, err := h.Svc.ListVisibleMaterials(c.UserContext(), ident.ClassName, f)
	if err != nil {
		return helper.FailWithData(c, err, []any{})
	}
	p := helper.ResolvePaging(c, 20, 100)
	total := int64(len(rows))
	end := p.Offset + p.Limit
	switch {
	case p.Offset >= len(rows):
		rows = rows[:0]
	case end < len(rows):
		rows = rows[p.Offset:end]
	default:
		rows = rows[p.Offset:]
	}
	pg := helper.BuildPagination(total, p, len(rows))
	return helper.JsonList(c, "ok", dto.NewMaterialResponses(rows), &pg)
}

// GET /api/u/materials/:id → 404 untuk siswa yang kelasnya tidak termasuk.
func (h *HierarchyController) GetVisibleMaterial(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	mat, subject, err := h.Svc.GetMaterial(c.UserContext(), id)
	if err != nil {
		return err
	}
	if ident.IsStudent() && !service.IsVisibleTo(*mat, ident.ClassName) {
		return helper.NotFound("Materi tidak ditemukan")
	}
	return helper.JsonOK(c, "ok", dto.NewMaterialResponse(*mat, subject))
}

// GET /api/u/materials/:id/tree
func (h *HierarchyController) GetTree(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	tree, mat, err := h.Svc.GetTree(c.UserContext(), id)
	if err != nil {
		return err
	}
	if ident.IsStudent() && !service.IsVisibleTo(*mat, ident.ClassName) {
		return helper.NotFound("Materi tidak ditemukan")
	}
	return helper.JsonOK(c, "ok", tree)
}

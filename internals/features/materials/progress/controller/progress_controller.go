// file: internals/features/materials/progress/controller/progress_controller.go
package controller

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
	"sekolahku_backend/internals/features/materials/progress/dto"
	"sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
	helperAuth "sekolahku_backend/internals/helpers/auth"
	"sekolahku_backend/internals/helpers/dbtime"
)

type ProgressController struct {
	Ledger    *service.Ledger
	Query     *service.Query
	Validator *validator.Validate
}

func NewProgressController(db *gorm.DB, cache service.ViewCache) *ProgressController {
	return &ProgressController{
		Ledger:    service.NewLedger(db, cache),
		Query:     service.NewQuery(db, cache),
		Validator: validator.New(),
	}
}

// POST /api/u/progress/sub-chapter
// body: { "sub_chapter_id" | "subChapterId": uuid, "completed": bool }
func (pc *ProgressController) SetCompletion(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	// progress hanya milik siswa; tidak ada jalur menulis record siswa lain
	if !ident.IsStudent() {
		return helper.Forbidden("%s", constants.RoleErrorStudent("menandai progress"))
	}

	var req dto.SetCompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
	}
	subChapterID, ok := req.ResolveSubChapterID()
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "sub_chapter_id wajib diisi")
	}
	if err := pc.Validator.Struct(req); err != nil {
		return helper.Validation(err)
	}

	res, err := pc.Ledger.SetSubChapterCompletion(c.UserContext(), ident.UserID, subChapterID, *req.Completed)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "Progress berhasil disimpan", dto.CompletionResponse{
		SubChapterProgress: dto.NewSubChapterProgressResponse(res.SubChapterProgress),
		MaterialProgress:   dto.NewMaterialProgressResponse(res.MaterialProgress),
	})
}

// GET /api/u/progress?material_id=
// Tanpa material_id → semua agregat milik caller.
func (pc *ProgressController) GetOwnProgress(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	materialID, present, err := helper.ParseUUIDQuery(c, "material_id", "materialId")
	if err != nil {
		return err
	}

	if !present {
		rows, err := pc.Query.GetOwnProgress(c.UserContext(), ident.UserID)
		if err != nil {
			return helper.FailWithData(c, err, []any{})
		}
		return helper.JsonList(c, "ok", rows, nil)
	}

	view, err := pc.Query.GetOwnSubChapterProgress(c.UserContext(), ident.UserID, materialID)
	if err != nil {
		return helper.FailWithData(c, err, dto.MaterialViewResponse{
			SubChapterProgress: []dto.SubChapterProgressResponse{},
		})
	}
	return helper.JsonOK(c, "ok", view)
}

// GET /api/u/progress/sub-chapter?sub_chapter_id=
func (pc *ProgressController) GetSubChapterProgress(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	subChapterID, present, err := helper.ParseUUIDQuery(c, "sub_chapter_id", "subChapterId")
	if err != nil {
		return err
	}
	if !present {
		return fiber.NewError(fiber.StatusBadRequest, "sub_chapter_id wajib diisi")
	}

	rec, err := pc.Ledger.GetSubChapterCompletion(c.UserContext(), ident.UserID, subChapterID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.NewSubChapterProgressResponse(rec))
}

// GET /api/a/progress/oversight?student_id=
func (pc *ProgressController) GetOversight(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	if err := helperAuth.RequireOversight(ident); err != nil {
		return err
	}
	studentID, present, err := helper.ParseUUIDQuery(c, "student_id", "studentId")
	if err != nil {
		return err
	}
	if !present {
		return fiber.NewError(fiber.StatusBadRequest, "student_id wajib diisi")
	}

	rep, err := pc.Query.GetStudentProgressForOversight(c.UserContext(), studentID)
	if err != nil {
		return helper.FailWithData(c, err, dto.OversightReport{
			StudentID:            studentID,
			PerMaterialBreakdown: []dto.OversightBreakdown{},
		})
	}
	return helper.JsonOK(c, "ok", rep)
}

// GET /api/a/progress/oversight/export?student_id=&tz= → .xlsx
func (pc *ProgressController) ExportOversight(c *fiber.Ctx) error {
	ident, err := helperAuth.GetIdentity(c)
	if err != nil {
		return err
	}
	if err := helperAuth.RequireOversight(ident); err != nil {
		return err
	}
	studentID, present, err := helper.ParseUUIDQuery(c, "student_id", "studentId")
	if err != nil {
		return err
	}
	if !present {
		return fiber.NewError(fiber.StatusBadRequest, "student_id wajib diisi")
	}

	b, _, err := pc.Query.ExportOversight(c.UserContext(), studentID, dbtime.GetSchoolLocation(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="progress-%s.xlsx"`, studentID))
	return c.Status(fiber.StatusOK).Send(b)
}

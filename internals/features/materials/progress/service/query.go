// file: internals/features/materials/progress/service/query.go
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	hmodel "sekolahku_backend/internals/features/materials/hierarchy/model"
	"sekolahku_backend/internals/features/materials/progress/dto"
	"sekolahku_backend/internals/features/materials/progress/model"
	"sekolahku_backend/internals/constants"
	helper "sekolahku_backend/internals/helpers"
)

// Query: permukaan baca progress. Tidak pernah menulis.
type Query struct {
	DB    *gorm.DB
	Cache ViewCache
}

func NewQuery(db *gorm.DB, cache ViewCache) *Query {
	return &Query{DB: db, Cache: cache}
}

type ownRow struct {
	model.MaterialProgressModel
	MaterialTitle string `gorm:"column:material_title"`
}

// GetOwnProgress: semua agregat milik siswa, last_read_at terbaru dulu.
func (q *Query) GetOwnProgress(ctx context.Context, studentID uuid.UUID) ([]dto.MaterialProgressResponse, error) {
	var rows []ownRow
	if err := q.DB.WithContext(ctx).
		Table("material_progress AS mp").
		Select("mp.*, m.material_title").
		Joins("JOIN materials AS m ON m.material_id = mp.material_progress_material_id").
		Where("mp.material_progress_student_id = ?", studentID).
		Order("mp.material_progress_last_read_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, helper.Storage("list own progress", err)
	}

	out := make([]dto.MaterialProgressResponse, 0, len(rows))
	for _, r := range rows {
		item := dto.NewMaterialProgressResponse(r.MaterialProgressModel)
		item.MaterialTitle = r.MaterialTitle
		out = append(out, item)
	}
	return out, nil
}

// GetOwnSubChapterProgress: agregat (nullable) + baris ledger siswa untuk satu
// materi. NotFound kalau materi tidak ada.
func (q *Query) GetOwnSubChapterProgress(ctx context.Context, studentID, materialID uuid.UUID) (*dto.MaterialViewResponse, error) {
	var token string
	if q.Cache != nil {
		var cached dto.MaterialViewResponse
		var hit bool
		if token, hit = q.Cache.GetView(ctx, studentID, materialID, &cached); hit {
			return &cached, nil
		}
	}

	db := q.DB.WithContext(ctx)

	var mat hmodel.MaterialModel
	if err := db.Select("material_id", "material_title").
		Where("material_id = ?", materialID).
		First(&mat).Error; err != nil {
		return nil, helper.ClassifyDBError("get material", err, "Materi tidak ditemukan")
	}

	view := dto.MaterialViewResponse{SubChapterProgress: []dto.SubChapterProgressResponse{}}

	var mp model.MaterialProgressModel
	err := db.Where("material_progress_student_id = ? AND material_progress_material_id = ?", studentID, materialID).
		First(&mp).Error
	switch {
	case err == nil:
		r := dto.NewMaterialProgressResponse(mp)
		r.MaterialTitle = mat.MaterialTitle
		view.MaterialProgress = &r
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, helper.Storage("get material_progress", err)
	}

	ledger := Ledger{DB: q.DB}
	rows, err := ledger.ListCompletionsForMaterial(ctx, studentID, materialID)
	if err != nil {
		return nil, err
	}
	view.SubChapterProgress = dto.NewSubChapterProgressResponses(rows)

	if q.Cache != nil {
		q.Cache.SetView(ctx, token, view)
	}
	return &view, nil
}

// GetStudentProgressForOversight: laporan read-only untuk admin/guru. Semua
// hitungan hanya atas materi yang bisa diakses kelas siswa.
func (q *Query) GetStudentProgressForOversight(ctx context.Context, studentID uuid.UUID) (*dto.OversightReport, error) {
	db := q.DB.WithContext(ctx)

	var student hmodel.ProfileModel
	if err := db.Where("profile_id = ? AND profile_role = ?", studentID, constants.RoleStudent).
		First(&student).Error; err != nil {
		return nil, helper.ClassifyDBError("get student profile", err, "Siswa tidak ditemukan")
	}

	var materials []hmodel.MaterialModel
	if err := db.Select("material_id", "material_title", "material_class_names").
		Order("material_title ASC").
		Find(&materials).Error; err != nil {
		return nil, helper.Storage("list materials", err)
	}

	var aggs []model.MaterialProgressModel
	if err := db.Where("material_progress_student_id = ?", studentID).
		Find(&aggs).Error; err != nil {
		return nil, helper.Storage("list material_progress", err)
	}
	byMaterial := make(map[uuid.UUID]model.MaterialProgressModel, len(aggs))
	for _, a := range aggs {
		byMaterial[a.MaterialProgressMaterialID] = a
	}

	return BuildOversightReport(student, materials, byMaterial), nil
}

// BuildOversightReport: perhitungan murni laporan oversight.
// Materi yang tidak bisa diakses diabaikan walaupun punya baris progress.
func BuildOversightReport(student hmodel.ProfileModel, materials []hmodel.MaterialModel, byMaterial map[uuid.UUID]model.MaterialProgressModel) *dto.OversightReport {
	rep := &dto.OversightReport{
		StudentID:            student.ProfileID,
		StudentName:          student.ProfileFullName,
		ClassName:            student.ProfileClassName,
		PerMaterialBreakdown: []dto.OversightBreakdown{},
	}

	sum := 0
	for _, mat := range materials {
		if !mat.MaterialClassNames.Allows(student.ProfileClassName) {
			continue
		}
		rep.TotalMaterialsAccessible++

		row := dto.OversightBreakdown{
			MaterialID:    mat.MaterialID,
			MaterialTitle: mat.MaterialTitle,
		}
		if a, ok := byMaterial[mat.MaterialID]; ok {
			last := a.MaterialProgressLastReadAt
			row.Touched = true
			row.CompletedSubChapters = a.MaterialProgressCompletedSubChapters
			row.TotalSubChapters = a.MaterialProgressTotalSubChapters
			row.Percentage = a.MaterialProgressPercentage
			row.LastReadAt = &last
			row.CompletedAt = a.MaterialProgressCompletedAt

			rep.MaterialsTouched++
			if a.MaterialProgressPercentage == 100 {
				rep.MaterialsCompleted++
			}
			sum += a.MaterialProgressPercentage
		}
		rep.PerMaterialBreakdown = append(rep.PerMaterialBreakdown, row)
	}

	rep.AveragePercentage = averagePercentage(sum, rep.TotalMaterialsAccessible)

	// disentuh dulu (terbaru di atas), lalu yang belum disentuh urut judul
	sort.SliceStable(rep.PerMaterialBreakdown, func(i, j int) bool {
		a, b := rep.PerMaterialBreakdown[i], rep.PerMaterialBreakdown[j]
		if a.Touched != b.Touched {
			return a.Touched
		}
		if a.Touched && !a.LastReadAt.Equal(*b.LastReadAt) {
			return a.LastReadAt.After(*b.LastReadAt)
		}
		return a.MaterialTitle < b.MaterialTitle
	})
	return rep
}

// lastActivity: waktu baca terakhir di laporan, nol kalau belum ada.
func lastActivity(rep *dto.OversightReport) time.Time {
	var t time.Time
	for _, b := range rep.PerMaterialBreakdown {
		if b.LastReadAt != nil && b.LastReadAt.After(t) {
			t = *b.LastReadAt
		}
	}
	return t
}

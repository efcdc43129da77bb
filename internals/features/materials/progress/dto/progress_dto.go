// file: internals/features/materials/progress/dto/progress_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	m "sekolahku_backend/internals/features/materials/progress/model"
)

/* =========================================================
 * REQUESTS
 * ========================================================= */

// SetCompletionRequest body POST /progress/sub-chapter.
// Menerima sub_chapter_id maupun subChapterId (klien lama).
type SetCompletionRequest struct {
	SubChapterID      *uuid.UUID `json:"sub_chapter_id"`
	SubChapterIDCamel *uuid.UUID `json:"subChapterId"`
	Completed         *bool      `json:"completed" validate:"required"`
}

// ResolveSubChapterID: snake_case menang kalau dua-duanya dikirim.
func (r SetCompletionRequest) ResolveSubChapterID() (uuid.UUID, bool) {
	if r.SubChapterID != nil && *r.SubChapterID != uuid.Nil {
		return *r.SubChapterID, true
	}
	if r.SubChapterIDCamel != nil && *r.SubChapterIDCamel != uuid.Nil {
		return *r.SubChapterIDCamel, true
	}
	return uuid.Nil, false
}

/* =========================================================
 * RESPONSES
 * ========================================================= */

type SubChapterProgressResponse struct {
	ID           *uuid.UUID `json:"id,omitempty"`
	StudentID    uuid.UUID  `json:"student_id"`
	SubChapterID uuid.UUID  `json:"sub_chapter_id"`
	Completed    bool       `json:"completed"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type MaterialProgressResponse struct {
	ID                   uuid.UUID  `json:"id"`
	StudentID            uuid.UUID  `json:"student_id"`
	MaterialID           uuid.UUID  `json:"material_id"`
	MaterialTitle        string     `json:"material_title,omitempty"`
	CompletedSubChapters int        `json:"completed_sub_chapters"`
	TotalSubChapters     int        `json:"total_sub_chapters"`
	Percentage           int        `json:"percentage"`
	LastReadAt           time.Time  `json:"last_read_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// CompletionResponse: hasil POST, ledger + agregat yang sudah committed.
type CompletionResponse struct {
	SubChapterProgress SubChapterProgressResponse `json:"sub_chapter_progress"`
	MaterialProgress   MaterialProgressResponse   `json:"material_progress"`
}

// MaterialViewResponse: progress siswa sendiri untuk satu materi.
// MaterialProgress null kalau materi belum pernah disentuh.
type MaterialViewResponse struct {
	MaterialProgress   *MaterialProgressResponse    `json:"material_progress"`
	SubChapterProgress []SubChapterProgressResponse `json:"sub_chapter_progress"`
}

// OversightBreakdown: satu baris per materi yang bisa diakses siswa.
type OversightBreakdown struct {
	MaterialID           uuid.UUID  `json:"material_id"`
	MaterialTitle        string     `json:"material_title"`
	Touched              bool       `json:"touched"`
	CompletedSubChapters int        `json:"completed_sub_chapters"`
	TotalSubChapters     int        `json:"total_sub_chapters"`
	Percentage           int        `json:"percentage"`
	LastReadAt           *time.Time `json:"last_read_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

type OversightReport struct {
	StudentID                uuid.UUID            `json:"student_id"`
	StudentName              string               `json:"student_name"`
	ClassName                *string              `json:"kelas"`
	TotalMaterialsAccessible int                  `json:"total_materials_accessible"`
	MaterialsTouched         int                  `json:"materials_touched"`
	MaterialsCompleted       int                  `json:"materials_completed"`
	AveragePercentage        int                  `json:"average_percentage"`
	PerMaterialBreakdown     []OversightBreakdown `json:"per_material_breakdown"`
}

/* =========================================================
 * MAPPERS
 * ========================================================= */

func NewSubChapterProgressResponse(mdl m.SubChapterProgressModel) SubChapterProgressResponse {
	out := SubChapterProgressResponse{
		StudentID:    mdl.SubChapterProgressStudentID,
		SubChapterID: mdl.SubChapterProgressSubChapterID,
		Completed:    mdl.SubChapterProgressCompleted,
	}
	// baris default (belum pernah ditulis) tidak punya id / updated_at
	if mdl.SubChapterProgressID != uuid.Nil {
		id := mdl.SubChapterProgressID
		out.ID = &id
	}
	if !mdl.SubChapterProgressUpdatedAt.IsZero() {
		t := mdl.SubChapterProgressUpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func NewSubChapterProgressResponses(rows []m.SubChapterProgressModel) []SubChapterProgressResponse {
	out := make([]SubChapterProgressResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewSubChapterProgressResponse(r))
	}
	return out
}

func NewMaterialProgressResponse(mdl m.MaterialProgressModel) MaterialProgressResponse {
	return MaterialProgressResponse{
		ID:                   mdl.MaterialProgressID,
		StudentID:            mdl.MaterialProgressStudentID,
		MaterialID:           mdl.MaterialProgressMaterialID,
		CompletedSubChapters: mdl.MaterialProgressCompletedSubChapters,
		TotalSubChapters:     mdl.MaterialProgressTotalSubChapters,
		Percentage:           mdl.MaterialProgressPercentage,
		LastReadAt:           mdl.MaterialProgressLastReadAt,
		CompletedAt:          mdl.MaterialProgressCompletedAt,
	}
}

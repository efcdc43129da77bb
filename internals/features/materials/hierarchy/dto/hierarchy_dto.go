// file: internals/features/materials/hierarchy/dto/hierarchy_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	m "sekolahku_backend/internals/features/materials/hierarchy/model"
)

/* =========================================================
 * REQUESTS
 * ========================================================= */

type CreateMaterialRequest struct {
	MaterialTitle        string    `json:"material_title"         validate:"required,min=1,max=200"`
	MaterialDescription  *string   `json:"material_description"   validate:"omitempty,max=5000"`
	MaterialSubjectID    uuid.UUID `json:"material_subject_id"    validate:"required"`
	MaterialClassNames   []string  `json:"material_class_names"   validate:"omitempty,dive,max=40"`
	MaterialThumbnailURL *string   `json:"material_thumbnail_url" validate:"omitempty,url"`
}

// Update (partial JSON): field nil tidak diubah. material_class_names [] →
// materi dibuka untuk semua kelas.
type UpdateMaterialRequest struct {
	MaterialTitle        *string    `json:"material_title"         validate:"omitempty,min=1,max=200"`
	MaterialDescription  *string    `json:"material_description"   validate:"omitempty,max=5000"`
	MaterialSubjectID    *uuid.UUID `json:"material_subject_id"    validate:"omitempty"`
	MaterialClassNames   *[]string  `json:"material_class_names"   validate:"omitempty,dive,max=40"`
	MaterialThumbnailURL *string    `json:"material_thumbnail_url" validate:"omitempty,url"`
}

type CreateChapterRequest struct {
	ChapterTitle       string  `json:"chapter_title"       validate:"required,min=1,max=200"`
	ChapterDescription *string `json:"chapter_description" validate:"omitempty,max=5000"`
}

type UpdateChapterRequest struct {
	ChapterTitle       *string `json:"chapter_title"       validate:"omitempty,min=1,max=200"`
	ChapterDescription *string `json:"chapter_description" validate:"omitempty,max=5000"`
}

type CreateSubChapterRequest struct {
	SubChapterTitle       string  `json:"sub_chapter_title"        validate:"required,min=1,max=200"`
	SubChapterContentType string  `json:"sub_chapter_content_type" validate:"required,oneof=text video file link"`
	SubChapterContent     *string `json:"sub_chapter_content"      validate:"omitempty"`
	SubChapterContentURL  *string `json:"sub_chapter_content_url"  validate:"omitempty,url"`
	SubChapterDuration    *int    `json:"sub_chapter_duration"     validate:"omitempty,min=0,max=1440"`
}

type UpdateSubChapterRequest struct {
	SubChapterTitle       *string `json:"sub_chapter_title"        validate:"omitempty,min=1,max=200"`
	SubChapterContentType *string `json:"sub_chapter_content_type" validate:"omitempty,oneof=text video file link"`
	SubChapterContent     *string `json:"sub_chapter_content"      validate:"omitempty"`
	SubChapterContentURL  *string `json:"sub_chapter_content_url"  validate:"omitempty,url"`
	SubChapterDuration    *int    `json:"sub_chapter_duration"     validate:"omitempty,min=0,max=1440"`
}

/* =========================================================
 * RESPONSES
 * ========================================================= */

type MaterialResponse struct {
	MaterialID           uuid.UUID  `json:"material_id"`
	MaterialTitle        string     `json:"material_title"`
	MaterialDescription  *string    `json:"material_description,omitempty"`
	MaterialSubjectID    uuid.UUID  `json:"material_subject_id"`
	MaterialSubjectName  *string    `json:"material_subject_name,omitempty"`
	MaterialClassNames   []string   `json:"material_class_names"`
	MaterialThumbnailURL *string    `json:"material_thumbnail_url,omitempty"`
	MaterialCreatedBy    *uuid.UUID `json:"material_created_by,omitempty"`
	MaterialCreatedAt    time.Time  `json:"material_created_at"`
	MaterialUpdatedAt    time.Time  `json:"material_updated_at"`
}

type ChapterResponse struct {
	ChapterID          uuid.UUID `json:"chapter_id"`
	ChapterMaterialID  uuid.UUID `json:"chapter_material_id"`
	ChapterTitle       string    `json:"chapter_title"`
	ChapterDescription *string   `json:"chapter_description,omitempty"`
	ChapterOrderIndex  int       `json:"chapter_order_index"`
	ChapterCreatedAt   time.Time `json:"chapter_created_at"`
}

type SubChapterResponse struct {
	SubChapterID          uuid.UUID `json:"sub_chapter_id"`
	SubChapterChapterID   uuid.UUID `json:"sub_chapter_chapter_id"`
	SubChapterTitle       string    `json:"sub_chapter_title"`
	SubChapterContentType string    `json:"sub_chapter_content_type"`
	SubChapterContent     *string   `json:"sub_chapter_content,omitempty"`
	SubChapterContentURL  *string   `json:"sub_chapter_content_url,omitempty"`
	SubChapterDuration    *int      `json:"sub_chapter_duration,omitempty"`
	SubChapterOrderIndex  int       `json:"sub_chapter_order_index"`
	SubChapterCreatedAt   time.Time `json:"sub_chapter_created_at"`
}

type ChapterTree struct {
	ChapterResponse
	SubChapters []SubChapterResponse `json:"sub_chapters"`
}

// MaterialTree: materi + bab (urut order index) + sub bab per bab.
type MaterialTree struct {
	Material MaterialResponse `json:"material"`
	Chapters []ChapterTree    `json:"chapters"`
}

// Flatten: urutan baca linear (bab lalu sub bab).
func (t MaterialTree) Flatten() []SubChapterResponse {
	var out []SubChapterResponse
	for _, ch := range t.Chapters {
		out = append(out, ch.SubChapters...)
	}
	return out
}

/* =========================================================
 * MAPPERS
 * ========================================================= */

func (r CreateMaterialRequest) ToModel(createdBy *uuid.UUID) m.MaterialModel {
	return m.MaterialModel{
		MaterialTitle:       r.MaterialTitle,
		MaterialDescription: r.MaterialDescription,
		MaterialSubjectID:   r.MaterialSubjectID,
		MaterialClassNames:  m.ClassList(r.MaterialClassNames).Normalize(),
		MaterialThumbnail:   r.MaterialThumbnailURL,
		MaterialCreatedBy:   createdBy,
	}
}

func NewMaterialResponse(mdl m.MaterialModel, subjectName *string) MaterialResponse {
	classes := []string(mdl.MaterialClassNames)
	if classes == nil {
		classes = []string{}
	}
	return MaterialResponse{
		MaterialID:           mdl.MaterialID,
		MaterialTitle:        mdl.MaterialTitle,
		MaterialDescription:  mdl.MaterialDescription,
		MaterialSubjectID:    mdl.MaterialSubjectID,
		MaterialSubjectName:  subjectName,
		MaterialClassNames:   classes,
		MaterialThumbnailURL: mdl.MaterialThumbnail,
		MaterialCreatedBy:    mdl.MaterialCreatedBy,
		MaterialCreatedAt:    mdl.MaterialCreatedAt,
		MaterialUpdatedAt:    mdl.MaterialUpdatedAt,
	}
}

func NewMaterialResponses(rows []m.MaterialModel) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewMaterialResponse(r, nil))
	}
	return out
}

func NewChapterResponse(mdl m.ChapterModel) ChapterResponse {
	return ChapterResponse{
		ChapterID:          mdl.ChapterID,
		ChapterMaterialID:  mdl.ChapterMaterialID,
		ChapterTitle:       mdl.ChapterTitle,
		ChapterDescription: mdl.ChapterDescription,
		ChapterOrderIndex:  mdl.ChapterOrderIndex,
		ChapterCreatedAt:   mdl.ChapterCreatedAt,
	}
}

func NewChapterResponses(rows []m.ChapterModel) []ChapterResponse {
	out := make([]ChapterResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewChapterResponse(r))
	}
	return out
}

func NewSubChapterResponse(mdl m.SubChapterModel) SubChapterResponse {
	return SubChapterResponse{
		SubChapterID:          mdl.SubChapterID,
		SubChapterChapterID:   mdl.SubChapterChapterID,
		SubChapterTitle:       mdl.SubChapterTitle,
		SubChapterContentType: mdl.SubChapterContentType,
		SubChapterContent:     mdl.SubChapterContent,
		SubChapterContentURL:  mdl.SubChapterContentURL,
		SubChapterDuration:    mdl.SubChapterDuration,
		SubChapterOrderIndex:  mdl.SubChapterOrderIndex,
		SubChapterCreatedAt:   mdl.SubChapterCreatedAt,
	}
}

func NewSubChapterResponses(rows []m.SubChapterModel) []SubChapterResponse {
	out := make([]SubChapterResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewSubChapterResponse(r))
	}
	return out
}

// file: internals/features/materials/hierarchy/model/material_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Jenis konten sub bab
const (
	ContentText  = "text"
	ContentVideo = "video"
	ContentFile  = "file"
	ContentLink  = "link"
)

var ContentKinds = []string{ContentText, ContentVideo, ContentFile, ContentLink}

func IsContentKind(s string) bool {
	for _, k := range ContentKinds {
		if k == s {
			return true
		}
	}
	return false
}

// MaterialModel: unit belajar tingkat atas (materi).
type MaterialModel struct {
	MaterialID          uuid.UUID  `gorm:"column:material_id;type:uuid;primaryKey"                 json:"material_id"`
	MaterialTitle       string     `gorm:"column:material_title;type:varchar(200);not null"         json:"material_title"`
	MaterialDescription *string    `gorm:"column:material_description;type:text"                    json:"material_description,omitempty"`
	MaterialSubjectID   uuid.UUID  `gorm:"column:material_subject_id;type:uuid;not null;index"      json:"material_subject_id"`
	MaterialClassNames  ClassList  `gorm:"column:material_class_names"                               json:"material_class_names"`
	MaterialThumbnail   *string    `gorm:"column:material_thumbnail_url;type:text"                  json:"material_thumbnail_url,omitempty"`
	MaterialCreatedBy   *uuid.UUID `gorm:"column:material_created_by;type:uuid"                     json:"material_created_by,omitempty"`
	MaterialCreatedAt   time.Time  `gorm:"column:material_created_at;not null"                      json:"material_created_at"`
	MaterialUpdatedAt   time.Time  `gorm:"column:material_updated_at;not null"                      json:"material_updated_at"`
}

func (MaterialModel) TableName() string { return "materials" }

func (m *MaterialModel) BeforeCreate(tx *gorm.DB) error {
	if m.MaterialID == uuid.Nil {
		m.MaterialID = uuid.New()
	}
	now := time.Now()
	if m.MaterialCreatedAt.IsZero() {
		m.MaterialCreatedAt = now
	}
	if m.MaterialUpdatedAt.IsZero() {
		m.MaterialUpdatedAt = m.MaterialCreatedAt
	}
	return nil
}

// ChapterModel: bab di dalam materi. Urutan eksplisit lewat order index,
// unik per materi.
type ChapterModel struct {
	ChapterID          uuid.UUID `gorm:"column:chapter_id;type:uuid;primaryKey"                                           json:"chapter_id"`
	ChapterMaterialID  uuid.UUID `gorm:"column:chapter_material_id;type:uuid;not null;uniqueIndex:uq_chapter_order,priority:1" json:"chapter_material_id"`
	ChapterTitle       string    `gorm:"column:chapter_title;type:varchar(200);not null"                                  json:"chapter_title"`
	ChapterDescription *string   `gorm:"column:chapter_description;type:text"                                             json:"chapter_description,omitempty"`
	ChapterOrderIndex  int       `gorm:"column:chapter_order_index;not null;uniqueIndex:uq_chapter_order,priority:2"      json:"chapter_order_index"`
	ChapterCreatedAt   time.Time `gorm:"column:chapter_created_at;not null"                                               json:"chapter_created_at"`
}

func (ChapterModel) TableName() string { return "material_chapters" }

func (m *ChapterModel) BeforeCreate(tx *gorm.DB) error {
	if m.ChapterID == uuid.Nil {
		m.ChapterID = uuid.New()
	}
	if m.ChapterCreatedAt.IsZero() {
		m.ChapterCreatedAt = time.Now()
	}
	return nil
}

// SubChapterModel: sub bab, daun hierarki dan unit pelacakan progress.
type SubChapterModel struct {
	SubChapterID          uuid.UUID `gorm:"column:sub_chapter_id;type:uuid;primaryKey"                                                   json:"sub_chapter_id"`
	SubChapterChapterID   uuid.UUID `gorm:"column:sub_chapter_chapter_id;type:uuid;not null;uniqueIndex:uq_sub_chapter_order,priority:1" json:"sub_chapter_chapter_id"`
	SubChapterTitle       string    `gorm:"column:sub_chapter_title;type:varchar(200);not null"                                          json:"sub_chapter_title"`
	SubChapterContent     *string   `gorm:"column:sub_chapter_content;type:text"                                                         json:"sub_chapter_content,omitempty"`
	SubChapterContentType string    `gorm:"column:sub_chapter_content_type;type:varchar(10);not null"                                    json:"sub_chapter_content_type"`
	SubChapterContentURL  *string   `gorm:"column:sub_chapter_content_url;type:text"                                                     json:"sub_chapter_content_url,omitempty"`
	SubChapterDuration    *int      `gorm:"column:sub_chapter_duration"                                                                  json:"sub_chapter_duration,omitempty"`
	SubChapterOrderIndex  int       `gorm:"column:sub_chapter_order_index;not null;uniqueIndex:uq_sub_chapter_order,priority:2"          json:"sub_chapter_order_index"`
	SubChapterCreatedAt   time.Time `gorm:"column:sub_chapter_created_at;not null"                                                       json:"sub_chapter_created_at"`
}

func (SubChapterModel) TableName() string { return "material_sub_chapters" }

func (m *SubChapterModel) BeforeCreate(tx *gorm.DB) error {
	if m.SubChapterID == uuid.Nil {
		m.SubChapterID = uuid.New()
	}
	if m.SubChapterCreatedAt.IsZero() {
		m.SubChapterCreatedAt = time.Now()
	}
	return nil
}

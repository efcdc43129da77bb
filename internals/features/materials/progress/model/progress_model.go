// file: internals/features/materials/progress/model/progress_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubChapterProgressModel: ledger per (siswa, sub bab). Maksimal satu baris
// per pasangan; ditulis hanya lewat Ledger.SetSubChapterCompletion.
type SubChapterProgressModel struct {
	SubChapterProgressID           uuid.UUID `gorm:"column:sub_chapter_progress_id;type:uuid;primaryKey"                                                        json:"sub_chapter_progress_id"`
	SubChapterProgressStudentID    uuid.UUID `gorm:"column:sub_chapter_progress_student_id;type:uuid;not null;uniqueIndex:uq_sub_chapter_progress,priority:1"   json:"sub_chapter_progress_student_id"`
	SubChapterProgressSubChapterID uuid.UUID `gorm:"column:sub_chapter_progress_sub_chapter_id;type:uuid;not null;uniqueIndex:uq_sub_chapter_progress,priority:2;index" json:"sub_chapter_progress_sub_chapter_id"`
	SubChapterProgressCompleted    bool      `gorm:"column:sub_chapter_progress_completed;not null"                                                             json:"sub_chapter_progress_completed"`
	SubChapterProgressUpdatedAt    time.Time `gorm:"column:sub_chapter_progress_updated_at;not null"                                                            json:"sub_chapter_progress_updated_at"`
}

func (SubChapterProgressModel) TableName() string { return "sub_chapter_progress" }

func (m *SubChapterProgressModel) BeforeCreate(tx *gorm.DB) error {
	if m.SubChapterProgressID == uuid.Nil {
		m.SubChapterProgressID = uuid.New()
	}
	return nil
}

// MaterialProgressModel: agregat turunan per (siswa, materi). Hanya
// Aggregator yang boleh menulis tabel ini.
type MaterialProgressModel struct {
	MaterialProgressID                   uuid.UUID  `gorm:"column:material_progress_id;type:uuid;primaryKey"                                                       json:"material_progress_id"`
	MaterialProgressStudentID            uuid.UUID  `gorm:"column:material_progress_student_id;type:uuid;not null;uniqueIndex:uq_material_progress,priority:1"     json:"material_progress_student_id"`
	MaterialProgressMaterialID           uuid.UUID  `gorm:"column:material_progress_material_id;type:uuid;not null;uniqueIndex:uq_material_progress,priority:2;index" json:"material_progress_material_id"`
	MaterialProgressCompletedSubChapters int        `gorm:"column:material_progress_completed_sub_chapters;not null"                                               json:"material_progress_completed_sub_chapters"`
	MaterialProgressTotalSubChapters     int        `gorm:"column:material_progress_total_sub_chapters;not null"                                                   json:"material_progress_total_sub_chapters"`
	MaterialProgressPercentage           int        `gorm:"column:material_progress_percentage;not null"                                                           json:"material_progress_percentage"`
	MaterialProgressLastReadAt           time.Time  `gorm:"column:material_progress_last_read_at;not null"                                                         json:"material_progress_last_read_at"`
	MaterialProgressCompletedAt          *time.Time `gorm:"column:material_progress_completed_at"                                                                  json:"material_progress_completed_at,omitempty"`
}

func (MaterialProgressModel) TableName() string { return "material_progress" }

func (m *MaterialProgressModel) BeforeCreate(tx *gorm.DB) error {
	if m.MaterialProgressID == uuid.Nil {
		m.MaterialProgressID = uuid.New()
	}
	return nil
}

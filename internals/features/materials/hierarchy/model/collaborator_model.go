package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubjectModel (mapel). CRUD mapel ada di luar repo ini; di sini hanya dibaca
// untuk resolve subject milik materi.
type SubjectModel struct {
	SubjectID        uuid.UUID `gorm:"column:subject_id;type:uuid;primaryKey"          json:"subject_id"`
	SubjectName      string    `gorm:"column:subject_name;type:varchar(120);not null"  json:"subject_name"`
	SubjectCreatedAt time.Time `gorm:"column:subject_created_at;not null"              json:"subject_created_at"`
}

func (SubjectModel) TableName() string { return "subjects" }

func (m *SubjectModel) BeforeCreate(tx *gorm.DB) error {
	if m.SubjectID == uuid.Nil {
		m.SubjectID = uuid.New()
	}
	if m.SubjectCreatedAt.IsZero() {
		m.SubjectCreatedAt = time.Now()
	}
	return nil
}

// ProfileModel akun (admin/guru/siswa). Provisioning akun di luar repo ini;
// oversight membaca kelas siswa dari sini.
type ProfileModel struct {
	ProfileID        uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"           json:"profile_id"`
	ProfileFullName  string    `gorm:"column:profile_full_name;type:varchar(150);not null" json:"profile_full_name"`
	ProfileRole      string    `gorm:"column:profile_role;type:varchar(10);not null;index" json:"profile_role"`
	ProfileClassName *string   `gorm:"column:profile_class_name;type:varchar(40)"       json:"profile_class_name,omitempty"`
	ProfileIsActive  bool      `gorm:"column:profile_is_active;not null"                json:"profile_is_active"`
	ProfileCreatedAt time.Time `gorm:"column:profile_created_at;not null"               json:"profile_created_at"`
}

func (ProfileModel) TableName() string { return "profiles" }

func (m *ProfileModel) BeforeCreate(tx *gorm.DB) error {
	if m.ProfileID == uuid.Nil {
		m.ProfileID = uuid.New()
	}
	if m.ProfileCreatedAt.IsZero() {
		m.ProfileCreatedAt = time.Now()
	}
	return nil
}

package seeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sekolahku_backend/internals/databases/dbtest"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
	progressModel "sekolahku_backend/internals/features/materials/progress/model"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

const sampleYAML = `
subjects:
  - id: 0d6c8a1e-3f55-4d5e-9b62-0a8f5b1c7e01
    name: Informatika
profiles:
  - id: 5b3e9f40-1c2d-4e6f-8a7b-9c0d1e2f3a41
    full_name: Budi Santoso
    role: siswa
    kelas: 7A
  - id: 7a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c42
    full_name: Ibu Sari
    role: guru
materials:
  - title: Algoritma Dasar
    subject_id: 0d6c8a1e-3f55-4d5e-9b62-0a8f5b1c7e01
    kelas: [" 7A ", 7B, 7A]
    chapters:
      - title: Pengenalan
        sub_chapters:
          - title: Apa itu algoritma
          - title: Video pengantar
            content_type: video
            content_url: https://example.com/v/1
            duration: 12
      - title: Flowchart
        sub_chapters:
          - title: Simbol flowchart
          - title: Lembar kerja
            content_url: https://cdn.sekolah.id/lkpd-flowchart.pdf
`

var studentID = uuid.MustParse("5b3e9f40-1c2d-4e6f-8a7b-9c0d1e2f3a41")

func TestParse_DerivesStableIDs(t *testing.T) {
	a, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Len(t, a.Materials, 1)
	m := a.Materials[0]
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, m.ID, b.Materials[0].ID)
	assert.Equal(t, m.Chapters[1].SubChapters[0].ID, b.Materials[0].Chapters[1].SubChapters[0].ID)
	assert.NotEqual(t, m.Chapters[0].ID, m.Chapters[1].ID)
	require.NotNil(t, m.Chapters[0].SubChapters[1].Duration)
	assert.Equal(t, 12, *m.Chapters[0].SubChapters[1].Duration)
}

func TestParse_Rejects(t *testing.T) {
	subject := "0d6c8a1e-3f55-4d5e-9b62-0a8f5b1c7e01"
	tests := []struct {
		name string
		yaml string
	}{
		{"broken yaml", "subjects: [\n"},
		{"subject without name", "subjects:\n  - name: ''\n"},
		{"profile without id", "profiles:\n  - full_name: X\n    role: siswa\n"},
		{"unknown role", "profiles:\n  - id: " + uuid.NewString() + "\n    role: kepala\n"},
		{"material without subject", "materials:\n  - title: A\n"},
		{"material without title", "materials:\n  - subject_id: " + subject + "\n"},
		{"chapter without title", "materials:\n  - title: A\n    subject_id: " + subject + "\n    chapters:\n      - title: ''\n"},
		{"bad content type", "materials:\n  - title: A\n    subject_id: " + subject +
			"\n    chapters:\n      - title: B\n        sub_chapters:\n          - title: C\n            content_type: quiz\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "tidak-ada.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	fx, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, fx.Profiles, 2)
}

func flatTitles(t *testing.T, db *gorm.DB, materialID uuid.UUID) []string {
	t.Helper()
	var titles []string
	require.NoError(t, db.Model(&model.SubChapterModel{}).
		Joins("JOIN material_chapters ON material_chapters.chapter_id = material_sub_chapters.sub_chapter_chapter_id").
		Where("material_chapters.chapter_material_id = ?", materialID).
		Order("material_chapters.chapter_order_index, material_sub_chapters.sub_chapter_order_index").
		Pluck("material_sub_chapters.sub_chapter_title", &titles).Error)
	return titles
}

func TestApply_InsertsAndIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	fx, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	now := dbtest.NewClock().Now()

	res, err := Apply(db, fx, now)
	require.NoError(t, err)
	assert.Equal(t, Result{Subjects: 1, Profiles: 2, Materials: 1, Chapters: 2, SubChapters: 4}, res)

	m := fx.Materials[0]
	var mat model.MaterialModel
	require.NoError(t, db.First(&mat, "material_id = ?", m.ID).Error)
	assert.Equal(t, []string{"7A", "7B"}, []string(mat.MaterialClassNames))
	assert.Equal(t, []string{"Apa itu algoritma", "Video pengantar", "Simbol flowchart", "Lembar kerja"}, flatTitles(t, db, m.ID))

	var video model.SubChapterModel
	require.NoError(t, db.First(&video, "sub_chapter_id = ?", m.Chapters[0].SubChapters[1].ID).Error)
	assert.Equal(t, model.ContentVideo, video.SubChapterContentType)
	var lkpd model.SubChapterModel
	require.NoError(t, db.First(&lkpd, "sub_chapter_id = ?", m.Chapters[1].SubChapters[1].ID).Error)
	assert.Equal(t, model.ContentFile, lkpd.SubChapterContentType)

	var guru model.ProfileModel
	require.NoError(t, db.First(&guru, "profile_id = ?", fx.Profiles[1].ID).Error)
	assert.Nil(t, guru.ProfileClassName)
	assert.True(t, guru.ProfileIsActive)

	res, err = Apply(db, fx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, res.SubChapters)

	var n int64
	require.NoError(t, db.Model(&model.SubChapterModel{}).Count(&n).Error)
	assert.Equal(t, int64(4), n)
	require.NoError(t, db.Model(&model.MaterialModel{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestApply_ReorderAndPruneKeepsProgressConsistent(t *testing.T) {
	db := dbtest.Open(t)
	clock := dbtest.NewClock()
	fx, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	_, err = Apply(db, fx, clock.Now())
	require.NoError(t, err)

	m := fx.Materials[0]
	ledger := psvc.NewLedger(db, nil)
	ledger.Now = clock.Now
	ctx := context.Background()
	for _, sc := range []uuid.UUID{m.Chapters[0].SubChapters[0].ID, m.Chapters[1].SubChapters[0].ID} {
		_, err := ledger.SetSubChapterCompletion(ctx, studentID, sc, true)
		require.NoError(t, err)
	}

	// bab ditukar, "Video pengantar" dihapus dari file
	next, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	nm := &next.Materials[0]
	nm.Chapters[0].SubChapters = nm.Chapters[0].SubChapters[:1]
	nm.Chapters[0], nm.Chapters[1] = nm.Chapters[1], nm.Chapters[0]

	res, err := Apply(db, next, clock.Advance(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recomputed)
	assert.Equal(t, []string{"Simbol flowchart", "Lembar kerja", "Apa itu algoritma"}, flatTitles(t, db, m.ID))

	var orphans int64
	require.NoError(t, db.Model(&progressModel.SubChapterProgressModel{}).
		Where("sub_chapter_progress_sub_chapter_id = ?", m.Chapters[0].SubChapters[1].ID).
		Count(&orphans).Error)
	assert.Zero(t, orphans)

	var agg progressModel.MaterialProgressModel
	require.NoError(t, db.First(&agg, "material_progress_student_id = ? AND material_progress_material_id = ?",
		studentID, m.ID).Error)
	assert.Equal(t, 3, agg.MaterialProgressTotalSubChapters)
	assert.Equal(t, 2, agg.MaterialProgressCompletedSubChapters)
	assert.Equal(t, 67, agg.MaterialProgressPercentage)
	assert.Nil(t, agg.MaterialProgressCompletedAt)
}

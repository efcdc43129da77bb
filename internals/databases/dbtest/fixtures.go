package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
)

// Fixture kecil untuk test: baris ditulis langsung lewat model, tanpa
// melewati service.

func Subject(t testing.TB, db *gorm.DB, name string) model.SubjectModel {
	t.Helper()
	s := model.SubjectModel{SubjectName: name}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func Profile(t testing.TB, db *gorm.DB, role, kelas string) model.ProfileModel {
	t.Helper()
	p := model.ProfileModel{
		ProfileFullName: fmt.Sprintf("%s %s", role, uuid.NewString()[:8]),
		ProfileRole:     role,
		ProfileIsActive: true,
	}
	if kelas != "" {
		p.ProfileClassName = &kelas
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func Student(t testing.TB, db *gorm.DB, kelas string) model.ProfileModel {
	t.Helper()
	return Profile(t, db, constants.RoleStudent, kelas)
}

func Material(t testing.TB, db *gorm.DB, subjectID uuid.UUID, title string, kelas ...string) model.MaterialModel {
	t.Helper()
	m := model.MaterialModel{
		MaterialTitle:      title,
		MaterialSubjectID:  subjectID,
		MaterialClassNames: model.ClassList(kelas).Normalize(),
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func Chapter(t testing.TB, db *gorm.DB, materialID uuid.UUID, order int) model.ChapterModel {
	t.Helper()
	ch := model.ChapterModel{
		ChapterMaterialID: materialID,
		ChapterTitle:      fmt.Sprintf("Bab %d", order+1),
		ChapterOrderIndex: order,
	}
	require.NoError(t, db.Create(&ch).Error)
	return ch
}

func SubChapter(t testing.TB, db *gorm.DB, chapterID uuid.UUID, order int) model.SubChapterModel {
	t.Helper()
	sc := model.SubChapterModel{
		SubChapterChapterID:   chapterID,
		SubChapterTitle:       fmt.Sprintf("Sub bab %d", order+1),
		SubChapterContentType: model.ContentText,
		SubChapterOrderIndex:  order,
	}
	require.NoError(t, db.Create(&sc).Error)
	return sc
}

// Tree membuat satu materi dengan len(shape) bab; shape[i] = jumlah sub bab
// di bab ke-i. Sub bab dikembalikan datar, urut bab lalu sub bab.
func Tree(t testing.TB, db *gorm.DB, subjectID uuid.UUID, title string, shape []int, kelas ...string) (model.MaterialModel, []model.SubChapterModel) {
	t.Helper()
	mat := Material(t, db, subjectID, title, kelas...)
	var subs []model.SubChapterModel
	for i, n := range shape {
		ch := Chapter(t, db, mat.MaterialID, i)
		for j := 0; j < n; j++ {
			subs = append(subs, SubChapter(t, db, ch.ChapterID, j))
		}
	}
	return mat, subs
}

// Clock: jam manual untuk field Now di service.
type Clock struct{ T time.Time }

func NewClock() *Clock {
	return &Clock{T: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) time.Time {
	c.T = c.T.Add(d)
	return c.T
}

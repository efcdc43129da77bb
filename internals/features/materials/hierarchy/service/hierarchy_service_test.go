package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sekolahku_backend/internals/databases/dbtest"
	"sekolahku_backend/internals/features/materials/hierarchy/dto"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
	pmodel "sekolahku_backend/internals/features/materials/progress/model"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
)

type recorder struct {
	materials []uuid.UUID
}

func (r *recorder) GetView(context.Context, uuid.UUID, uuid.UUID, any) (string, bool) { return "", false }
func (r *recorder) SetView(context.Context, string, any)                             {}
func (r *recorder) Invalidate(context.Context, uuid.UUID, uuid.UUID)                 {}
func (r *recorder) InvalidateMaterial(_ context.Context, m uuid.UUID) {
	r.materials = append(r.materials, m)
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	ledger  *psvc.Ledger
	cache   *recorder
	clock   *dbtest.Clock
	subject model.SubjectModel
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := dbtest.NewClock()
	cache := &recorder{}
	svc := New(db, cache)
	svc.Now = clock.Now
	ledger := psvc.NewLedger(db, nil)
	ledger.Now = clock.Now
	return fixture{
		db:      db,
		svc:     svc,
		ledger:  ledger,
		cache:   cache,
		clock:   clock,
		subject: dbtest.Subject(t, db, "Informatika"),
	}
}

func strPtr(s string) *string { return &s }

func TestCreateMaterial(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := uuid.New()

	mat, err := f.svc.CreateMaterial(ctx, dto.CreateMaterialRequest{
		MaterialTitle:      "  Algoritma Dasar ",
		MaterialSubjectID:  f.subject.SubjectID,
		MaterialClassNames: []string{"7A", " 7A", "", "7B"},
	}, &admin)
	require.NoError(t, err)
	assert.Equal(t, "Algoritma Dasar", mat.MaterialTitle)
	assert.Equal(t, model.ClassList{"7A", "7B"}, mat.MaterialClassNames)

	got, subjectName, err := f.svc.GetMaterial(ctx, mat.MaterialID)
	require.NoError(t, err)
	require.NotNil(t, subjectName)
	assert.Equal(t, "Informatika", *subjectName)
	assert.Equal(t, model.ClassList{"7A", "7B"}, got.MaterialClassNames)
	require.NotNil(t, got.MaterialCreatedBy)
	assert.Equal(t, admin, *got.MaterialCreatedBy)

	_, err = f.svc.CreateMaterial(ctx, dto.CreateMaterialRequest{
		MaterialTitle:     "Tanpa mapel",
		MaterialSubjectID: uuid.New(),
	}, nil)
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestUpdateMaterialClassNames(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := dbtest.Material(t, f.db, f.subject.SubjectID, "Jaringan", "8B")

	empty := []string{}
	updated, err := f.svc.UpdateMaterial(ctx, mat.MaterialID, dto.UpdateMaterialRequest{
		MaterialTitle:      strPtr("Jaringan Komputer"),
		MaterialClassNames: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jaringan Komputer", updated.MaterialTitle)
	assert.Nil(t, updated.MaterialClassNames)
	assert.True(t, IsVisibleTo(*updated, strPtr("9C")))
	assert.Contains(t, f.cache.materials, mat.MaterialID)

	stored, _, err := f.svc.GetMaterial(ctx, mat.MaterialID)
	require.NoError(t, err)
	assert.Nil(t, stored.MaterialClassNames)

	// dari terbuka kembali dibatasi
	only := []string{"9C", " 9C "}
	updated, err = f.svc.UpdateMaterial(ctx, mat.MaterialID, dto.UpdateMaterialRequest{MaterialClassNames: &only})
	require.NoError(t, err)
	assert.Equal(t, model.ClassList{"9C"}, updated.MaterialClassNames)
	assert.False(t, IsVisibleTo(*updated, strPtr("8B")))

	_, err = f.svc.UpdateMaterial(ctx, uuid.New(), dto.UpdateMaterialRequest{MaterialTitle: strPtr("x")})
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestUpdateChapterAndSubChapter_ReturnStoredRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat, subs := dbtest.Tree(t, f.db, f.subject.SubjectID, "Basis Data", []int{1})

	ch, err := f.svc.UpdateChapter(ctx, subs[0].SubChapterChapterID, dto.UpdateChapterRequest{
		ChapterTitle:       strPtr("  Normalisasi  "),
		ChapterDescription: strPtr("1NF sampai 3NF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Normalisasi", ch.ChapterTitle)
	require.NotNil(t, ch.ChapterDescription)
	assert.Equal(t, "1NF sampai 3NF", *ch.ChapterDescription)
	assert.Equal(t, mat.MaterialID, ch.ChapterMaterialID)
	assert.Contains(t, f.cache.materials, mat.MaterialID)

	dur := 15
	sc, err := f.svc.UpdateSubChapter(ctx, subs[0].SubChapterID, dto.UpdateSubChapterRequest{
		SubChapterContentType: strPtr(" VIDEO "),
		SubChapterContentURL:  strPtr("https://youtu.be/abc"),
		SubChapterDuration:    &dur,
	})
	require.NoError(t, err)
	assert.Equal(t, "video", sc.SubChapterContentType)
	require.NotNil(t, sc.SubChapterDuration)
	assert.Equal(t, 15, *sc.SubChapterDuration)
	assert.Equal(t, subs[0].SubChapterTitle, sc.SubChapterTitle)

	_, err = f.svc.UpdateSubChapter(ctx, subs[0].SubChapterID, dto.UpdateSubChapterRequest{
		SubChapterContentType: strPtr("podcast"),
	})
	assert.ErrorIs(t, err, helper.ErrInvalid)

	_, err = f.svc.UpdateChapter(ctx, uuid.New(), dto.UpdateChapterRequest{ChapterTitle: strPtr("x")})
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestIsVisibleTo(t *testing.T) {
	tests := []struct {
		name    string
		classes model.ClassList
		kelas   *string
		want    bool
	}{
		{"unrestricted, with class", nil, strPtr("X-A"), true},
		{"unrestricted, no class", nil, nil, true},
		{"restricted, match", model.ClassList{"X-A"}, strPtr("X-A"), true},
		{"restricted, other class", model.ClassList{"X-A"}, strPtr("X-B"), false},
		{"restricted, no class", model.ClassList{"X-A"}, nil, false},
		{"restricted, case sensitive", model.ClassList{"X-A"}, strPtr("x-a"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisibleTo(model.MaterialModel{MaterialClassNames: tt.classes}, tt.kelas))
		})
	}
}

func TestListMaterials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := dbtest.Subject(t, f.db, "Matematika")
	dbtest.Material(t, f.db, f.subject.SubjectID, "Algoritma Dasar")
	dbtest.Material(t, f.db, f.subject.SubjectID, "Basis Data", "8B")
	dbtest.Material(t, f.db, other.SubjectID, "Pecahan", "7A")

	rows, total, err := f.svc.ListMaterials(ctx, ListFilter{}, helper.Paging{Page: 1, PerPage: 2, Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	rows, total, err = f.svc.ListMaterials(ctx, ListFilter{Search: "DATA"}, helper.Paging{Page: 1, PerPage: 20, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Basis Data", rows[0].MaterialTitle)

	visible, err := f.svc.ListVisibleMaterials(ctx, strPtr("7A"), ListFilter{})
	require.NoError(t, err)
	titles := []string{}
	for _, m := range visible {
		titles = append(titles, m.MaterialTitle)
	}
	assert.ElementsMatch(t, []string{"Algoritma Dasar", "Pecahan"}, titles)

	visible, err = f.svc.ListVisibleMaterials(ctx, strPtr("7A"), ListFilter{SubjectID: &other.SubjectID})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Pecahan", visible[0].MaterialTitle)
}

func TestChapterOrderIndex(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := dbtest.Material(t, f.db, f.subject.SubjectID, "Algoritma")

	for i, title := range []string{"Pengenalan", "Percabangan", "Perulangan"} {
		ch, err := f.svc.CreateChapter(ctx, mat.MaterialID, dto.CreateChapterRequest{ChapterTitle: title})
		require.NoError(t, err)
		assert.Equal(t, i, ch.ChapterOrderIndex)
	}

	chapters, err := f.svc.ListChapters(ctx, mat.MaterialID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, "Percabangan", chapters[1].ChapterTitle)

	// hapus bab tengah: bab baru tetap max+1, tidak mengisi celah
	require.NoError(t, f.svc.DeleteChapter(ctx, chapters[1].ChapterID))
	ch, err := f.svc.CreateChapter(ctx, mat.MaterialID, dto.CreateChapterRequest{ChapterTitle: "Fungsi"})
	require.NoError(t, err)
	assert.Equal(t, 3, ch.ChapterOrderIndex)

	_, err = f.svc.CreateChapter(ctx, uuid.New(), dto.CreateChapterRequest{ChapterTitle: "x"})
	assert.ErrorIs(t, err, helper.ErrNotFound)
	_, err = f.svc.ListChapters(ctx, uuid.New())
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestCreateSubChapter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := dbtest.Material(t, f.db, f.subject.SubjectID, "Algoritma")
	ch := dbtest.Chapter(t, f.db, mat.MaterialID, 0)

	dur := 15
	sc, err := f.svc.CreateSubChapter(ctx, ch.ChapterID, dto.CreateSubChapterRequest{
		SubChapterTitle:       "Video pengantar",
		SubChapterContentType: "VIDEO",
		SubChapterContentURL:  strPtr("https://example.com/v.mp4"),
		SubChapterDuration:    &dur,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ContentVideo, sc.SubChapterContentType)
	assert.Equal(t, 0, sc.SubChapterOrderIndex)

	sc2, err := f.svc.CreateSubChapter(ctx, ch.ChapterID, dto.CreateSubChapterRequest{
		SubChapterTitle: "Ringkasan", SubChapterContentType: "text",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sc2.SubChapterOrderIndex)

	_, err = f.svc.CreateSubChapter(ctx, ch.ChapterID, dto.CreateSubChapterRequest{
		SubChapterTitle: "Kuis", SubChapterContentType: "quiz",
	})
	assert.ErrorIs(t, err, helper.ErrInvalid)

	_, err = f.svc.CreateSubChapter(ctx, uuid.New(), dto.CreateSubChapterRequest{
		SubChapterTitle: "x", SubChapterContentType: "text",
	})
	assert.ErrorIs(t, err, helper.ErrNotFound)

	subs, err := f.svc.ListSubChapters(ctx, ch.ChapterID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, sc.SubChapterID, subs[0].SubChapterID)
}

func TestSubChapterChangesRecomputeProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	student := dbtest.Student(t, f.db, "")
	mat, subs := dbtest.Tree(t, f.db, f.subject.SubjectID, "Algoritma", []int{2})

	for _, sc := range subs {
		_, err := f.ledger.SetSubChapterCompletion(ctx, student.ProfileID, sc.SubChapterID, true)
		require.NoError(t, err)
	}
	aggregate := func() pmodel.MaterialProgressModel {
		var row pmodel.MaterialProgressModel
		require.NoError(t, f.db.Where("material_progress_student_id = ? AND material_progress_material_id = ?",
			student.ProfileID, mat.MaterialID).First(&row).Error)
		return row
	}
	require.Equal(t, 100, aggregate().MaterialProgressPercentage)

	// sub bab baru: 2/3
	added, err := f.svc.CreateSubChapter(ctx, subs[0].SubChapterChapterID, dto.CreateSubChapterRequest{
		SubChapterTitle: "Latihan", SubChapterContentType: "text",
	})
	require.NoError(t, err)
	row := aggregate()
	assert.Equal(t, 3, row.MaterialProgressTotalSubChapters)
	assert.Equal(t, 67, row.MaterialProgressPercentage)
	assert.Nil(t, row.MaterialProgressCompletedAt)

	// hapus sub bab yang sudah selesai: 1/2, ledger-nya ikut hilang
	require.NoError(t, f.svc.DeleteSubChapter(ctx, subs[0].SubChapterID))
	row = aggregate()
	assert.Equal(t, 2, row.MaterialProgressTotalSubChapters)
	assert.Equal(t, 1, row.MaterialProgressCompletedSubChapters)
	assert.Equal(t, 50, row.MaterialProgressPercentage)

	var orphans int64
	require.NoError(t, f.db.Model(&pmodel.SubChapterProgressModel{}).
		Where("sub_chapter_progress_sub_chapter_id = ?", subs[0].SubChapterID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	// hapus sub bab yang belum dikerjakan: kembali 100%
	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.DeleteSubChapter(ctx, added.SubChapterID))
	row = aggregate()
	assert.Equal(t, 100, row.MaterialProgressPercentage)
	require.NotNil(t, row.MaterialProgressCompletedAt)
	assert.True(t, row.MaterialProgressCompletedAt.Equal(f.clock.Now()))

	assert.ErrorIs(t, f.svc.DeleteSubChapter(ctx, uuid.New()), helper.ErrNotFound)
}

func TestDeleteMaterialCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	student := dbtest.Student(t, f.db, "")
	mat, subs := dbtest.Tree(t, f.db, f.subject.SubjectID, "Algoritma", []int{1, 2})
	keep, keepSubs := dbtest.Tree(t, f.db, f.subject.SubjectID, "Basis Data", []int{1})

	_, err := f.ledger.SetSubChapterCompletion(ctx, student.ProfileID, subs[0].SubChapterID, true)
	require.NoError(t, err)
	_, err = f.ledger.SetSubChapterCompletion(ctx, student.ProfileID, keepSubs[0].SubChapterID, true)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMaterial(ctx, mat.MaterialID))

	count := func(m any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, f.db.Model(m).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&model.MaterialModel{}, "material_id = ?", mat.MaterialID))
	assert.Zero(t, count(&model.ChapterModel{}, "chapter_material_id = ?", mat.MaterialID))
	assert.Zero(t, count(&model.SubChapterModel{}, "sub_chapter_id = ?", subs[0].SubChapterID))
	assert.Zero(t, count(&pmodel.SubChapterProgressModel{}, "sub_chapter_progress_sub_chapter_id = ?", subs[0].SubChapterID))
	assert.Zero(t, count(&pmodel.MaterialProgressModel{}, "material_progress_material_id = ?", mat.MaterialID))

	assert.Equal(t, int64(1), count(&pmodel.MaterialProgressModel{}, "material_progress_material_id = ?", keep.MaterialID))
	assert.Contains(t, f.cache.materials, mat.MaterialID)

	assert.ErrorIs(t, f.svc.DeleteMaterial(ctx, mat.MaterialID), helper.ErrNotFound)
}

func TestGetTree(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := dbtest.Material(t, f.db, f.subject.SubjectID, "Algoritma")
	// dibuat terbalik: tree tetap urut order index
	ch1 := dbtest.Chapter(t, f.db, mat.MaterialID, 1)
	ch0 := dbtest.Chapter(t, f.db, mat.MaterialID, 0)
	b := dbtest.SubChapter(t, f.db, ch0.ChapterID, 1)
	a := dbtest.SubChapter(t, f.db, ch0.ChapterID, 0)
	c := dbtest.SubChapter(t, f.db, ch1.ChapterID, 0)
	empty := dbtest.Chapter(t, f.db, mat.MaterialID, 2)

	tree, got, err := f.svc.GetTree(ctx, mat.MaterialID)
	require.NoError(t, err)
	assert.Equal(t, mat.MaterialID, got.MaterialID)
	require.Len(t, tree.Chapters, 3)
	assert.Equal(t, ch0.ChapterID, tree.Chapters[0].ChapterID)
	assert.Equal(t, empty.ChapterID, tree.Chapters[2].ChapterID)
	assert.NotNil(t, tree.Chapters[2].SubChapters)
	assert.Empty(t, tree.Chapters[2].SubChapters)

	flat := tree.Flatten()
	ids := make([]uuid.UUID, 0, len(flat))
	for _, sc := range flat {
		ids = append(ids, sc.SubChapterID)
	}
	assert.Equal(t, []uuid.UUID{a.SubChapterID, b.SubChapterID, c.SubChapterID}, ids)

	_, _, err = f.svc.GetTree(ctx, uuid.New())
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

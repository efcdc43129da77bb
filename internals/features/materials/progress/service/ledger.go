// file: internals/features/materials/progress/service/ledger.go
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	hmodel "sekolahku_backend/internals/features/materials/hierarchy/model"
	"sekolahku_backend/internals/features/materials/progress/model"
	helper "sekolahku_backend/internals/helpers"
)

// CompletionResult: hasil satu tulis ledger, dua-duanya sudah committed.
type CompletionResult struct {
	SubChapterProgress model.SubChapterProgressModel
	MaterialProgress   model.MaterialProgressModel
}

// Ledger: satu-satunya jalur tulis sub_chapter_progress.
type Ledger struct {
	DB    *gorm.DB
	Cache ViewCache
	Agg   Aggregator
	Now   func() time.Time
}

func NewLedger(db *gorm.DB, cache ViewCache) *Ledger {
	return &Ledger{DB: db, Cache: cache, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// ResolveMaterialID mencari materi pemilik sebuah sub bab lalu mengunci
// FOR SHARE: baris materi dulu, baru baris sub bab. Urutan ini sama dengan
// edit hierarki (FOR UPDATE pada materi), jadi tulis ledger tidak pernah
// menghitung total sub bab yang sedang diubah.
func ResolveMaterialID(tx *gorm.DB, subChapterID uuid.UUID) (uuid.UUID, error) {
	var owner struct{ ChapterMaterialID uuid.UUID }
	if err := tx.Table("material_sub_chapters AS sc").
		Select("ch.chapter_material_id").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("sc.sub_chapter_id = ?", subChapterID).
		Take(&owner).Error; err != nil {
		return uuid.Nil, helper.ClassifyDBError("resolve sub chapter", err, "Sub bab tidak ditemukan")
	}

	var mat hmodel.MaterialModel
	if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("material_id").
		Where("material_id = ?", owner.ChapterMaterialID).
		First(&mat).Error; err != nil {
		return uuid.Nil, helper.ClassifyDBError("lock material", err, "Sub bab tidak ditemukan")
	}

	// bisa sudah terhapus oleh edit yang commit selama kita menunggu kunci materi
	var sc hmodel.SubChapterModel
	if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("sub_chapter_id").
		Where("sub_chapter_id = ?", subChapterID).
		First(&sc).Error; err != nil {
		return uuid.Nil, helper.ClassifyDBError("lock sub chapter", err, "Sub bab tidak ditemukan")
	}
	return mat.MaterialID, nil
}

// SetSubChapterCompletion upsert status selesai (siswa, sub bab) lalu
// menghitung ulang agregat materi di transaksi yang sama. Idempoten: tulis
// ulang dengan nilai sama menghasilkan baris yang sama.
func (l *Ledger) SetSubChapterCompletion(ctx context.Context, studentID, subChapterID uuid.UUID, completed bool) (*CompletionResult, error) {
	if studentID == uuid.Nil {
		return nil, helper.ErrUnauthenticated
	}
	now := l.now()
	var (
		res        CompletionResult
		materialID uuid.UUID
	)

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mid, err := ResolveMaterialID(tx, subChapterID)
		if err != nil {
			return err
		}
		materialID = mid

		// kunci agregat dulu: tulis paralel (siswa, materi) yang sama antre di sini
		row, err := l.Agg.LockRow(tx, studentID, materialID, now)
		if err != nil {
			return err
		}

		rec := model.SubChapterProgressModel{
			SubChapterProgressStudentID:    studentID,
			SubChapterProgressSubChapterID: subChapterID,
			SubChapterProgressCompleted:    completed,
			SubChapterProgressUpdatedAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "sub_chapter_progress_student_id"},
				{Name: "sub_chapter_progress_sub_chapter_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"sub_chapter_progress_completed",
				"sub_chapter_progress_updated_at",
			}),
		}).Create(&rec).Error; err != nil {
			return helper.Storage("upsert sub_chapter_progress", err)
		}
		// id di rec bisa id baru yang tidak jadi dipakai (kena conflict); baca ulang
		if err := tx.Where("sub_chapter_progress_student_id = ? AND sub_chapter_progress_sub_chapter_id = ?",
			studentID, subChapterID).First(&res.SubChapterProgress).Error; err != nil {
			return helper.Storage("reload sub_chapter_progress", err)
		}

		if err := l.Agg.recomputeRow(tx, row, now, true); err != nil {
			return err
		}
		res.MaterialProgress = *row
		return nil
	})
	if err != nil {
		if errors.Is(err, helper.ErrStorage) {
			log.Printf("[ERROR] set completion student=%s sub_chapter=%s: %v", studentID, subChapterID, err)
		}
		return nil, err
	}

	if l.Cache != nil {
		l.Cache.Invalidate(ctx, studentID, materialID)
	}
	return &res, nil
}

// GetSubChapterCompletion: baris ledger, atau default {completed:false}
// (tanpa id/updated_at) kalau siswa belum pernah menyentuh sub bab itu.
func (l *Ledger) GetSubChapterCompletion(ctx context.Context, studentID, subChapterID uuid.UUID) (model.SubChapterProgressModel, error) {
	var rec model.SubChapterProgressModel
	err := l.DB.WithContext(ctx).
		Where("sub_chapter_progress_student_id = ? AND sub_chapter_progress_sub_chapter_id = ?", studentID, subChapterID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.SubChapterProgressModel{
			SubChapterProgressStudentID:    studentID,
			SubChapterProgressSubChapterID: subChapterID,
		}, nil
	}
	if err != nil {
		return rec, helper.Storage("get sub_chapter_progress", err)
	}
	return rec, nil
}

// ListCompletionsForStudent: id sub bab yang completed=true.
func (l *Ledger) ListCompletionsForStudent(ctx context.Context, studentID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	if err := l.DB.WithContext(ctx).Model(&model.SubChapterProgressModel{}).
		Where("sub_chapter_progress_student_id = ? AND sub_chapter_progress_completed = ?", studentID, true).
		Pluck("sub_chapter_progress_sub_chapter_id", &ids).Error; err != nil {
		return nil, helper.Storage("list completions", err)
	}
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// ListCompletionsForMaterial: semua baris ledger siswa (completed atau tidak)
// untuk sub bab di bawah materi, urut bab lalu sub bab.
func (l *Ledger) ListCompletionsForMaterial(ctx context.Context, studentID, materialID uuid.UUID) ([]model.SubChapterProgressModel, error) {
	var rows []model.SubChapterProgressModel
	if err := l.DB.WithContext(ctx).
		Table("sub_chapter_progress AS p").
		Select("p.*").
		Joins("JOIN material_sub_chapters AS sc ON sc.sub_chapter_id = p.sub_chapter_progress_sub_chapter_id").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("ch.chapter_material_id = ? AND p.sub_chapter_progress_student_id = ?", materialID, studentID).
		Order("ch.chapter_order_index ASC, sc.sub_chapter_order_index ASC").
		Scan(&rows).Error; err != nil {
		return nil, helper.Storage("list completions for material", err)
	}
	return rows, nil
}

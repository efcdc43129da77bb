// file: internals/features/materials/progress/service/aggregator.go
package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	helper "sekolahku_backend/internals/helpers"
	"sekolahku_backend/internals/features/materials/progress/model"
)

// Percentage = round(completed*100/total), 0 kalau total 0.
// Pembulatan half-up dengan aritmetika integer.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return (completed*200 + total) / (2 * total)
}

// averagePercentage: rata-rata persentase per materi. Pembaginya jumlah materi
// yang bisa diakses siswa, jadi materi yang belum disentuh ikut dihitung 0.
func averagePercentage(sum, accessible int) int {
	return Percentage(sum, accessible*100)
}

/* =========================
   Aggregator
   Menjaga material_progress konsisten dengan ledger. Selalu dijalankan di
   dalam transaksi pemanggil; hitungan selalu diambil ulang dari isi ledger
   saat ini, tidak pernah dari angka cache di baris agregat.
========================= */

type Aggregator struct{}

const (
	colMPStudent  = "material_progress_student_id"
	colMPMaterial = "material_progress_material_id"
)

// LockRow memastikan baris agregat (siswa, materi) ada lalu menguncinya
// FOR UPDATE. Tulis ledger lain untuk pasangan yang sama menunggu di sini.
func (Aggregator) LockRow(tx *gorm.DB, studentID, materialID uuid.UUID, now time.Time) (*model.MaterialProgressModel, error) {
	seed := model.MaterialProgressModel{
		MaterialProgressStudentID:  studentID,
		MaterialProgressMaterialID: materialID,
		MaterialProgressLastReadAt: now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: colMPStudent}, {Name: colMPMaterial}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, helper.Storage("ensure material_progress", err)
	}

	var row model.MaterialProgressModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(colMPStudent+" = ? AND "+colMPMaterial+" = ?", studentID, materialID).
		First(&row).Error; err != nil {
		return nil, helper.Storage("lock material_progress", err)
	}
	return &row, nil
}

// Recompute: LockRow + hitung ulang satu pasangan (siswa, materi) tanpa
// menyentuh last_read_at.
func (a Aggregator) Recompute(tx *gorm.DB, studentID, materialID uuid.UUID, now time.Time) (*model.MaterialProgressModel, error) {
	row, err := a.LockRow(tx, studentID, materialID, now)
	if err != nil {
		return nil, err
	}
	if err := a.recomputeRow(tx, row, now, false); err != nil {
		return nil, err
	}
	return row, nil
}

// recomputeRow menghitung ulang satu baris yang sudah dikunci (lihat LockRow).
// touch=true menyegarkan last_read_at (tulis oleh siswa); edit hierarki oleh
// guru memakai touch=false.
func (a Aggregator) recomputeRow(tx *gorm.DB, row *model.MaterialProgressModel, now time.Time, touch bool) error {
	total, err := countSubChapters(tx, row.MaterialProgressMaterialID)
	if err != nil {
		return err
	}

	var completed int64
	if err := tx.Table("sub_chapter_progress AS p").
		Joins("JOIN material_sub_chapters AS sc ON sc.sub_chapter_id = p.sub_chapter_progress_sub_chapter_id").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("ch.chapter_material_id = ?", row.MaterialProgressMaterialID).
		Where("p.sub_chapter_progress_student_id = ?", row.MaterialProgressStudentID).
		Where("p.sub_chapter_progress_completed = ?", true).
		Count(&completed).Error; err != nil {
		return helper.Storage("count completed sub chapters", err)
	}

	return a.apply(tx, row, int(completed), int(total), now, touch)
}

func (Aggregator) apply(tx *gorm.DB, row *model.MaterialProgressModel, completed, total int, now time.Time, touch bool) error {
	pct := Percentage(completed, total)

	row.MaterialProgressCompletedSubChapters = completed
	row.MaterialProgressTotalSubChapters = total
	row.MaterialProgressPercentage = pct
	if touch {
		row.MaterialProgressLastReadAt = now
	}
	switch {
	case pct == 100 && row.MaterialProgressCompletedAt == nil:
		t := now
		row.MaterialProgressCompletedAt = &t
	case pct < 100:
		row.MaterialProgressCompletedAt = nil
	}

	var completedAt any = gorm.Expr("NULL")
	if row.MaterialProgressCompletedAt != nil {
		completedAt = *row.MaterialProgressCompletedAt
	}

	if err := tx.Model(&model.MaterialProgressModel{}).
		Where("material_progress_id = ?", row.MaterialProgressID).
		Updates(map[string]any{
			"material_progress_completed_sub_chapters": completed,
			"material_progress_total_sub_chapters":     total,
			"material_progress_percentage":             pct,
			"material_progress_last_read_at":           row.MaterialProgressLastReadAt,
			"material_progress_completed_at":           completedAt,
		}).Error; err != nil {
		return helper.Storage("update material_progress", err)
	}
	return nil
}

// RecomputeMaterial menghitung ulang semua baris agregat sebuah materi
// (dipakai setelah sub bab ditambah/dihapus). Mengembalikan id siswa yang
// barisnya tersentuh, supaya cache mereka bisa di-invalidate setelah commit.
func (a Aggregator) RecomputeMaterial(tx *gorm.DB, materialID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	var rows []model.MaterialProgressModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(colMPMaterial+" = ?", materialID).
		Order(colMPStudent + " ASC").
		Find(&rows).Error; err != nil {
		return nil, helper.Storage("lock material_progress rows", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	total, err := countSubChapters(tx, materialID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		StudentID uuid.UUID `gorm:"column:student_id"`
		Completed int64     `gorm:"column:completed"`
	}
	var counts []agg
	if err := tx.Table("sub_chapter_progress AS p").
		Select("p.sub_chapter_progress_student_id AS student_id, COUNT(*) AS completed").
		Joins("JOIN material_sub_chapters AS sc ON sc.sub_chapter_id = p.sub_chapter_progress_sub_chapter_id").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("ch.chapter_material_id = ?", materialID).
		Where("p.sub_chapter_progress_completed = ?", true).
		Group("p.sub_chapter_progress_student_id").
		Scan(&counts).Error; err != nil {
		return nil, helper.Storage("count completed per student", err)
	}
	byStudent := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		byStudent[c.StudentID] = int(c.Completed)
	}

	students := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		if err := a.apply(tx, &rows[i], byStudent[rows[i].MaterialProgressStudentID], int(total), now, false); err != nil {
			return nil, err
		}
		students = append(students, rows[i].MaterialProgressStudentID)
	}
	return students, nil
}

// RecomputeAll membangun ulang semua agregat dari ledger (lmsctl recompute).
func (a Aggregator) RecomputeAll(db *gorm.DB, now time.Time) (int, error) {
	var materialIDs []uuid.UUID
	if err := db.Model(&model.MaterialProgressModel{}).
		Distinct(colMPMaterial).
		Pluck(colMPMaterial, &materialIDs).Error; err != nil {
		return 0, helper.Storage("list materials with progress", err)
	}
	sort.Slice(materialIDs, func(i, j int) bool { return materialIDs[i].String() < materialIDs[j].String() })

	n := 0
	for _, mid := range materialIDs {
		err := db.Transaction(func(tx *gorm.DB) error {
			students, err := a.RecomputeMaterial(tx, mid, now)
			n += len(students)
			return err
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func countSubChapters(tx *gorm.DB, materialID uuid.UUID) (int64, error) {
	var total int64
	if err := tx.Table("material_sub_chapters AS sc").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("ch.chapter_material_id = ?", materialID).
		Count(&total).Error; err != nil {
		return 0, helper.Storage("count sub chapters", err)
	}
	return total, nil
}

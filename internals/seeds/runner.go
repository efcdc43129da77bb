package seeds

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sekolahku_backend/internals/constants"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
	progressModel "sekolahku_backend/internals/features/materials/progress/model"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

type Result struct {
	Subjects    int
	Profiles    int
	Materials   int
	Chapters    int
	SubChapters int
	Recomputed  int
}

func (r Result) String() string {
	return fmt.Sprintf("subjects=%d profiles=%d materials=%d chapters=%d sub_chapters=%d recomputed=%d",
		r.Subjects, r.Profiles, r.Materials, r.Chapters, r.SubChapters, r.Recomputed)
}

// RunFile: LoadFile + Apply.
func RunFile(db *gorm.DB, path string) (Result, error) {
	log.Println("[INFO] Membaca file seed:", path)
	fx, err := LoadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Apply(db, fx, time.Now())
}

// Apply meng-upsert isi fixture dalam satu transaksi. Untuk setiap materi di
// fixture, isi bab/sub bab disinkronkan: yang tidak ada di file dihapus
// (beserta ledger-nya) lalu agregat progress materi dihitung ulang.
func Apply(db *gorm.DB, fx *Fixture, now time.Time) (Result, error) {
	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, s := range fx.Subjects {
			row := model.SubjectModel{SubjectID: s.ID, SubjectName: strings.TrimSpace(s.Name)}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "subject_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"subject_name"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert subject %s: %w", s.ID, err)
			}
			res.Subjects++
		}

		for _, p := range fx.Profiles {
			row := model.ProfileModel{
				ProfileID:        p.ID,
				ProfileFullName:  strings.TrimSpace(p.FullName),
				ProfileRole:      p.Role,
				ProfileClassName: optional(p.Kelas),
				ProfileIsActive:  !p.Inactive,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "profile_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"profile_full_name", "profile_role", "profile_class_name", "profile_is_active",
				}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert profile %s: %w", p.ID, err)
			}
			res.Profiles++
		}

		agg := psvc.Aggregator{}
		for _, m := range fx.Materials {
			ch, sc, err := applyMaterial(tx, m, now)
			if err != nil {
				return err
			}
			res.Materials++
			res.Chapters += ch
			res.SubChapters += sc

			students, err := agg.RecomputeMaterial(tx, m.ID, now)
			if err != nil {
				return fmt.Errorf("recompute material %s: %w", m.ID, err)
			}
			res.Recomputed += len(students)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Printf("[INFO] Seed selesai: %s", res)
	return res, nil
}

func applyMaterial(tx *gorm.DB, m MaterialSeed, now time.Time) (int, int, error) {
	row := model.MaterialModel{
		MaterialID:          m.ID,
		MaterialTitle:       strings.TrimSpace(m.Title),
		MaterialDescription: optional(m.Description),
		MaterialSubjectID:   m.SubjectID,
		MaterialClassNames:  model.ClassList(m.Kelas).Normalize(),
		MaterialCreatedAt:   now,
		MaterialUpdatedAt:   now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "material_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"material_title", "material_description", "material_subject_id",
			"material_class_names", "material_updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return 0, 0, fmt.Errorf("upsert material %q: %w", m.Title, err)
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("material_id = ?", m.ID).First(&model.MaterialModel{}).Error; err != nil {
		return 0, 0, fmt.Errorf("lock material %q: %w", m.Title, err)
	}

	if err := prune(tx, m); err != nil {
		return 0, 0, err
	}

	// geser order index lama ke negatif supaya urutan baru tidak bentrok
	// dengan unique index (material, order) / (bab, order)
	if err := tx.Model(&model.ChapterModel{}).
		Where("chapter_material_id = ?", m.ID).
		Update("chapter_order_index", gorm.Expr("-chapter_order_index - 1")).Error; err != nil {
		return 0, 0, fmt.Errorf("shift chapter order: %w", err)
	}
	if err := tx.Model(&model.SubChapterModel{}).
		Where("sub_chapter_chapter_id IN (?)",
			tx.Model(&model.ChapterModel{}).Select("chapter_id").Where("chapter_material_id = ?", m.ID)).
		Update("sub_chapter_order_index", gorm.Expr("-sub_chapter_order_index - 1")).Error; err != nil {
		return 0, 0, fmt.Errorf("shift sub chapter order: %w", err)
	}

	var nSub int
	for i, ch := range m.Chapters {
		chRow := model.ChapterModel{
			ChapterID:          ch.ID,
			ChapterMaterialID:  m.ID,
			ChapterTitle:       strings.TrimSpace(ch.Title),
			ChapterDescription: optional(ch.Description),
			ChapterOrderIndex:  i,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"chapter_material_id", "chapter_title", "chapter_description", "chapter_order_index",
			}),
		}).Create(&chRow).Error; err != nil {
			return 0, 0, fmt.Errorf("upsert bab %q: %w", ch.Title, err)
		}

		for j, sc := range ch.SubChapters {
			kind := sc.ContentType
			if kind == "" {
				kind = constants.DetectContentKind(sc.ContentURL)
			}
			scRow := model.SubChapterModel{
				SubChapterID:          sc.ID,
				SubChapterChapterID:   ch.ID,
				SubChapterTitle:       strings.TrimSpace(sc.Title),
				SubChapterContent:     optional(sc.Content),
				SubChapterContentType: kind,
				SubChapterContentURL:  optional(sc.ContentURL),
				SubChapterDuration:    sc.Duration,
				SubChapterOrderIndex:  j,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "sub_chapter_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"sub_chapter_chapter_id", "sub_chapter_title", "sub_chapter_content",
					"sub_chapter_content_type", "sub_chapter_content_url",
					"sub_chapter_duration", "sub_chapter_order_index",
				}),
			}).Create(&scRow).Error; err != nil {
				return 0, 0, fmt.Errorf("upsert sub bab %q: %w", sc.Title, err)
			}
			nSub++
		}
	}
	return len(m.Chapters), nSub, nil
}

// prune menghapus bab/sub bab materi yang tidak lagi tercantum di fixture.
// Ledger sub bab yang dihapus ikut dihapus agar tidak ada baris yatim.
func prune(tx *gorm.DB, m MaterialSeed) error {
	keepCh := []uuid.UUID{uuid.Nil}
	keepSc := []uuid.UUID{uuid.Nil}
	for _, ch := range m.Chapters {
		keepCh = append(keepCh, ch.ID)
		for _, sc := range ch.SubChapters {
			keepSc = append(keepSc, sc.ID)
		}
	}

	var stale []uuid.UUID
	if err := tx.Model(&model.SubChapterModel{}).
		Joins("JOIN material_chapters ON material_chapters.chapter_id = material_sub_chapters.sub_chapter_chapter_id").
		Where("material_chapters.chapter_material_id = ?", m.ID).
		Where("material_sub_chapters.sub_chapter_id NOT IN ?", keepSc).
		Pluck("material_sub_chapters.sub_chapter_id", &stale).Error; err != nil {
		return fmt.Errorf("list stale sub bab: %w", err)
	}
	if len(stale) > 0 {
		if err := tx.Where("sub_chapter_id IN ?", stale).Delete(&model.SubChapterModel{}).Error; err != nil {
			return fmt.Errorf("delete stale sub bab: %w", err)
		}
		if err := tx.Where("sub_chapter_progress_sub_chapter_id IN ?", stale).
			Delete(&progressModel.SubChapterProgressModel{}).Error; err != nil {
			return fmt.Errorf("delete stale ledger: %w", err)
		}
		log.Printf("[INFO] material %s: %d sub bab lama dihapus", m.ID, len(stale))
	}

	var staleCh []uuid.UUID
	if err := tx.Model(&model.ChapterModel{}).
		Where("chapter_material_id = ? AND chapter_id NOT IN ?", m.ID, keepCh).
		Pluck("chapter_id", &staleCh).Error; err != nil {
		return fmt.Errorf("list stale bab: %w", err)
	}
	if len(staleCh) == 0 {
		return nil
	}
	// sub bab milik bab lama yang dipindah ke bab lain sudah di-keep; sisanya ikut terhapus di atas
	if err := tx.Where("chapter_id IN ?", staleCh).Delete(&model.ChapterModel{}).Error; err != nil {
		return fmt.Errorf("delete stale bab: %w", err)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

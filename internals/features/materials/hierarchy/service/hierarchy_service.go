// file: internals/features/materials/hierarchy/service/hierarchy_service.go
package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sekolahku_backend/internals/features/materials/hierarchy/dto"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
	pmodel "sekolahku_backend/internals/features/materials/progress/model"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
)

// Service: store hierarki materi → bab → sub bab.
// Semua operasi yang mengubah jumlah sub bab memanggil Aggregator di
// transaksi yang sama, jadi total di material_progress tidak pernah basi.
type Service struct {
	DB    *gorm.DB
	Cache psvc.ViewCache
	Agg   psvc.Aggregator
	Now   func() time.Time
}

func New(db *gorm.DB, cache psvc.ViewCache) *Service {
	return &Service{DB: db, Cache: cache, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) invalidate(ctx context.Context, materialID uuid.UUID) {
	if s.Cache != nil {
		s.Cache.InvalidateMaterial(ctx, materialID)
	}
}

// IsVisibleTo: kelas kosong ⇒ semua siswa; selain itu kelas siswa harus tercantum.
func IsVisibleTo(mat model.MaterialModel, className *string) bool {
	return mat.MaterialClassNames.Allows(className)
}

/* =========================
   Materials
========================= */

func (s *Service) CreateMaterial(ctx context.Context, req dto.CreateMaterialRequest, createdBy *uuid.UUID) (*model.MaterialModel, error) {
	db := s.DB.WithContext(ctx)

	var subj model.SubjectModel
	if err := db.Select("subject_id").Where("subject_id = ?", req.MaterialSubjectID).First(&subj).Error; err != nil {
		return nil, helper.ClassifyDBError("get subject", err, "Mapel tidak ditemukan")
	}

	mat := req.ToModel(createdBy)
	mat.MaterialTitle = strings.TrimSpace(mat.MaterialTitle)
	now := s.now()
	mat.MaterialCreatedAt, mat.MaterialUpdatedAt = now, now
	if err := db.Create(&mat).Error; err != nil {
		return nil, helper.ClassifyDBError("create material", err, "Mapel tidak ditemukan")
	}
	log.Printf("[INFO] material created id=%s title=%q", mat.MaterialID, mat.MaterialTitle)
	return &mat, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, id uuid.UUID, req dto.UpdateMaterialRequest) (*model.MaterialModel, error) {
	db := s.DB.WithContext(ctx)

	var mat model.MaterialModel
	if err := db.Where("material_id = ?", id).First(&mat).Error; err != nil {
		return nil, helper.ClassifyDBError("get material", err, "Materi tidak ditemukan")
	}

	updates := map[string]any{"material_updated_at": s.now()}
	if req.MaterialTitle != nil {
		updates["material_title"] = strings.TrimSpace(*req.MaterialTitle)
	}
	if req.MaterialDescription != nil {
		updates["material_description"] = *req.MaterialDescription
	}
	if req.MaterialSubjectID != nil {
		var subj model.SubjectModel
		if err := db.Select("subject_id").Where("subject_id = ?", *req.MaterialSubjectID).First(&subj).Error; err != nil {
			return nil, helper.ClassifyDBError("get subject", err, "Mapel tidak ditemukan")
		}
		updates["material_subject_id"] = *req.MaterialSubjectID
	}
	if req.MaterialClassNames != nil {
		updates["material_class_names"] = model.ClassList(*req.MaterialClassNames).Normalize()
	}
	if req.MaterialThumbnailURL != nil {
		updates["material_thumbnail_url"] = *req.MaterialThumbnailURL
	}

	if err := db.Model(&model.MaterialModel{}).Where("material_id = ?", id).Updates(updates).Error; err != nil {
		return nil, helper.Storage("update material", err)
	}
	// baca ulang ke struct baru: kolom yang jadi NULL tidak menimpa nilai lama
	var out model.MaterialModel
	if err := db.Where("material_id = ?", id).First(&out).Error; err != nil {
		return nil, helper.Storage("reload material", err)
	}
	s.invalidate(ctx, id)
	return &out, nil
}

// GetMaterial: materi + nama mapel (nil kalau mapel sudah tidak ada).
func (s *Service) GetMaterial(ctx context.Context, id uuid.UUID) (*model.MaterialModel, *string, error) {
	db := s.DB.WithContext(ctx)

	var mat model.MaterialModel
	if err := db.Where("material_id = ?", id).First(&mat).Error; err != nil {
		return nil, nil, helper.ClassifyDBError("get material", err, "Materi tidak ditemukan")
	}

	var subj model.SubjectModel
	err := db.Where("subject_id = ?", mat.MaterialSubjectID).Limit(1).Find(&subj).Error
	if err != nil {
		return nil, nil, helper.Storage("get subject", err)
	}
	if subj.SubjectID == uuid.Nil {
		return &mat, nil, nil
	}
	name := subj.SubjectName
	return &mat, &name, nil
}

type ListFilter struct {
	SubjectID *uuid.UUID
	Search    string
}

// ListMaterials (admin/guru): semua materi, terbaru dulu.
func (s *Service) ListMaterials(ctx context.Context, f ListFilter, p helper.Paging) ([]model.MaterialModel, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.MaterialModel{})
	if f.SubjectID != nil {
		q = q.Where("material_subject_id = ?", *f.SubjectID)
	}
	if kw := strings.TrimSpace(f.Search); kw != "" {
		q = q.Where("LOWER(material_title) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, helper.Storage("count materials", err)
	}
	var rows []model.MaterialModel
	if err := q.Order("material_created_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, helper.Storage("list materials", err)
	}
	return rows, total, nil
}

// ListVisibleMaterials: materi yang boleh dilihat siswa dengan kelas tsb.
// Filter kelas dilakukan di Go supaya aturan visibilitas hanya ada di satu
// tempat (ClassList.Allows).
func (s *Service) ListVisibleMaterials(ctx context.Context, className *string, f ListFilter) ([]model.MaterialModel, error) {
	q := s.DB.WithContext(ctx).Model(&model.MaterialModel{})
	if f.SubjectID != nil {
		q = q.Where("material_subject_id = ?", *f.SubjectID)
	}
	if kw := strings.TrimSpace(f.Search); kw != "" {
		q = q.Where("LOWER(material_title) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}

	var rows []model.MaterialModel
	if err := q.Order("material_created_at DESC").Find(&rows).Error; err != nil {
		return nil, helper.Storage("list materials", err)
	}
	out := rows[:0]
	for _, m := range rows {
		if IsVisibleTo(m, className) {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteMaterial: hapus materi beserta bab, sub bab, ledger, dan agregatnya.
func (s *Service) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockMaterial(tx, id); err != nil {
			return err
		}

		chapterIDs := tx.Model(&model.ChapterModel{}).Select("chapter_id").Where("chapter_material_id = ?", id)
		var subIDs []uuid.UUID
		if err := tx.Model(&model.SubChapterModel{}).
			Where("sub_chapter_chapter_id IN (?)", chapterIDs).
			Pluck("sub_chapter_id", &subIDs).Error; err != nil {
			return helper.Storage("list sub chapters", err)
		}

		if err := deleteSubChapters(tx, subIDs); err != nil {
			return err
		}
		if err := tx.Where("chapter_material_id = ?", id).Delete(&model.ChapterModel{}).Error; err != nil {
			return helper.Storage("delete chapters", err)
		}
		if err := tx.Where("material_progress_material_id = ?", id).Delete(&pmodel.MaterialProgressModel{}).Error; err != nil {
			return helper.Storage("delete material_progress", err)
		}
		if err := tx.Where("material_id = ?", id).Delete(&model.MaterialModel{}).Error; err != nil {
			return helper.Storage("delete material", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	log.Printf("[INFO] material deleted id=%s", id)
	return nil
}

/* =========================
   Chapters
========================= */

// CreateChapter: order index = index bebas berikutnya di materi tsb.
// Baris materi dikunci supaya dua create paralel tidak memilih index sama.
func (s *Service) CreateChapter(ctx context.Context, materialID uuid.UUID, req dto.CreateChapterRequest) (*model.ChapterModel, error) {
	var ch model.ChapterModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockMaterial(tx, materialID); err != nil {
			return err
		}

		var next int
		if err := tx.Model(&model.ChapterModel{}).
			Select("COALESCE(MAX(chapter_order_index), -1) + 1").
			Where("chapter_material_id = ?", materialID).
			Scan(&next).Error; err != nil {
			return helper.Storage("next chapter index", err)
		}

		ch = model.ChapterModel{
			ChapterMaterialID:  materialID,
			ChapterTitle:       strings.TrimSpace(req.ChapterTitle),
			ChapterDescription: req.ChapterDescription,
			ChapterOrderIndex:  next,
			ChapterCreatedAt:   s.now(),
		}
		if err := tx.Create(&ch).Error; err != nil {
			return helper.ClassifyDBError("create chapter", err, "Materi tidak ditemukan")
		}
		return touchMaterial(tx, materialID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, materialID)
	return &ch, nil
}

func (s *Service) UpdateChapter(ctx context.Context, id uuid.UUID, req dto.UpdateChapterRequest) (*model.ChapterModel, error) {
	db := s.DB.WithContext(ctx)

	var ch model.ChapterModel
	if err := db.Where("chapter_id = ?", id).First(&ch).Error; err != nil {
		return nil, helper.ClassifyDBError("get chapter", err, "Bab tidak ditemukan")
	}

	updates := map[string]any{}
	if req.ChapterTitle != nil {
		updates["chapter_title"] = strings.TrimSpace(*req.ChapterTitle)
	}
	if req.ChapterDescription != nil {
		updates["chapter_description"] = *req.ChapterDescription
	}
	if len(updates) > 0 {
		if err := db.Model(&model.ChapterModel{}).Where("chapter_id = ?", id).Updates(updates).Error; err != nil {
			return nil, helper.Storage("update chapter", err)
		}
		var out model.ChapterModel
		if err := db.Where("chapter_id = ?", id).First(&out).Error; err != nil {
			return nil, helper.Storage("reload chapter", err)
		}
		s.invalidate(ctx, out.ChapterMaterialID)
		return &out, nil
	}
	return &ch, nil
}

// DeleteChapter: hapus bab + sub bab + ledger-nya, lalu hitung ulang agregat
// semua siswa di materi tsb (total berkurang).
func (s *Service) DeleteChapter(ctx context.Context, id uuid.UUID) error {
	var materialID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := chapterOf(tx, id)
		if err != nil {
			return err
		}
		materialID = ch.ChapterMaterialID
		if _, err := lockMaterial(tx, materialID); err != nil {
			return err
		}

		var subIDs []uuid.UUID
		if err := tx.Model(&model.SubChapterModel{}).
			Where("sub_chapter_chapter_id = ?", id).
			Pluck("sub_chapter_id", &subIDs).Error; err != nil {
			return helper.Storage("list sub chapters", err)
		}
		if err := deleteSubChapters(tx, subIDs); err != nil {
			return err
		}
		if err := tx.Where("chapter_id = ?", id).Delete(&model.ChapterModel{}).Error; err != nil {
			return helper.Storage("delete chapter", err)
		}
		if _, err := s.Agg.RecomputeMaterial(tx, materialID, s.now()); err != nil {
			return err
		}
		return touchMaterial(tx, materialID, s.now())
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, materialID)
	return nil
}

func (s *Service) ListChapters(ctx context.Context, materialID uuid.UUID) ([]model.ChapterModel, error) {
	if err := s.ensureMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	var rows []model.ChapterModel
	if err := s.DB.WithContext(ctx).
		Where("chapter_material_id = ?", materialID).
		Order("chapter_order_index ASC").
		Find(&rows).Error; err != nil {
		return nil, helper.Storage("list chapters", err)
	}
	return rows, nil
}

/* =========================
   Sub chapters
========================= */

func (s *Service) CreateSubChapter(ctx context.Context, chapterID uuid.UUID, req dto.CreateSubChapterRequest) (*model.SubChapterModel, error) {
	kind := strings.ToLower(strings.TrimSpace(req.SubChapterContentType))
	if !model.IsContentKind(kind) {
		return nil, helper.Invalid("Jenis konten tidak dikenal: %s", req.SubChapterContentType)
	}

	var sc model.SubChapterModel
	var materialID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := chapterOf(tx, chapterID)
		if err != nil {
			return err
		}
		materialID = ch.ChapterMaterialID
		if _, err := lockMaterial(tx, materialID); err != nil {
			return err
		}

		var next int
		if err := tx.Model(&model.SubChapterModel{}).
			Select("COALESCE(MAX(sub_chapter_order_index), -1) + 1").
			Where("sub_chapter_chapter_id = ?", chapterID).
			Scan(&next).Error; err != nil {
			return helper.Storage("next sub chapter index", err)
		}

		sc = model.SubChapterModel{
			SubChapterChapterID:   chapterID,
			SubChapterTitle:       strings.TrimSpace(req.SubChapterTitle),
			SubChapterContentType: kind,
			SubChapterContent:     req.SubChapterContent,
			SubChapterContentURL:  req.SubChapterContentURL,
			SubChapterDuration:    req.SubChapterDuration,
			SubChapterOrderIndex:  next,
			SubChapterCreatedAt:   s.now(),
		}
		if err := tx.Create(&sc).Error; err != nil {
			return helper.ClassifyDBError("create sub chapter", err, "Bab tidak ditemukan")
		}

		// total bertambah: persentase semua siswa di materi ini ikut turun
		if _, err := s.Agg.RecomputeMaterial(tx, materialID, s.now()); err != nil {
			return err
		}
		return touchMaterial(tx, materialID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, materialID)
	return &sc, nil
}

func (s *Service) UpdateSubChapter(ctx context.Context, id uuid.UUID, req dto.UpdateSubChapterRequest) (*model.SubChapterModel, error) {
	db := s.DB.WithContext(ctx)

	var sc model.SubChapterModel
	if err := db.Where("sub_chapter_id = ?", id).First(&sc).Error; err != nil {
		return nil, helper.ClassifyDBError("get sub chapter", err, "Sub bab tidak ditemukan")
	}

	updates := map[string]any{}
	if req.SubChapterTitle != nil {
		updates["sub_chapter_title"] = strings.TrimSpace(*req.SubChapterTitle)
	}
	if req.SubChapterContentType != nil {
		kind := strings.ToLower(strings.TrimSpace(*req.SubChapterContentType))
		if !model.IsContentKind(kind) {
			return nil, helper.Invalid("Jenis konten tidak dikenal: %s", *req.SubChapterContentType)
		}
		updates["sub_chapter_content_type"] = kind
	}
	if req.SubChapterContent != nil {
		updates["sub_chapter_content"] = *req.SubChapterContent
	}
	if req.SubChapterContentURL != nil {
		updates["sub_chapter_content_url"] = *req.SubChapterContentURL
	}
	if req.SubChapterDuration != nil {
		updates["sub_chapter_duration"] = *req.SubChapterDuration
	}
	if len(updates) == 0 {
		return &sc, nil
	}

	if err := db.Model(&model.SubChapterModel{}).Where("sub_chapter_id = ?", id).Updates(updates).Error; err != nil {
		return nil, helper.Storage("update sub chapter", err)
	}
	var out model.SubChapterModel
	if err := db.Where("sub_chapter_id = ?", id).First(&out).Error; err != nil {
		return nil, helper.Storage("reload sub chapter", err)
	}
	return &out, nil
}

func (s *Service) DeleteSubChapter(ctx context.Context, id uuid.UUID) error {
	var materialID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sc model.SubChapterModel
		if err := tx.Select("sub_chapter_id", "sub_chapter_chapter_id").
			Where("sub_chapter_id = ?", id).First(&sc).Error; err != nil {
			return helper.ClassifyDBError("get sub chapter", err, "Sub bab tidak ditemukan")
		}
		ch, err := chapterOf(tx, sc.SubChapterChapterID)
		if err != nil {
			return err
		}
		materialID = ch.ChapterMaterialID
		if _, err := lockMaterial(tx, materialID); err != nil {
			return err
		}

		if err := deleteSubChapters(tx, []uuid.UUID{id}); err != nil {
			return err
		}
		if _, err := s.Agg.RecomputeMaterial(tx, materialID, s.now()); err != nil {
			return err
		}
		return touchMaterial(tx, materialID, s.now())
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, materialID)
	return nil
}

func (s *Service) ListSubChapters(ctx context.Context, chapterID uuid.UUID) ([]model.SubChapterModel, error) {
	db := s.DB.WithContext(ctx)
	if _, err := chapterOf(db, chapterID); err != nil {
		return nil, err
	}
	var rows []model.SubChapterModel
	if err := db.Where("sub_chapter_chapter_id = ?", chapterID).
		Order("sub_chapter_order_index ASC").
		Find(&rows).Error; err != nil {
		return nil, helper.Storage("list sub chapters", err)
	}
	return rows, nil
}

// GetTree: materi + bab + sub bab dalam satu pembacaan, urut order index.
func (s *Service) GetTree(ctx context.Context, materialID uuid.UUID) (*dto.MaterialTree, *model.MaterialModel, error) {
	mat, subject, err := s.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	db := s.DB.WithContext(ctx)

	var chapters []model.ChapterModel
	if err := db.Where("chapter_material_id = ?", materialID).
		Order("chapter_order_index ASC").
		Find(&chapters).Error; err != nil {
		return nil, nil, helper.Storage("list chapters", err)
	}

	var subs []model.SubChapterModel
	if err := db.Table("material_sub_chapters AS sc").
		Select("sc.*").
		Joins("JOIN material_chapters AS ch ON ch.chapter_id = sc.sub_chapter_chapter_id").
		Where("ch.chapter_material_id = ?", materialID).
		Order("sc.sub_chapter_order_index ASC").
		Scan(&subs).Error; err != nil {
		return nil, nil, helper.Storage("list sub chapters", err)
	}
	byChapter := make(map[uuid.UUID][]dto.SubChapterResponse, len(chapters))
	for _, sc := range subs {
		byChapter[sc.SubChapterChapterID] = append(byChapter[sc.SubChapterChapterID], dto.NewSubChapterResponse(sc))
	}

	tree := &dto.MaterialTree{
		Material: dto.NewMaterialResponse(*mat, subject),
		Chapters: make([]dto.ChapterTree, 0, len(chapters)),
	}
	for _, ch := range chapters {
		items := byChapter[ch.ChapterID]
		if items == nil {
			items = []dto.SubChapterResponse{}
		}
		tree.Chapters = append(tree.Chapters, dto.ChapterTree{
			ChapterResponse: dto.NewChapterResponse(ch),
			SubChapters:     items,
		})
	}
	return tree, mat, nil
}

/* =========================
   helpers
========================= */

func (s *Service) ensureMaterial(ctx context.Context, id uuid.UUID) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&model.MaterialModel{}).
		Where("material_id = ?", id).Count(&n).Error; err != nil {
		return helper.Storage("check material", err)
	}
	if n == 0 {
		return helper.NotFound("Materi tidak ditemukan")
	}
	return nil
}

func lockMaterial(tx *gorm.DB, id uuid.UUID) (*model.MaterialModel, error) {
	var mat model.MaterialModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("material_id").
		Where("material_id = ?", id).
		First(&mat).Error; err != nil {
		return nil, helper.ClassifyDBError("lock material", err, "Materi tidak ditemukan")
	}
	return &mat, nil
}

func touchMaterial(tx *gorm.DB, id uuid.UUID, now time.Time) error {
	if err := tx.Model(&model.MaterialModel{}).
		Where("material_id = ?", id).
		Update("material_updated_at", now).Error; err != nil {
		return helper.Storage("touch material", err)
	}
	return nil
}

func chapterOf(tx *gorm.DB, id uuid.UUID) (*model.ChapterModel, error) {
	var ch model.ChapterModel
	if err := tx.Where("chapter_id = ?", id).First(&ch).Error; err != nil {
		return nil, helper.ClassifyDBError("get chapter", err, "Bab tidak ditemukan")
	}
	return &ch, nil
}

// deleteSubChapters: sub bab dihapus dulu (menunggu tulis ledger yang sedang
// memegang kunci share), baru baris ledger-nya.
func deleteSubChapters(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("sub_chapter_id IN ?", ids).Delete(&model.SubChapterModel{}).Error; err != nil {
		return helper.Storage("delete sub chapters", err)
	}
	if err := tx.Where("sub_chapter_progress_sub_chapter_id IN ?", ids).Delete(&pmodel.SubChapterProgressModel{}).Error; err != nil {
		return helper.Storage("delete sub_chapter_progress", err)
	}
	return nil
}

package reading

import (
	"context"

	"github.com/google/uuid"

	hdto "sekolahku_backend/internals/features/materials/hierarchy/dto"
	hsvc "sekolahku_backend/internals/features/materials/hierarchy/service"
	pdto "sekolahku_backend/internals/features/materials/progress/dto"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
)

// Source: dari mana sesi membaca hierarki dan menulis progress.
// studentID selalu eksplisit; Client (HTTP) mengabaikannya karena identitas
// sudah melekat di token.
type Source interface {
	Tree(ctx context.Context, materialID uuid.UUID) (*hdto.MaterialTree, error)
	CompletedSubChapters(ctx context.Context, studentID, materialID uuid.UUID) (map[uuid.UUID]bool, error)
	SetCompletion(ctx context.Context, studentID, subChapterID uuid.UUID, completed bool) (*pdto.CompletionResponse, error)
}

// ServiceSource: sumber in-process (dipakai test dan tool internal).
type ServiceSource struct {
	Hierarchy *hsvc.Service
	Ledger    *psvc.Ledger
	// ClassName kelas siswa; materi di luar kelasnya diperlakukan NotFound
	ClassName *string
}

func (s ServiceSource) Tree(ctx context.Context, materialID uuid.UUID) (*hdto.MaterialTree, error) {
	tree, mat, err := s.Hierarchy.GetTree(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if !hsvc.IsVisibleTo(*mat, s.ClassName) {
		return nil, helper.NotFound("Materi tidak ditemukan")
	}
	return tree, nil
}

func (s ServiceSource) CompletedSubChapters(ctx context.Context, studentID, materialID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.Ledger.ListCompletionsForMaterial(ctx, studentID, materialID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		if r.SubChapterProgressCompleted {
			out[r.SubChapterProgressSubChapterID] = true
		}
	}
	return out, nil
}

func (s ServiceSource) SetCompletion(ctx context.Context, studentID, subChapterID uuid.UUID, completed bool) (*pdto.CompletionResponse, error) {
	res, err := s.Ledger.SetSubChapterCompletion(ctx, studentID, subChapterID, completed)
	if err != nil {
		return nil, err
	}
	return &pdto.CompletionResponse{
		SubChapterProgress: pdto.NewSubChapterProgressResponse(res.SubChapterProgress),
		MaterialProgress:   pdto.NewMaterialProgressResponse(res.MaterialProgress),
	}, nil
}

package service

import (
	"context"

	"github.com/google/uuid"
)

// ViewCache: cache baca untuk tampilan progress siswa per materi.
// Implementasi redis ada di internals/cache; nil berarti tanpa cache.
// Invalidate dipanggil setelah commit supaya siswa selalu membaca tulisannya
// sendiri.
type ViewCache interface {
	// GetView: token dipakai SetView setelah miss.
	GetView(ctx context.Context, studentID, materialID uuid.UUID, dst any) (token string, hit bool)
	SetView(ctx context.Context, token string, v any)
	Invalidate(ctx context.Context, studentID, materialID uuid.UUID)
	InvalidateMaterial(ctx context.Context, materialID uuid.UUID)
}

package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"sekolahku_backend/internals/constants"
	helper "sekolahku_backend/internals/helpers"
)

// Kunci c.Locals yang diisi middleware JWT.
const (
	LocUserID    = "user_id"    // string UUID
	LocRole      = "role"       // admin | guru | siswa
	LocClassName = "class_name" // kelas siswa (opsional)
	LocClaims    = "jwt_claims"
)

// Identity adalah caller yang sudah terautentikasi. Core tidak pernah membaca
// "user sekarang" dari state global; controller meneruskan Identity ini
// secara eksplisit ke service.
type Identity struct {
	UserID    uuid.UUID
	Role      string
	ClassName *string
}

func (i Identity) IsStudent() bool { return i.Role == constants.RoleStudent }

// CanOversee: admin/guru boleh membaca progress siswa lain (read-only).
func (i Identity) CanOversee() bool {
	for _, r := range constants.TeacherAndAbove {
		if i.Role == r {
			return true
		}
	}
	return false
}

// GetIdentity membaca identity dari locals.
// 401 kalau belum login / user_id tidak valid.
func GetIdentity(c *fiber.Ctx) (Identity, error) {
	raw, _ := c.Locals(LocUserID).(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, helper.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return Identity{}, helper.ErrUnauthenticated
	}

	ident := Identity{UserID: id}
	if role, ok := c.Locals(LocRole).(string); ok {
		ident.Role = strings.ToLower(strings.TrimSpace(role))
	}
	if kelas, ok := c.Locals(LocClassName).(string); ok {
		if k := strings.TrimSpace(kelas); k != "" {
			ident.ClassName = &k
		}
	}
	return ident, nil
}

// RequireOversight: 403 kalau caller bukan admin/guru.
func RequireOversight(ident Identity) error {
	if !ident.CanOversee() {
		return helper.Forbidden("%s", constants.RoleErrorTeacher("progress siswa"))
	}
	return nil
}

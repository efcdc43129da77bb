package constants

import "fmt"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "guru"
	RoleStudent = "siswa"
)

// Template pesan error role
const (
	ErrOnlyTeachersCanAccess = "Hanya guru atau admin yang boleh mengakses fitur %s."
	ErrOnlyAdminsCanAccess   = "Hanya admin yang boleh mengakses fitur %s."
	ErrOnlyStudentsCanAccess = "Hanya siswa yang boleh mengakses fitur %s."
)

func RoleErrorTeacher(feature string) string {
	return fmt.Sprintf(ErrOnlyTeachersCanAccess, feature)
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorStudent(feature string) string {
	return fmt.Sprintf(ErrOnlyStudentsCanAccess, feature)
}

var (
	AllRoles = []string{
		RoleAdmin,
		RoleTeacher,
		RoleStudent,
	}

	// Boleh membaca progress siswa lain (oversight) dan mengelola materi.
	TeacherAndAbove = []string{
		RoleTeacher,
		RoleAdmin,
	}

	AdminOnly = []string{
		RoleAdmin,
	}
)

func IsKnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

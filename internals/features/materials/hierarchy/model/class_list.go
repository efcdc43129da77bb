package model

import (
	"database/sql/driver"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ClassList daftar nama kelas (text[] di PostgreSQL). Kosong/NULL berarti
// materi terbuka untuk semua kelas.
type ClassList pq.StringArray

// GormDataType dipakai saat parse schema; tanpa ini gorm menganggap slice
// sebagai relasi.
func (ClassList) GormDataType() string {
	return "text[]"
}

func (ClassList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (c ClassList) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return pq.StringArray(c).Value()
}

func (c *ClassList) Scan(src any) error {
	return (*pq.StringArray)(c).Scan(src)
}

// Normalize trim + buang kosong + dedup, urutan dipertahankan.
func (c ClassList) Normalize() ClassList {
	if len(c) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(c))
	out := make(ClassList, 0, len(c))
	for _, k := range c {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Allows: kelas kosong ⇒ semua siswa; selain itu kelas siswa harus tercantum.
func (c ClassList) Allows(className *string) bool {
	if len(c) == 0 {
		return true
	}
	if className == nil {
		return false
	}
	for _, k := range c {
		if k == *className {
			return true
		}
	}
	return false
}

// file: internals/helpers/dbtime/dbtime.go
package dbtime

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"sekolahku_backend/internals/configs"
)

// LocSchoolLoc: cache *time.Location per request.
const LocSchoolLoc = "school_loc"

const defaultTimezone = "Asia/Jakarta"

var (
	schoolOnce sync.Once
	schoolLoc  *time.Location
)

// SchoolLocation: timezone sekolah dari SCHOOL_TIMEZONE.
// Fallback Asia/Jakarta, lalu UTC kalau tzdata tidak tersedia.
func SchoolLocation() *time.Location {
	schoolOnce.Do(func() {
		schoolLoc = Load(configs.SchoolTimezone)
	})
	return schoolLoc
}

// Load: nama IANA → *time.Location, tanpa pernah nil.
func Load(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	log.Printf("[WARN] timezone %q tidak dikenal, pakai %s", name, defaultTimezone)
	if loc, err := time.LoadLocation(defaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// GetSchoolLocation untuk handler:
// 1) c.Locals("school_loc") kalau sudah di-set
// 2) query ?tz= (mis. export dari sekolah di WITA)
// 3) SchoolLocation()
func GetSchoolLocation(c *fiber.Ctx) *time.Location {
	if c == nil {
		return SchoolLocation()
	}
	if loc, ok := c.Locals(LocSchoolLoc).(*time.Location); ok && loc != nil {
		return loc
	}
	loc := SchoolLocation()
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	c.Locals(LocSchoolLoc, loc)
	return loc
}

// In: t di timezone loc; zero time dan loc nil dikembalikan apa adanya.
func In(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() || loc == nil {
		return t
	}
	return t.In(loc)
}

// Format: "-" untuk nil, selain itu t di loc dengan layout.
func Format(t *time.Time, loc *time.Location, layout string) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return In(*t, loc).Format(layout)
}

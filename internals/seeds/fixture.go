package seeds

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"sekolahku_backend/internals/constants"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
)

// Fixture isi satu file seed YAML. Urutan bab/sub bab mengikuti posisi di list.
type Fixture struct {
	Subjects  []SubjectSeed  `yaml:"subjects"`
	Profiles  []ProfileSeed  `yaml:"profiles"`
	Materials []MaterialSeed `yaml:"materials"`
}

type SubjectSeed struct {
	ID   uuid.UUID `yaml:"id"`
	Name string    `yaml:"name"`
}

type ProfileSeed struct {
	ID       uuid.UUID `yaml:"id"`
	FullName string    `yaml:"full_name"`
	Role     string    `yaml:"role"`
	Kelas    string    `yaml:"kelas"`
	Inactive bool      `yaml:"inactive"`
}

type MaterialSeed struct {
	ID          uuid.UUID     `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	SubjectID   uuid.UUID     `yaml:"subject_id"`
	Kelas       []string      `yaml:"kelas"`
	Chapters    []ChapterSeed `yaml:"chapters"`
}

type ChapterSeed struct {
	ID          uuid.UUID        `yaml:"id"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	SubChapters []SubChapterSeed `yaml:"sub_chapters"`
}

type SubChapterSeed struct {
	ID          uuid.UUID `yaml:"id"`
	Title       string    `yaml:"title"`
	ContentType string    `yaml:"content_type"`
	Content     string    `yaml:"content"`
	ContentURL  string    `yaml:"content_url"`
	Duration    *int      `yaml:"duration"`
}

// LoadFile membaca dan memvalidasi fixture dari disk.
func LoadFile(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode seed yaml: %w", err)
	}
	fx.fillIDs()
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// seedNS namespace untuk id turunan; seed ulang file yang sama menghasilkan
// id yang sama sehingga upsert tetap idempoten.
var seedNS = uuid.MustParse("6f1c2d52-4b0e-4a58-9d4c-2f6a5b7e9c10")

func derive(parent uuid.UUID, kind, title string) uuid.UUID {
	return uuid.NewSHA1(seedNS, []byte(parent.String()+"|"+kind+"|"+strings.TrimSpace(title)))
}

func (fx *Fixture) fillIDs() {
	for i := range fx.Subjects {
		if fx.Subjects[i].ID == uuid.Nil {
			fx.Subjects[i].ID = derive(uuid.Nil, "subject", fx.Subjects[i].Name)
		}
	}
	for i := range fx.Materials {
		m := &fx.Materials[i]
		if m.ID == uuid.Nil {
			m.ID = derive(m.SubjectID, "material", m.Title)
		}
		for j := range m.Chapters {
			ch := &m.Chapters[j]
			if ch.ID == uuid.Nil {
				ch.ID = derive(m.ID, "chapter", ch.Title)
			}
			for k := range ch.SubChapters {
				sc := &ch.SubChapters[k]
				if sc.ID == uuid.Nil {
					sc.ID = derive(ch.ID, "sub_chapter", sc.Title)
				}
			}
		}
	}
}

func (fx *Fixture) validate() error {
	subjects := make(map[uuid.UUID]bool, len(fx.Subjects))
	for _, s := range fx.Subjects {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("subject %s: name wajib diisi", s.ID)
		}
		subjects[s.ID] = true
	}
	for _, p := range fx.Profiles {
		if p.ID == uuid.Nil {
			return fmt.Errorf("profile %q: id wajib diisi", p.FullName)
		}
		if !constants.IsKnownRole(p.Role) {
			return fmt.Errorf("profile %s: role %q tidak dikenal", p.ID, p.Role)
		}
	}
	for _, m := range fx.Materials {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("material %s: title wajib diisi", m.ID)
		}
		if m.SubjectID == uuid.Nil {
			return fmt.Errorf("material %q: subject_id wajib diisi", m.Title)
		}
		for _, ch := range m.Chapters {
			if strings.TrimSpace(ch.Title) == "" {
				return fmt.Errorf("material %q: bab tanpa title", m.Title)
			}
			for _, sc := range ch.SubChapters {
				if strings.TrimSpace(sc.Title) == "" {
					return fmt.Errorf("bab %q: sub bab tanpa title", ch.Title)
				}
				if sc.ContentType != "" && !model.IsContentKind(sc.ContentType) {
					return fmt.Errorf("sub bab %q: content_type %q tidak dikenal", sc.Title, sc.ContentType)
				}
			}
		}
	}
	return nil
}

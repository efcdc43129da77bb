// Package reading: state machine sesi baca satu materi oleh satu siswa.
//
//	Idle → Loaded → Viewing(sub bab) → ... → Completed
//
// Sesi tidak pernah maju secara optimistis: posisi baru berubah setelah tulis
// progress dikonfirmasi oleh Source.
package reading

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	hdto "sekolahku_backend/internals/features/materials/hierarchy/dto"
	pdto "sekolahku_backend/internals/features/materials/progress/dto"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

type State int

const (
	StateIdle State = iota
	StateLoaded
	StateViewing
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateViewing:
		return "viewing"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

var (
	ErrBusy              = errors.New("reading: operasi lain sedang berjalan")
	ErrNotViewing        = errors.New("reading: tidak ada sub bab yang sedang dibuka")
	ErrUnknownSubChapter = errors.New("reading: sub bab tidak ada di materi ini")
)

type Session struct {
	src       Source
	studentID uuid.UUID

	mu       sync.Mutex
	inFlight bool

	state      State
	materialID uuid.UUID
	tree       *hdto.MaterialTree
	flat       []hdto.SubChapterResponse
	pos        map[uuid.UUID]int
	current    int
	completed  map[uuid.UUID]bool
	expanded   map[uuid.UUID]bool
	lastMP     *pdto.MaterialProgressResponse
}

func NewSession(src Source, studentID uuid.UUID) *Session {
	return &Session{src: src, studentID: studentID, current: -1}
}

// begin/end: guard satu operasi I/O dalam satu waktu.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	s.inFlight = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Load mengambil hierarki dan status selesai secara paralel, lalu membuka
// sub bab pertama. Kalau gagal, state sebelumnya tetap utuh.
func (s *Session) Load(ctx context.Context, materialID uuid.UUID) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	var (
		tree *hdto.MaterialTree
		done map[uuid.UUID]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tree, err = s.src.Tree(gctx, materialID)
		return err
	})
	g.Go(func() error {
		var err error
		done, err = s.src.CompletedSubChapters(gctx, s.studentID, materialID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	flat := tree.Flatten()
	pos := make(map[uuid.UUID]int, len(flat))
	for i, sc := range flat {
		pos[sc.SubChapterID] = i
	}
	if done == nil {
		done = map[uuid.UUID]bool{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.materialID = materialID
	s.tree = tree
	s.flat = flat
	s.pos = pos
	s.completed = done
	s.expanded = map[uuid.UUID]bool{}
	s.lastMP = nil
	s.current = -1
	s.state = StateLoaded
	if len(flat) > 0 {
		s.moveTo(0)
	}
	return nil
}

// moveTo: caller memegang mu.
func (s *Session) moveTo(i int) {
	s.current = i
	s.state = StateViewing
	s.expanded[s.flat[i].SubChapterChapterID] = true
}

// SelectSubChapter: lompat bebas ke sub bab mana pun di materi ini.
func (s *Session) SelectSubChapter(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	if s.state == StateIdle {
		return ErrNotViewing
	}
	i, ok := s.pos[id]
	if !ok {
		return ErrUnknownSubChapter
	}
	s.moveTo(i)
	return nil
}

// MarkCompleteAndAdvance menandai sub bab aktif selesai lalu pindah ke sub
// bab berikutnya (urutan bab, lalu urutan sub bab). Setelah sub bab terakhir
// state menjadi Completed. Klik ganda saat tulis masih berjalan → ErrBusy.
func (s *Session) MarkCompleteAndAdvance(ctx context.Context) (*pdto.MaterialProgressResponse, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state != StateViewing {
		s.mu.Unlock()
		return nil, ErrNotViewing
	}
	s.inFlight = true
	idx := s.current
	id := s.flat[idx].SubChapterID
	s.mu.Unlock()

	res, err := s.src.SetCompletion(ctx, s.studentID, id, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return nil, err
	}

	s.completed[id] = true
	mp := res.MaterialProgress
	s.lastMP = &mp
	if idx+1 < len(s.flat) {
		s.moveTo(idx + 1)
	} else {
		s.state = StateCompleted
	}
	return &mp, nil
}

// MarkIncomplete membatalkan tanda selesai sub bab aktif; posisi tidak berubah.
func (s *Session) MarkIncomplete(ctx context.Context) (*pdto.MaterialProgressResponse, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state != StateViewing {
		s.mu.Unlock()
		return nil, ErrNotViewing
	}
	s.inFlight = true
	id := s.flat[s.current].SubChapterID
	s.mu.Unlock()

	res, err := s.src.SetCompletion(ctx, s.studentID, id, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return nil, err
	}
	delete(s.completed, id)
	mp := res.MaterialProgress
	s.lastMP = &mp
	return &mp, nil
}

// GoToPrevious mundur satu sub bab. false (tanpa perubahan) di sub bab
// pertama atau saat ada operasi berjalan. Dari Completed kembali ke sub bab
// terakhir.
func (s *Session) GoToPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	switch s.state {
	case StateCompleted:
		if len(s.flat) == 0 {
			return false
		}
		s.moveTo(len(s.flat) - 1)
		return true
	case StateViewing:
		if s.current <= 0 {
			return false
		}
		s.moveTo(s.current - 1)
		return true
	}
	return false
}

// ToggleChapter buka/tutup bab di navigasi; mengembalikan state baru.
func (s *Session) ToggleChapter(chapterID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return false
	}
	for _, ch := range s.tree.Chapters {
		if ch.ChapterID == chapterID {
			s.expanded[chapterID] = !s.expanded[chapterID]
			return s.expanded[chapterID]
		}
	}
	return false
}

/* =========================
   read helpers
========================= */

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) MaterialID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materialID
}

// Current: sub bab aktif (false kalau tidak sedang Viewing).
func (s *Session) Current() (hdto.SubChapterResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateViewing || s.current < 0 {
		return hdto.SubChapterResponse{}, false
	}
	return s.flat[s.current], true
}

func (s *Session) IsCompleted(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[id]
}

// LocalProgress: persentase dari flag lokal, rumus sama dengan server.
func (s *Session) LocalProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sc := range s.flat {
		if s.completed[sc.SubChapterID] {
			n++
		}
	}
	return psvc.Percentage(n, len(s.flat))
}

// ExpandedChapters: id bab yang terbuka, urut sesuai bab.
func (s *Session) ExpandedChapters() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	if s.tree == nil {
		return out
	}
	for _, ch := range s.tree.Chapters {
		if s.expanded[ch.ChapterID] {
			out = append(out, ch.ChapterID)
		}
	}
	return out
}

// LastMaterialProgress: agregat server dari tulis terakhir yang sukses.
func (s *Session) LastMaterialProgress() *pdto.MaterialProgressResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMP == nil {
		return nil
	}
	mp := *s.lastMP
	return &mp
}

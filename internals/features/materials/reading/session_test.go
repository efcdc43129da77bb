package reading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hdto "sekolahku_backend/internals/features/materials/hierarchy/dto"
	pdto "sekolahku_backend/internals/features/materials/progress/dto"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
)

// fakeSource: Source di memori. gate (kalau diisi) menahan SetCompletion
// sampai ditutup; failNext membuat tulis berikutnya gagal.
type fakeSource struct {
	mu       sync.Mutex
	tree     *hdto.MaterialTree
	done     map[uuid.UUID]bool
	treeErr  error
	failNext error
	gate     chan struct{}
	started  chan struct{}
	writes   int
}

func newFakeSource(shape ...int) *fakeSource {
	materialID := uuid.New()
	tree := &hdto.MaterialTree{Material: hdto.MaterialResponse{MaterialID: materialID, MaterialTitle: "Algoritma"}}
	for ci, n := range shape {
		ch := hdto.ChapterTree{ChapterResponse: hdto.ChapterResponse{
			ChapterID: uuid.New(), ChapterMaterialID: materialID, ChapterOrderIndex: ci,
		}}
		ch.SubChapters = []hdto.SubChapterResponse{}
		for si := 0; si < n; si++ {
			ch.SubChapters = append(ch.SubChapters, hdto.SubChapterResponse{
				SubChapterID: uuid.New(), SubChapterChapterID: ch.ChapterID, SubChapterOrderIndex: si,
			})
		}
		tree.Chapters = append(tree.Chapters, ch)
	}
	return &fakeSource{tree: tree, done: map[uuid.UUID]bool{}}
}

func (f *fakeSource) Tree(_ context.Context, materialID uuid.UUID) (*hdto.MaterialTree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	t := *f.tree
	t.Material.MaterialID = materialID
	return &t, nil
}

func (f *fakeSource) CompletedSubChapters(context.Context, uuid.UUID, uuid.UUID) (map[uuid.UUID]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]bool, len(f.done))
	for k, v := range f.done {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSource) SetCompletion(_ context.Context, studentID, subChapterID uuid.UUID, completed bool) (*pdto.CompletionResponse, error) {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	if completed {
		f.done[subChapterID] = true
	} else {
		delete(f.done, subChapterID)
	}
	total := len(f.tree.Flatten())
	return &pdto.CompletionResponse{
		SubChapterProgress: pdto.SubChapterProgressResponse{StudentID: studentID, SubChapterID: subChapterID, Completed: completed},
		MaterialProgress: pdto.MaterialProgressResponse{
			StudentID:            studentID,
			MaterialID:           f.tree.Material.MaterialID,
			CompletedSubChapters: len(f.done),
			TotalSubChapters:     total,
			Percentage:           psvc.Percentage(len(f.done), total),
		},
	}, nil
}

func (f *fakeSource) flat() []hdto.SubChapterResponse { return f.tree.Flatten() }

func loaded(t *testing.T, src *fakeSource) *Session {
	t.Helper()
	s := NewSession(src, uuid.New())
	require.NoError(t, s.Load(context.Background(), src.tree.Material.MaterialID))
	return s
}

func currentID(t *testing.T, s *Session) uuid.UUID {
	t.Helper()
	cur, ok := s.Current()
	require.True(t, ok)
	return cur.SubChapterID
}

func TestSession_LoadSelectsFirstAndExpandsChapter(t *testing.T) {
	src := newFakeSource(2, 1)
	s := NewSession(src, uuid.New())
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Load(context.Background(), src.tree.Material.MaterialID))
	assert.Equal(t, StateViewing, s.State())
	assert.Equal(t, src.flat()[0].SubChapterID, currentID(t, s))
	assert.Equal(t, []uuid.UUID{src.tree.Chapters[0].ChapterID}, s.ExpandedChapters())
	assert.Equal(t, 0, s.LocalProgress())
	assert.Nil(t, s.LastMaterialProgress())
}

func TestSession_LoadEmptyMaterial(t *testing.T) {
	src := newFakeSource()
	s := loaded(t, src)
	assert.Equal(t, StateLoaded, s.State())
	_, ok := s.Current()
	assert.False(t, ok)

	_, err := s.MarkCompleteAndAdvance(context.Background())
	assert.ErrorIs(t, err, ErrNotViewing)
}

func TestSession_LoadRestoresCompletedFlags(t *testing.T) {
	src := newFakeSource(2, 2)
	src.done[src.flat()[1].SubChapterID] = true
	s := loaded(t, src)

	assert.True(t, s.IsCompleted(src.flat()[1].SubChapterID))
	assert.False(t, s.IsCompleted(src.flat()[0].SubChapterID))
	assert.Equal(t, 25, s.LocalProgress())
}

func TestSession_LoadErrorKeepsPreviousState(t *testing.T) {
	src := newFakeSource(3)
	s := loaded(t, src)
	require.NoError(t, s.SelectSubChapter(src.flat()[2].SubChapterID))
	before := s.MaterialID()

	src.treeErr = errors.New("server down")
	err := s.Load(context.Background(), uuid.New())
	require.Error(t, err)

	assert.Equal(t, before, s.MaterialID())
	assert.Equal(t, StateViewing, s.State())
	assert.Equal(t, src.flat()[2].SubChapterID, currentID(t, s))
}

func TestSession_AdvanceThroughMaterial(t *testing.T) {
	src := newFakeSource(2, 1)
	s := loaded(t, src)
	ctx := context.Background()
	flat := src.flat()

	mp, err := s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 33, mp.Percentage)
	assert.Equal(t, flat[1].SubChapterID, currentID(t, s))

	_, err = s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	// pindah bab: bab berikutnya ikut terbuka
	assert.Equal(t, flat[2].SubChapterID, currentID(t, s))
	assert.Equal(t, []uuid.UUID{src.tree.Chapters[0].ChapterID, src.tree.Chapters[1].ChapterID}, s.ExpandedChapters())

	mp, err = s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, mp.Percentage)
	assert.Equal(t, StateCompleted, s.State())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, 100, s.LocalProgress())
	assert.Equal(t, 100, s.LastMaterialProgress().Percentage)

	_, err = s.MarkCompleteAndAdvance(ctx)
	assert.ErrorIs(t, err, ErrNotViewing)
}

func TestSession_NoOptimisticAdvanceOnError(t *testing.T) {
	src := newFakeSource(3)
	s := loaded(t, src)
	first := src.flat()[0].SubChapterID

	src.failNext = errors.New("timeout")
	_, err := s.MarkCompleteAndAdvance(context.Background())
	require.Error(t, err)

	assert.Equal(t, first, currentID(t, s))
	assert.False(t, s.IsCompleted(first))
	assert.Nil(t, s.LastMaterialProgress())

	// retry berhasil
	_, err = s.MarkCompleteAndAdvance(context.Background())
	require.NoError(t, err)
	assert.True(t, s.IsCompleted(first))
}

func TestSession_DuplicateSubmitIsBusy(t *testing.T) {
	src := newFakeSource(3)
	s := loaded(t, src)
	src.gate = make(chan struct{})
	src.started = make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := s.MarkCompleteAndAdvance(context.Background())
		errc <- err
	}()
	<-src.started

	_, err := s.MarkCompleteAndAdvance(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.MarkIncomplete(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.SelectSubChapter(src.flat()[2].SubChapterID), ErrBusy)
	assert.ErrorIs(t, s.Load(context.Background(), uuid.New()), ErrBusy)
	assert.False(t, s.GoToPrevious())

	close(src.gate)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, src.writes)
	assert.Equal(t, src.flat()[1].SubChapterID, currentID(t, s))
}

func TestSession_GoToPrevious(t *testing.T) {
	src := newFakeSource(1, 1)
	s := loaded(t, src)
	flat := src.flat()

	assert.False(t, s.GoToPrevious(), "sub bab pertama: tidak ada yang sebelumnya")
	assert.Equal(t, flat[0].SubChapterID, currentID(t, s))

	require.NoError(t, s.SelectSubChapter(flat[1].SubChapterID))
	assert.True(t, s.GoToPrevious())
	assert.Equal(t, flat[0].SubChapterID, currentID(t, s))

	ctx := context.Background()
	_, err := s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	_, err = s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, s.State())

	assert.True(t, s.GoToPrevious())
	assert.Equal(t, StateViewing, s.State())
	assert.Equal(t, flat[1].SubChapterID, currentID(t, s))
}

func TestSession_SelectSubChapter(t *testing.T) {
	src := newFakeSource(2, 2)
	s := NewSession(src, uuid.New())
	assert.ErrorIs(t, s.SelectSubChapter(uuid.New()), ErrNotViewing)

	require.NoError(t, s.Load(context.Background(), src.tree.Material.MaterialID))
	assert.ErrorIs(t, s.SelectSubChapter(uuid.New()), ErrUnknownSubChapter)

	target := src.flat()[3]
	require.NoError(t, s.SelectSubChapter(target.SubChapterID))
	assert.Equal(t, target.SubChapterID, currentID(t, s))
	assert.Contains(t, s.ExpandedChapters(), target.SubChapterChapterID)
}

func TestSession_ToggleChapter(t *testing.T) {
	src := newFakeSource(1, 1)
	s := NewSession(src, uuid.New())
	assert.False(t, s.ToggleChapter(uuid.New()))

	require.NoError(t, s.Load(context.Background(), src.tree.Material.MaterialID))
	first, second := src.tree.Chapters[0].ChapterID, src.tree.Chapters[1].ChapterID

	assert.False(t, s.ToggleChapter(first))
	assert.Empty(t, s.ExpandedChapters())
	assert.True(t, s.ToggleChapter(second))
	assert.Equal(t, []uuid.UUID{second}, s.ExpandedChapters())
	assert.False(t, s.ToggleChapter(uuid.New()), "bab asing diabaikan")
}

func TestSession_MarkIncomplete(t *testing.T) {
	src := newFakeSource(2)
	s := loaded(t, src)
	ctx := context.Background()
	first := src.flat()[0].SubChapterID

	_, err := s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	require.True(t, s.GoToPrevious())

	mp, err := s.MarkIncomplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, mp.Percentage)
	assert.False(t, s.IsCompleted(first))
	assert.Equal(t, first, currentID(t, s), "posisi tidak berubah")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "viewing", StateViewing.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "unknown", State(99).String())
}

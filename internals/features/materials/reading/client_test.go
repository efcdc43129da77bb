package reading

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	"sekolahku_backend/internals/databases/dbtest"
	hsvc "sekolahku_backend/internals/features/materials/hierarchy/service"
	psvc "sekolahku_backend/internals/features/materials/progress/service"
	helper "sekolahku_backend/internals/helpers"
	authMiddleware "sekolahku_backend/internals/middlewares/auth"
	routes "sekolahku_backend/internals/route"
)

const clientSecret = "reading-test-secret"

func newAPI(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	configs.JWTSecret = clientSecret
	db := dbtest.Open(t)
	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: helper.ErrorHandler,
	})
	routes.SetupRoutes(app, db, nil)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv, db
}

func bearer(t *testing.T, id uuid.UUID, role, kelas string) string {
	t.Helper()
	tok, err := authMiddleware.IssueToken(clientSecret, id, role, kelas, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestClient_SessionOverHTTP(t *testing.T) {
	srv, db := newAPI(t)
	subj := dbtest.Subject(t, db, "Informatika")
	student := dbtest.Student(t, db, "7A")
	mat, subs := dbtest.Tree(t, db, subj.SubjectID, "Algoritma", []int{2, 1}, "7A")
	ctx := context.Background()

	c := NewClient(srv.URL+"/", bearer(t, student.ProfileID, constants.RoleStudent, "7A"),
		WithHTTPClient(srv.Client()))

	tree, err := c.Tree(ctx, mat.MaterialID)
	require.NoError(t, err)
	require.Len(t, tree.Chapters, 2)
	assert.Len(t, tree.Flatten(), 3)

	done, err := c.CompletedSubChapters(ctx, uuid.Nil, mat.MaterialID)
	require.NoError(t, err)
	assert.Empty(t, done)

	// studentID diabaikan: identitas dari token
	s := NewSession(c, uuid.Nil)
	require.NoError(t, s.Load(ctx, mat.MaterialID))
	for i := 0; i < 3; i++ {
		_, err := s.MarkCompleteAndAdvance(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 100, s.LastMaterialProgress().Percentage)

	done, err = c.CompletedSubChapters(ctx, uuid.Nil, mat.MaterialID)
	require.NoError(t, err)
	assert.Len(t, done, 3)

	res, err := c.SetCompletion(ctx, uuid.Nil, subs[0].SubChapterID, false)
	require.NoError(t, err)
	assert.False(t, res.SubChapterProgress.Completed)
	assert.Equal(t, 67, res.MaterialProgress.Percentage)
	assert.Equal(t, student.ProfileID, res.MaterialProgress.StudentID)
}

func TestClient_ErrorMapping(t *testing.T) {
	srv, db := newAPI(t)
	subj := dbtest.Subject(t, db, "Informatika")
	student := dbtest.Student(t, db, "7A")
	hidden, subs := dbtest.Tree(t, db, subj.SubjectID, "Basis Data", []int{1}, "9C")
	ctx := context.Background()

	siswa := NewClient(srv.URL, bearer(t, student.ProfileID, constants.RoleStudent, "7A"))
	_, err := siswa.Tree(ctx, hidden.MaterialID)
	assert.ErrorIs(t, err, helper.ErrNotFound)
	_, err = siswa.SetCompletion(ctx, uuid.Nil, uuid.New(), true)
	assert.ErrorIs(t, err, helper.ErrNotFound)
	_, err = siswa.CompletedSubChapters(ctx, uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, helper.ErrNotFound)

	guru := NewClient(srv.URL, bearer(t, uuid.New(), constants.RoleTeacher, ""))
	_, err = guru.SetCompletion(ctx, uuid.Nil, subs[0].SubChapterID, true)
	assert.ErrorIs(t, err, helper.ErrForbidden)

	anon := NewClient(srv.URL, "")
	_, err = anon.Tree(ctx, hidden.MaterialID)
	assert.ErrorIs(t, err, helper.ErrUnauthenticated)

	down := NewClient("http://127.0.0.1:1", "x", WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err = down.Tree(ctx, hidden.MaterialID)
	assert.ErrorIs(t, err, helper.ErrStorage)
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, helper.ErrUnauthenticated},
		{http.StatusForbidden, helper.ErrForbidden},
		{http.StatusNotFound, helper.ErrNotFound},
		{http.StatusBadRequest, helper.ErrInvalid},
		{http.StatusUnprocessableEntity, helper.ErrInvalid},
		{http.StatusConflict, helper.ErrConflict},
		{http.StatusBadGateway, helper.ErrStorage},
	}
	for _, tt := range tests {
		err := statusError(tt.code, []byte(`{"success":false,"message":"pesan server"}`))
		assert.ErrorIs(t, err, tt.want, "status %d", tt.code)
		assert.Contains(t, err.Error(), "pesan server")
	}
	assert.Contains(t, statusError(http.StatusTeapot, []byte("bukan json")).Error(), http.StatusText(http.StatusTeapot))
}

func TestServiceSource_RespectsClassVisibility(t *testing.T) {
	db := dbtest.Open(t)
	subj := dbtest.Subject(t, db, "Informatika")
	student := dbtest.Student(t, db, "7A")
	own, _ := dbtest.Tree(t, db, subj.SubjectID, "Jaringan", []int{2}, "7A")
	other, _ := dbtest.Tree(t, db, subj.SubjectID, "Basis Data", []int{1}, "8B")
	kelas := "7A"
	ctx := context.Background()

	src := ServiceSource{Hierarchy: hsvc.New(db, nil), Ledger: psvc.NewLedger(db, nil), ClassName: &kelas}

	_, err := src.Tree(ctx, other.MaterialID)
	assert.ErrorIs(t, err, helper.ErrNotFound)

	s := NewSession(src, student.ProfileID)
	require.NoError(t, s.Load(ctx, own.MaterialID))
	mp, err := s.MarkCompleteAndAdvance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, mp.Percentage)

	done, err := src.CompletedSubChapters(ctx, student.ProfileID, own.MaterialID)
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

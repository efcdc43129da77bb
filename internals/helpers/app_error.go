package helper

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Taksonomi error core. Service mengembalikan error yang membungkus salah
// satu sentinel ini (fmt.Errorf("%w: ...")); controller memetakannya ke HTTP.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage failure")
	ErrInvalid         = errors.New("invalid input")
)

// NotFound membungkus ErrNotFound dengan pesan yang aman ditampilkan.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// Invalid: input lolos DTO tapi ditolak aturan domain (400).
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Storage membungkus error DB mentah. Pesan asli hanya masuk log.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return fmt.Sprintf("%s: %s: %v", ErrStorage, e.op, e.err) }
func (e *storageError) Unwrap() []error {
	return []error{ErrStorage, e.err}
}

// ClassifyDBError memetakan error gorm/postgres ke taksonomi.
//   - record not found / FK violation (23503) → ErrNotFound
//   - unique violation (23505)               → ErrConflict
//   - sisanya                                → ErrStorage
func ClassifyDBError(op string, err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrStorage) || errors.Is(err, ErrInvalid) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s", notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return NotFound("%s", notFoundMsg)
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return Storage(op, err)
}

// ToFiberError menerjemahkan error taksonomi ke *fiber.Error.
func ToFiberError(err error) *fiber.Error {
	var fe *fiber.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, publicMessage(err, ErrForbidden))
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, publicMessage(err, ErrNotFound))
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, publicMessage(err, ErrInvalid))
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, "Data bentrok, silakan coba lagi")
	default:
		log.Printf("[ERROR] %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Gagal memproses data")
	}
}

// publicMessage membuang prefix sentinel ("not found: ") dari pesan.
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// ValidationError dirender ErrorHandler sebagai 422 + map field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string { return "validation failed" }

// Validation membungkus error validator/v10.
func Validation(err error) error {
	return &ValidationError{Fields: ValidationFields(err)}
}

// ErrorHandler untuk fiber.Config: semua error keluar dengan envelope JsonError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return JsonValidationError(c, ve.Fields)
	}
	fe := ToFiberError(err)
	return JsonError(c, fe.Code, fe.Message)
}

// ValidationFields mengubah validator.ValidationErrors → map field → tags.
func ValidationFields(err error) map[string][]string {
	out := map[string][]string{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["_"] = []string{err.Error()}
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = append(out[fe.Field()], fe.Tag())
	}
	return out
}

// FailWithData: seperti ErrorHandler tapi menyertakan data kosong (list/objek)
// supaya halaman tetap bisa render sambil menampilkan indikator error.
func FailWithData(c *fiber.Ctx, err error, empty any) error {
	fe := ToFiberError(err)
	return JsonErrorWithData(c, fe.Code, fe.Message, empty)
}

package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// IssueToken menandatangani access token HS256 dengan klaim yang dibaca
// AuthJWT. Dipakai lmsctl (token dev) dan test.
func IssueToken(secret string, userID uuid.UUID, role, kelas string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":   userID.String(),
		"role": strings.ToLower(strings.TrimSpace(role)),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if k := strings.TrimSpace(kelas); k != "" {
		claims["kelas"] = k
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Package admintoken issues and verifies the HS256 bearer tokens that gate
// the review console. The admin id travels in the subject claim; nothing else
// about the admin is encoded in the token.
package admintoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
)

const issuer = "veristay"

// Service signs and parses admin tokens with a shared HMAC secret.
type Service struct {
	secret []byte
}

func NewService(secret []byte) *Service {
	return &Service{secret: secret}
}

// Issue signs a token for the given admin, valid for ttl.
func (s *Service) Issue(admin id.AdminID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   admin.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies the signature and expiry and returns the admin id from the
// subject claim. All failures map to CodeUnauthorized.
func (s *Service) Parse(raw string) (id.AdminID, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.AdminID{}, dErrors.New(dErrors.CodeUnauthorized, "admin token has expired")
		}
		return id.AdminID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}
	if !parsed.Valid {
		return id.AdminID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}

	admin, err := id.ParseAdminID(claims.Subject)
	if err != nil {
		return id.AdminID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token subject")
	}
	return admin, nil
}

package usecase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService validates tokens minted by the identity provider. The rest of
// the system only ever needs the stable user id (plus email for receipts).
type AuthService struct {
	JWTSecret string
}

func (s *AuthService) Verify(token string) (string, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", err
	}
	if !parsed.Valid {
		return "", "", ErrBadRequest("invalid token")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrNotFound("claims")
	}
	uid, _ := m["user_id"].(string)
	email, _ := m["email"].(string)
	if uid == "" {
		return "", "", ErrBadRequest("token missing user_id")
	}
	return uid, email, nil
}

// Issue signs a token for the given identity. Used by dev tooling and tests;
// production tokens come from the identity provider.
func (s *AuthService) Issue(userID, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

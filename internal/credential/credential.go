package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Token verification failures. Callers treat all of them as "unauthenticated"
// and must not reveal to clients which one occurred.
var (
	ErrTokenInvalid  = errors.New("token is malformed or has a bad signature")
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenUnsigned = errors.New("token is missing or uses an unexpected signing method")
)

// Manager hashes passwords and issues/verifies bearer tokens. The signing
// secret is loaded once at startup and immutable afterwards; a Manager is
// safe for concurrent use.
type Manager struct {
	secret      []byte
	tokenExpiry time.Duration
}

// NewManager constructs a Manager around a signing secret and token lifetime.
func NewManager(secret []byte, tokenExpiry time.Duration) *Manager {
	return &Manager{secret: secret, tokenExpiry: tokenExpiry}
}

// HashPassword produces a salted bcrypt hash of the password.
func (m *Manager) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func (m *Manager) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a time-bound JWT whose subject is the given email.
func (m *Manager) IssueToken(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(m.tokenExpiry).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the bound email.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenUnsigned
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenUnsigned
		}
		return m.secret, nil
	})
	switch {
	case errors.Is(err, ErrTokenUnsigned):
		return "", ErrTokenUnsigned
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case err != nil, !token.Valid:
		return "", ErrTokenInvalid
	}

	email, err := token.Claims.GetSubject()
	if err != nil || email == "" {
		return "", ErrTokenInvalid
	}
	return email, nil
}

package credential_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/enrollio/referral-backend/internal/credential"
)

func TestHashAndCheckPassword(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	hash, err := m.HashPassword("password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, m.CheckPassword("password123", hash))
	assert.False(t, m.CheckPassword("wrongpass", hash))
}

func TestHashPassword_Salted(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	first, err := m.HashPassword("samepassword")
	assert.NoError(t, err)
	second, err := m.HashPassword("samepassword")
	assert.NoError(t, err)

	// bcrypt salts every hash, so two hashes of the same input differ
	assert.NotEqual(t, first, second)
}

func TestIssueAndVerifyToken(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	token, err := m.IssueToken("alice@x.org")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	email, err := m.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "alice@x.org", email)
}

func TestVerifyToken_Expired(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), -time.Hour)

	token, err := m.IssueToken("alice@x.org")
	assert.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, credential.ErrTokenExpired)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	issuer := credential.NewManager([]byte("one-secret"), time.Hour)
	verifier := credential.NewManager([]byte("another-secret"), time.Hour)

	token, err := issuer.IssueToken("alice@x.org")
	assert.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, credential.ErrTokenInvalid)
}

func TestVerifyToken_Malformed(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	_, err := m.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, credential.ErrTokenInvalid)
}

func TestVerifyToken_Missing(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	_, err := m.VerifyToken("")
	assert.ErrorIs(t, err, credential.ErrTokenUnsigned)
}

func TestVerifyToken_UnexpectedSigningMethod(t *testing.T) {
	m := credential.NewManager([]byte("test-secret"), time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice@x.org",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, credential.ErrTokenUnsigned)
}

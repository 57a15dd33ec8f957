package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "token-test-signing-key-0123456789"

func TestIssueAndDecodeRoundtrip(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	tokenString, err := codec.Issue("alice", true, now)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := codec.Decode(tokenString, now.Add(30*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Time.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Time.Unix())
}

func TestDecodeExpired(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	tokenString, err := codec.Issue("alice", false, now)
	require.NoError(t, err)

	// One second past the expiry instant.
	_, err = codec.Decode(tokenString, now.Add(time.Hour+time.Second))
	assert.ErrorIs(t, err, ErrExpired)

	// Exactly at the expiry instant the token is no longer valid either.
	_, err = codec.Decode(tokenString, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrExpired)

	// Just before expiry it still is.
	_, err = codec.Decode(tokenString, now.Add(time.Hour-time.Second))
	assert.NoError(t, err)
}

func TestZeroLifetimeTokenIsBornExpired(t *testing.T) {
	codec := New([]byte(testSigningKey), 0)
	now := time.Now()

	tokenString, err := codec.Issue("alice", false, now)
	require.NoError(t, err)

	_, err = codec.Decode(tokenString, now)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeWrongKey(t *testing.T) {
	now := time.Now()

	tokenString, err := New([]byte("one signing key, 32 bytes padded"), time.Hour).Issue("alice", false, now)
	require.NoError(t, err)

	_, err = New([]byte("another signing key, also padded"), time.Hour).Decode(tokenString, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeTampered(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	tokenString, err := codec.Issue("alice", false, now)
	require.NoError(t, err)

	// Flip one character of the payload; the signature no longer matches.
	tampered := []byte(tokenString)
	middle := len(tampered) / 2
	if tampered[middle] == 'a' {
		tampered[middle] = 'b'
	} else {
		tampered[middle] = 'a'
	}

	_, err = codec.Decode(string(tampered), now)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestDecodeUnsignedTokenIsRejected(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	// A token with alg=none must never pass, whatever its claims say.
	unsigned := jwt.NewWithClaims(
		jwt.SigningMethodNone,
		&Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			IsAdmin: true,
		},
	)
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(tokenString, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeMalformed(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	for _, tokenString := range []string{
		"",
		"garbage",
		"a.b",
		"still.not.a-token",
	} {
		_, err := codec.Decode(tokenString, now)
		assert.ErrorIs(t, err, ErrMalformed, tokenString)
	}
}

func TestDecodeRequiresSubjectAndExpiry(t *testing.T) {
	codec := New([]byte(testSigningKey), time.Hour)
	now := time.Now()

	withoutSubject := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		&Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		},
	)
	tokenString, err := withoutSubject.SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	_, err = codec.Decode(tokenString, now)
	assert.ErrorIs(t, err, ErrMalformed)

	withoutExpiry := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		&Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "alice",
			},
		},
	)
	tokenString, err = withoutExpiry.SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	_, err = codec.Decode(tokenString, now)
	assert.ErrorIs(t, err, ErrMalformed)
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linknest/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linknest/internal/logger"
	"github.com/patric-chuzhbe/linknest/internal/token"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

const testSigningKey = "auth-test-signing-key-0123456789"

func newTestAuth(t *testing.T) (*Auth, *memorystorage.MemoryStorage, *token.Codec) {
	t.Helper()

	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	codec := token.New([]byte(testSigningKey), time.Hour)

	return New(db, codec), db, codec
}

func TestRegister(t *testing.T) {
	theAuth, db, _ := newTestAuth(t)

	created, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, user.ThemeLight, created.Theme)
	assert.True(t, created.IsPublic)
	assert.False(t, created.IsAdmin)
	assert.NotEqual(t, "secret1", created.PasswordHash, "the raw password must never be stored")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))

	stored, err := db.GetUserByUsername(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, created.PasswordHash, stored.PasswordHash)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	theAuth, _, _ := newTestAuth(t)

	_, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	_, err = theAuth.Register(context.Background(), "alice", "different2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	theAuth, _, codec := newTestAuth(t)

	_, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	tokenString, err := theAuth.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	claims, err := codec.Decode(tokenString, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.False(t, claims.IsAdmin)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	theAuth, _, _ := newTestAuth(t)

	_, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	_, wrongPasswordErr := theAuth.Login(context.Background(), "alice", "wrong")
	_, unknownUserErr := theAuth.Login(context.Background(), "nosuchuser", "secret1")

	assert.ErrorIs(t, wrongPasswordErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUserErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPasswordErr, unknownUserErr)
}

func TestLoginTokenCarriesAdminSnapshot(t *testing.T) {
	theAuth, db, codec := newTestAuth(t)

	_, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	beforePromotion, err := theAuth.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	alice, err := db.GetUserByUsername(context.Background(), "alice", nil)
	require.NoError(t, err)
	alice.IsAdmin = true
	require.NoError(t, db.UpdateUser(context.Background(), alice, nil))

	afterPromotion, err := theAuth.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	oldClaims, err := codec.Decode(beforePromotion, time.Now())
	require.NoError(t, err)
	newClaims, err := codec.Decode(afterPromotion, time.Now())
	require.NoError(t, err)

	// The old token keeps its snapshot until it expires.
	assert.False(t, oldClaims.IsAdmin)
	assert.True(t, newClaims.IsAdmin)
}

func identityRecordingHandler(recorded *Identity, found *bool) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		*recorded, *found = IdentityFromContext(request.Context())
		response.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	theAuth, _, codec := newTestAuth(t)

	_, err := theAuth.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	tokenString, err := theAuth.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	expiredToken, err := codec.Issue("alice", false, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	type tTestCase struct {
		name             string
		method           string
		url              string
		authHeader       string
		expectedCode     int
		expectedIdentity *Identity
	}
	testCases := []tTestCase{
		{
			name:         "missing_token",
			method:       http.MethodGet,
			url:          "/api/links",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "garbage_token",
			method:       http.MethodGet,
			url:          "/api/links",
			authHeader:   "Bearer garbage",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "expired_token",
			method:       http.MethodGet,
			url:          "/api/links",
			authHeader:   "Bearer " + expiredToken,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "wrong_scheme",
			method:       http.MethodGet,
			url:          "/api/links",
			authHeader:   "Basic YWxpY2U6c2VjcmV0",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:             "valid_token",
			method:           http.MethodGet,
			url:              "/api/links",
			authHeader:       "Bearer " + tokenString,
			expectedCode:     http.StatusOK,
			expectedIdentity: &Identity{Username: "alice"},
		},
		{
			name:         "exempt_route_without_token",
			method:       http.MethodPost,
			url:          "/api/auth/login",
			expectedCode: http.StatusOK,
		},
		{
			name:         "exempt_prefix_route_without_token",
			method:       http.MethodGet,
			url:          "/api/profile/public/alice",
			expectedCode: http.StatusOK,
		},
		{
			name:         "options_is_always_exempt",
			method:       http.MethodOptions,
			url:          "/api/links",
			expectedCode: http.StatusOK,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var recorded Identity
			var found bool
			handler := theAuth.Authenticate(identityRecordingHandler(&recorded, &found))

			request := httptest.NewRequest(testCase.method, testCase.url, nil)
			if testCase.authHeader != "" {
				request.Header.Set("Authorization", testCase.authHeader)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			result := recorder.Result()
			defer result.Body.Close()

			assert.Equal(t, testCase.expectedCode, result.StatusCode)

			if testCase.expectedIdentity != nil {
				assert.True(t, found, "the identity should be published into the context")
				assert.Equal(t, *testCase.expectedIdentity, recorded)
			}
		})
	}
}

func TestIdentityFromContextOnEmptyContext(t *testing.T) {
	identity, found := IdentityFromContext(context.Background())
	assert.False(t, found)
	assert.Empty(t, identity.Username)
	assert.False(t, identity.IsAdmin)
}

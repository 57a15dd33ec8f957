// Package auth provides credential verification (registration and login)
// and the request gate middleware that turns a bearer token into a
// request-scoped identity. Validation is stateless: the gate trusts the
// signed claims and never queries storage.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linknest/internal/db/storage"
	"github.com/patric-chuzhbe/linknest/internal/logger"
	"github.com/patric-chuzhbe/linknest/internal/token"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

// Authentication failure kinds surfaced to the HTTP boundary.
var (
	// ErrUsernameTaken is returned by Register when the username exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned by Login for unknown usernames and
	// wrong passwords alike, so the response shape leaks nothing.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// dummyPasswordHash is compared against when the username does not exist,
// so the unknown-user path costs a bcrypt verification too.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error)
}

type tokenCodec interface {
	Issue(username string, isAdmin bool, now time.Time) (string, error)
	Decode(tokenString string, now time.Time) (*token.Claims, error)
}

// Identity is the request-scoped result of a validated token. It is
// derived fresh on every request and discarded with the request context.
type Identity struct {
	Username string
	IsAdmin  bool
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// IdentityKey is the context key under which the gate publishes the
// authenticated Identity.
const IdentityKey ContextKey = "identity"

// IdentityFromContext retrieves the authenticated identity placed into the
// context by the gate. The second return value is false on exempt routes
// where no token was presented.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)

	return identity, ok
}

// Auth verifies credentials against the user store and mints tokens via
// the codec. It also carries the request gate middleware.
type Auth struct {
	db    userKeeper
	codec tokenCodec
}

// New creates an Auth handler with the given user data access layer and
// token codec. The signing secret lives inside the codec; Auth never sees it.
func New(db userKeeper, codec tokenCodec) *Auth {
	return &Auth{
		db:    db,
		codec: codec,
	}
}

// Register creates a new account with a bcrypt-hashed password. New
// accounts are non-admin and public by default. A duplicate username is
// reported as ErrUsernameTaken.
func (a *Auth) Register(ctx context.Context, username, rawPassword string) (*user.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/Register(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	created, err := a.db.CreateUser(
		ctx,
		&user.User{
			Username:     username,
			PasswordHash: string(passwordHash),
			Theme:        user.ThemeLight,
			IsPublic:     true,
			CreatedAt:    time.Now(),
		},
		nil,
	)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login verifies the credentials and, on success, returns a signed token
// carrying the account's current admin flag.
func (a *Auth) Login(ctx context.Context, username, rawPassword string) (string, error) {
	usr, err := a.db.GetUserByUsername(ctx, username, nil)
	if errors.Is(err, storage.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(rawPassword))

		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(rawPassword)) != nil {
		return "", ErrInvalidCredentials
	}

	return a.codec.Issue(usr.Username, usr.IsAdmin, time.Now())
}

type exemptRoute struct {
	method string
	path   string
	prefix bool
}

// Routes reachable without a token. Evaluated before token extraction;
// everything else on the router requires a valid bearer token.
var exemptRoutes = []exemptRoute{
	{method: http.MethodPost, path: "/api/auth/register"},
	{method: http.MethodPost, path: "/api/auth/login"},
	{method: http.MethodGet, path: "/api/profile/public/", prefix: true},
	{method: http.MethodGet, path: "/api/links/public/", prefix: true},
	{method: http.MethodGet, path: "/ping"},
	{method: http.MethodGet, path: "/api/internal/stats"},
}

func isExempt(request *http.Request) bool {
	if request.Method == http.MethodOptions {
		return true
	}
	for _, route := range exemptRoutes {
		if request.Method != route.method {
			continue
		}
		if route.prefix && strings.HasPrefix(request.URL.Path, route.path) {
			return true
		}
		if !route.prefix && request.URL.Path == route.path {
			return true
		}
	}

	return false
}

func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(header[len(prefix):]), true
}

// Authenticate is the request gate. It runs once per request before any
// handler, extracts the bearer token from the Authorization header,
// validates it and publishes the resulting Identity into the request
// context. Missing, malformed, expired or forged tokens all answer 401
// without further detail.
func (a *Auth) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if isExempt(request) {
			h.ServeHTTP(response, request)

			return
		}

		tokenString, ok := bearerToken(request)
		if !ok {
			http.Error(response, "authentication required", http.StatusUnauthorized)

			return
		}

		claims, err := a.codec.Decode(tokenString, time.Now())
		if err != nil {
			logger.Log.Debugln("Error calling the `a.codec.Decode()`: ", zap.Error(err))
			http.Error(response, "authentication required", http.StatusUnauthorized)

			return
		}

		ctx := context.WithValue(
			request.Context(),
			IdentityKey,
			Identity{
				Username: claims.Subject,
				IsAdmin:  claims.IsAdmin,
			},
		)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

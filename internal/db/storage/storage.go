// Package storage declares the persistence contract consumed by the rest
// of the application and the sentinel errors every backend reports through.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

// ErrNotFound is returned when a referenced user or link does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique key (the username) already exists.
// The registration race is settled here, at the storage boundary.
var ErrConflict = errors.New("already exists")

// Storage is the full persistence contract. The *sql.Tx parameter lets the
// PostgreSQL backend run multi-step flows transactionally; file and memory
// backends accept and ignore it.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	GetAllUsers(ctx context.Context) ([]*user.User, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	CreateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) (*link.Link, error)

	GetLinkByID(ctx context.Context, linkID string) (*link.Link, error)

	GetUserLinks(ctx context.Context, owner string) ([]*link.Link, error)

	UpdateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) error

	DeleteLink(ctx context.Context, linkID string) error

	RegisterLinkClick(ctx context.Context, linkID string, clickedAt time.Time) (int64, error)

	RemoveUsersLinks(ctx context.Context, usersLinks map[string][]string) error

	CountUserLinks(ctx context.Context, owner string) (int64, error)

	GetNumberOfLinks(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}

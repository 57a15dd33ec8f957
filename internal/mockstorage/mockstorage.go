// Package mockstorage provides a testify-based mock implementation
// of the storage contract used by the router package.
// It is used for unit testing HTTP handlers by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

// StorageMock is a testify mock that implements the storage interfaces
// used by the router.
//
// Use it in handler tests to simulate database behavior.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfLinks is an optional function field that can be used
	// to customize the return values of GetNumberOfLinks in tests.
	//
	// If non-nil, the mock implementation will call this function directly.
	OnGetNumberOfLinks func(ctx context.Context) (int64, error)
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, usr, tx)
	created, _ := args.Get(0).(*user.User)
	return created, args.Error(1)
}

// GetUserByUsername mocks fetching a user by the unique username.
func (m *StorageMock) GetUserByUsername(ctx context.Context, username string, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, username, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// UpdateUser mocks rewriting a user's mutable fields.
func (m *StorageMock) UpdateUser(ctx context.Context, usr *user.User, tx *sql.Tx) error {
	args := m.Called(ctx, usr, tx)
	return args.Error(0)
}

// GetAllUsers mocks listing every registered user.
func (m *StorageMock) GetAllUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*user.User)
	return users, args.Error(1)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// CreateLink mocks link creation.
func (m *StorageMock) CreateLink(ctx context.Context, lnk *link.Link, tx *sql.Tx) (*link.Link, error) {
	args := m.Called(ctx, lnk, tx)
	created, _ := args.Get(0).(*link.Link)
	return created, args.Error(1)
}

// GetLinkByID mocks fetching a single link.
func (m *StorageMock) GetLinkByID(ctx context.Context, linkID string) (*link.Link, error) {
	args := m.Called(ctx, linkID)
	lnk, _ := args.Get(0).(*link.Link)
	return lnk, args.Error(1)
}

// GetUserLinks mocks listing an owner's links.
func (m *StorageMock) GetUserLinks(ctx context.Context, owner string) ([]*link.Link, error) {
	args := m.Called(ctx, owner)
	links, _ := args.Get(0).([]*link.Link)
	return links, args.Error(1)
}

// UpdateLink mocks rewriting a link's editable fields.
func (m *StorageMock) UpdateLink(ctx context.Context, lnk *link.Link, tx *sql.Tx) error {
	args := m.Called(ctx, lnk, tx)
	return args.Error(0)
}

// DeleteLink mocks deleting a single link.
func (m *StorageMock) DeleteLink(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

// RegisterLinkClick mocks the click counter increment.
func (m *StorageMock) RegisterLinkClick(ctx context.Context, linkID string, clickedAt time.Time) (int64, error) {
	args := m.Called(ctx, linkID, clickedAt)
	return args.Get(0).(int64), args.Error(1)
}

// RemoveUsersLinks mocks batch link deletion grouped by owner.
func (m *StorageMock) RemoveUsersLinks(ctx context.Context, usersLinks map[string][]string) error {
	args := m.Called(ctx, usersLinks)
	return args.Error(0)
}

// CountUserLinks mocks counting an owner's links.
func (m *StorageMock) CountUserLinks(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfLinks returns the number of links as defined by the mock.
//
// If OnGetNumberOfLinks is defined, the method will call it and return
// its result. Otherwise, it defaults to returning 0 and no error.
func (m *StorageMock) GetNumberOfLinks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfLinks != nil {
		return m.OnGetNumberOfLinks(ctx)
	}
	return 0, nil
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Package postgresdb provides a PostgreSQL-based implementation of the
// storage interface for persisting users and links. It runs schema
// migrations on startup and supports transactional operations and batch
// link removal.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/linknest/internal/db/storage"
	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

const pgUniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the application
// storage. All persistence operations go through a database/sql pool
// using the pgx driver.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithDBPreReset drops and recreates the schema before migrating.
// Intended for integration tests only.
func WithDBPreReset(preReset bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = preReset
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`)

	return err
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}

	return transaction
}

// CreateUser inserts a new user record. A duplicate username is reported
// as storage.ErrConflict; the unique constraint settles the registration
// race.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (*user.User, error) {
	_, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			INSERT INTO users
				(username, password_hash, display_name, bio, avatar_url, theme, is_public, is_admin, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
		usr.Username,
		usr.PasswordHash,
		usr.DisplayName,
		usr.Bio,
		usr.AvatarURL,
		usr.Theme,
		usr.IsPublic,
		usr.IsAdmin,
		usr.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return nil, storage.ErrConflict
		}

		return nil, err
	}

	result := *usr

	return &result, nil
}

// GetUserByUsername fetches a user by the unique username.
// Returns storage.ErrNotFound when no such user exists.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			SELECT username, password_hash, display_name, bio, avatar_url, theme, is_public, is_admin, created_at
				FROM users
				WHERE username = $1
		`,
		username,
	)

	usr := &user.User{}
	err := row.Scan(
		&usr.Username,
		&usr.PasswordHash,
		&usr.DisplayName,
		&usr.Bio,
		&usr.AvatarURL,
		&usr.Theme,
		&usr.IsPublic,
		&usr.IsAdmin,
		&usr.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// UpdateUser rewrites the mutable profile fields of an existing user.
func (db *PostgresDB) UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			UPDATE users
				SET display_name = $2,
					bio = $3,
					avatar_url = $4,
					theme = $5,
					is_public = $6,
					is_admin = $7
				WHERE username = $1
		`,
		usr.Username,
		usr.DisplayName,
		usr.Bio,
		usr.AvatarURL,
		usr.Theme,
		usr.IsPublic,
		usr.IsAdmin,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetAllUsers returns every registered user, newest first.
func (db *PostgresDB) GetAllUsers(ctx context.Context) ([]*user.User, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT username, password_hash, display_name, bio, avatar_url, theme, is_public, is_admin, created_at
				FROM users
				ORDER BY created_at DESC
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*user.User{}
	for rows.Next() {
		usr := &user.User{}
		err = rows.Scan(
			&usr.Username,
			&usr.PasswordHash,
			&usr.DisplayName,
			&usr.Bio,
			&usr.AvatarURL,
			&usr.Theme,
			&usr.IsPublic,
			&usr.IsAdmin,
			&usr.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, usr)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT count(*) FROM users`)
	var result int64
	if err := row.Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// CreateLink inserts a new link owned by lnk.Owner.
func (db *PostgresDB) CreateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) (*link.Link, error) {
	_, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			INSERT INTO links
				(id, owner, title, url, category, click_count, last_clicked, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
		lnk.ID,
		lnk.Owner,
		lnk.Title,
		lnk.URL,
		lnk.Category,
		lnk.ClickCount,
		lnk.LastClicked,
		lnk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result := *lnk

	return &result, nil
}

func (db *PostgresDB) scanLink(row interface{ Scan(dest ...any) error }) (*link.Link, error) {
	lnk := &link.Link{}
	err := row.Scan(
		&lnk.ID,
		&lnk.Owner,
		&lnk.Title,
		&lnk.URL,
		&lnk.Category,
		&lnk.ClickCount,
		&lnk.LastClicked,
		&lnk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return lnk, nil
}

// GetLinkByID fetches a single link. Returns storage.ErrNotFound when the
// link does not exist.
func (db *PostgresDB) GetLinkByID(ctx context.Context, linkID string) (*link.Link, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, owner, title, url, category, click_count, last_clicked, created_at
				FROM links
				WHERE id = $1
		`,
		linkID,
	)

	lnk, err := db.scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return lnk, nil
}

// GetUserLinks returns the owner's links, oldest first.
func (db *PostgresDB) GetUserLinks(ctx context.Context, owner string) ([]*link.Link, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, owner, title, url, category, click_count, last_clicked, created_at
				FROM links
				WHERE owner = $1
				ORDER BY created_at
		`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*link.Link{}
	for rows.Next() {
		lnk, err := db.scanLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, lnk)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateLink rewrites the caller-editable fields of an existing link.
// Ownership is immutable and deliberately not part of the update.
func (db *PostgresDB) UpdateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) error {
	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			UPDATE links
				SET title = $2,
					url = $3,
					category = $4
				WHERE id = $1
		`,
		lnk.ID,
		lnk.Title,
		lnk.URL,
		lnk.Category,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (db *PostgresDB) DeleteLink(ctx context.Context, linkID string) error {
	result, err := db.database.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, linkID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// RegisterLinkClick increments the click counter and stamps the click
// time, returning the new counter value.
func (db *PostgresDB) RegisterLinkClick(ctx context.Context, linkID string, clickedAt time.Time) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			UPDATE links
				SET click_count = click_count + 1,
					last_clicked = $2
				WHERE id = $1
				RETURNING click_count
		`,
		linkID,
		clickedAt,
	)

	var clickCount int64
	err := row.Scan(&clickCount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	return clickCount, nil
}

// RemoveUsersLinks deletes a batch of links grouped by owner. Each delete
// carries the owner predicate, so a queued ID pointing at another user's
// link is skipped rather than deleted.
func (db *PostgresDB) RemoveUsersLinks(
	ctx context.Context,
	usersLinks map[string][]string,
) error {
	transaction, err := db.database.Begin()
	if err != nil {
		return err
	}

	for owner, linkIDs := range usersLinks {
		if len(linkIDs) == 0 {
			continue
		}

		placeholders := make([]string, len(linkIDs))
		for i := range linkIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
		}

		queryParams := append(
			[]interface{}{owner},
			funk.Map(linkIDs, func(linkID string) interface{} { return linkID }).([]interface{})...,
		)

		_, err := transaction.ExecContext(
			ctx,
			fmt.Sprintf(
				`DELETE FROM links WHERE owner = $1 AND id IN (%s)`,
				strings.Join(placeholders, ","),
			),
			queryParams...,
		)
		if err != nil {
			err2 := transaction.Rollback()
			if err2 != nil {
				return err2
			}
			return err
		}
	}

	err = transaction.Commit()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) CountUserLinks(ctx context.Context, owner string) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT count(*) FROM links WHERE owner = $1`, owner)
	var result int64
	if err := row.Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

func (db *PostgresDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT count(*) FROM links`)
	var result int64
	if err := row.Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// Ping verifies database connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(pingCtx)
}

// Close closes the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

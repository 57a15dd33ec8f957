package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/patric-chuzhbe/linknest/internal/db/storage"
	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

// JSONDB keeps users and links in memory and flushes them to a JSON file
// on Close. The mutex covers registration and admin-toggle races; the
// username uniqueness invariant is enforced in CreateUser.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Users map[string]*user.User
	Links map[string]*link.Link
}

// storedUser re-exposes the password hash for the file store. The model
// hides it from JSON so it never leaks through API responses, but the
// file store has to persist it or logins would break across restarts.
type storedUser struct {
	user.User
	PasswordHash string `json:"passwordHash"`
}

type persistedCache struct {
	Users map[string]*storedUser
	Links map[string]*link.Link
}

// MarshalJSON persists the cache including password hashes.
func (c CacheStruct) MarshalJSON() ([]byte, error) {
	users := make(map[string]*storedUser, len(c.Users))
	for username, usr := range c.Users {
		users[username] = &storedUser{
			User:         *usr,
			PasswordHash: usr.PasswordHash,
		}
	}

	return json.Marshal(persistedCache{
		Users: users,
		Links: c.Links,
	})
}

// UnmarshalJSON restores the cache written by MarshalJSON.
func (c *CacheStruct) UnmarshalJSON(data []byte) error {
	persisted := persistedCache{}
	if err := json.Unmarshal(data, &persisted); err != nil {
		return err
	}

	c.Users = make(map[string]*user.User, len(persisted.Users))
	for username, stored := range persisted.Users {
		usr := stored.User
		usr.PasswordHash = stored.PasswordHash
		c.Users[username] = &usr
	}
	c.Links = persisted.Links

	return nil
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"Links": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

func New(fileName string) (*JSONDB, error) {
	theDB := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(theDB.fileName, &theDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(theDB.fileName, &theDB.Cache)
		if err != nil {
			return nil, err
		}
	}

	if theDB.Cache.Users == nil {
		theDB.Cache.Users = map[string]*user.User{}
	}
	if theDB.Cache.Links == nil {
		theDB.Cache.Links = map[string]*link.Link{}
	}

	return &theDB, nil
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Users[usr.Username]; exists {
		return nil, storage.ErrConflict
	}

	stored := *usr
	db.Cache.Users[usr.Username] = &stored
	result := stored

	return &result, nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[username]
	if !found {
		return nil, storage.ErrNotFound
	}
	result := *usr

	return &result, nil
}

func (db *JSONDB) UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[usr.Username]; !found {
		return storage.ErrNotFound
	}
	stored := *usr
	db.Cache.Users[usr.Username] = &stored

	return nil
}

func (db *JSONDB) GetAllUsers(ctx context.Context) ([]*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*user.User, 0, len(db.Cache.Users))
	for _, usr := range db.Cache.Users {
		copied := *usr
		result = append(result, &copied)
	}

	return result, nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) CreateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) (*link.Link, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *lnk
	db.Cache.Links[lnk.ID] = &stored
	result := stored

	return &result, nil
}

func (db *JSONDB) GetLinkByID(ctx context.Context, linkID string) (*link.Link, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	lnk, found := db.Cache.Links[linkID]
	if !found {
		return nil, storage.ErrNotFound
	}
	result := *lnk

	return &result, nil
}

func (db *JSONDB) GetUserLinks(ctx context.Context, owner string) ([]*link.Link, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []*link.Link{}
	for _, lnk := range db.Cache.Links {
		if lnk.Owner != owner {
			continue
		}
		copied := *lnk
		result = append(result, &copied)
	}

	return result, nil
}

func (db *JSONDB) UpdateLink(ctx context.Context, lnk *link.Link, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Links[lnk.ID]; !found {
		return storage.ErrNotFound
	}
	stored := *lnk
	db.Cache.Links[lnk.ID] = &stored

	return nil
}

func (db *JSONDB) DeleteLink(ctx context.Context, linkID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Links[linkID]; !found {
		return storage.ErrNotFound
	}
	delete(db.Cache.Links, linkID)

	return nil
}

func (db *JSONDB) RegisterLinkClick(ctx context.Context, linkID string, clickedAt time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	lnk, found := db.Cache.Links[linkID]
	if !found {
		return 0, storage.ErrNotFound
	}
	lnk.ClickCount++
	lnk.LastClicked = &clickedAt

	return lnk.ClickCount, nil
}

func (db *JSONDB) RemoveUsersLinks(ctx context.Context, usersLinks map[string][]string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for owner, linkIDs := range usersLinks {
		for _, linkID := range linkIDs {
			lnk, found := db.Cache.Links[linkID]
			if !found || lnk.Owner != owner {
				continue
			}
			delete(db.Cache.Links, linkID)
		}
	}

	return nil
}

func (db *JSONDB) CountUserLinks(ctx context.Context, owner string) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var result int64
	for _, lnk := range db.Cache.Links {
		if lnk.Owner == owner {
			result++
		}
	}

	return result, nil
}

func (db *JSONDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Links)), nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	err := writeToJSONFile(db.fileName, db.Cache)
	if err != nil {
		return err
	}

	return nil
}

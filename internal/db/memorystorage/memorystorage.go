package memorystorage

import (
	"github.com/patric-chuzhbe/linknest/internal/db/jsondb"
	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

// MemoryStorage is the jsondb cache without the file: everything lives in
// memory and Close discards it. Used when neither a DSN nor a storage file
// is configured, and throughout the tests.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users: map[string]*user.User{},
				Links: map[string]*link.Link{},
			},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

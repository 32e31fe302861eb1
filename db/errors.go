package db

import (
	"strings"

	"github.com/teranos/longrun/errors"
)

// ErrDatabaseClosed marks operations attempted after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed matches ErrDatabaseClosed and the driver's own
// "database is closed" errors, which arrive unwrapped from database/sql.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

package db

import (
	"strings"

	"github.com/teranos/taxa/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
// This typically happens when the server shuts down while a request is still
// reading from a store.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// It matches wrapped ErrDatabaseClosed as well as the raw driver message, since
// database/sql returns its own unexported error for closed pools.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

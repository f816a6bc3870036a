// Package queries implements the chosen-value store used by the learner.
// The store is strictly best-effort: acceptor safety never depends on it.
// Its job is to let a restarted node reload the values it already learned
// instead of waiting to re-observe accept notifications.
package queries

import "fmt"

// Store persists chosen values keyed by csn.
type Store interface {
	// SetChosenValue inserts/updates the chosen value for @csn.
	SetChosenValue(csn int, v string) error
	// GetChosenValue returns the chosen value for @csn.
	// If no value has been chosen for the requested @csn, an empty string is returned.
	GetChosenValue(csn int) (string, error)
	// GetAllChosenValues returns every stored (csn, value) pair.
	GetAllChosenValues() (map[int]string, error)
	// ResetAllChosenValues empties the store.
	ResetAllChosenValues() error
	// Close releases the underlying connection.
	Close() error
}

// NewStore builds the Store selected by @dbType: "sqlite" backed by the file
// at @dbPath, or "redis" backed by the server at @redisAddr.
func NewStore(dbType, dbPath, redisAddr string) (Store, error) {
	switch dbType {
	case "sqlite":
		return NewSQLiteStore(dbPath)
	case "redis":
		return NewRedisStore(redisAddr)
	default:
		return nil, fmt.Errorf("queries: unknown db type %q", dbType)
	}
}

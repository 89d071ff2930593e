package store

import "context"

// Store defines the persisted key-value interface used for the best
// streak. This abstraction allows swapping implementations (memory,
// Redis, Cassandra) without changing the rest of the codebase.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key has never been set.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value
	Set(ctx context.Context, key, value string) error

	// Close releases any underlying connections
	Close() error
}

// BestStreakKey returns the storage key for a player's best streak
func BestStreakKey(playerID string) string {
	return "beststreak:" + playerID
}

// Errors
var (
	ErrNotFound = &StoreError{Message: "key not found"}
)

// StoreError represents a storage error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

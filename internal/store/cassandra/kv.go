package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/creature-duel-backend/internal/store"
)

// KVStore implements the store.Store interface on the Cassandra kv table
type KVStore struct {
	client *Client
}

// NewKVStore creates a key-value store backed by the given client
func NewKVStore(client *Client) *KVStore {
	return &KVStore{client: client}
}

// Get retrieves the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("SELECT value FROM %s.kv WHERE key = ?", s.client.Keyspace())

	var value string
	err := s.client.Session().Query(query, key).WithContext(ctx).Scan(&value)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	return value, nil
}

// Set stores value under key, overwriting any previous value
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf("INSERT INTO %s.kv (key, value) VALUES (?, ?)", s.client.Keyspace())

	if err := s.client.Session().Query(query, key, value).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Close closes the underlying Cassandra session
func (s *KVStore) Close() error {
	s.client.Close()
	return nil
}

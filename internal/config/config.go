package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Host         string
	Port         string
	StoreBackend string // "memory", "redis" or "cassandra"
	Redis        RedisConfig
	Cassandra    CassandraConfig
	Dex          DexConfig
	Game         GameConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CassandraConfig holds Cassandra-specific configuration
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// DexConfig holds lookup-service client configuration
type DexConfig struct {
	BaseURL       string
	MaxID         int
	Timeout       time.Duration
	PrefetchCount int
}

// GameConfig holds the session controller tunables
type GameConfig struct {
	FetchAttempts       int
	SimilarityAttempts  int
	SimilarityTolerance int
	CooldownTicks       int
	TickInterval        time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	host := getEnv("HOST", "0.0.0.0")
	port := getEnv("PORT", "8080")

	storeBackend := getEnv("STORE_BACKEND", "memory")
	switch storeBackend {
	case "memory", "redis", "cassandra":
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND value: %q (want memory, redis or cassandra)", storeBackend)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cassandraTimeout, err := intEnv("CASSANDRA_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}

	dexMaxID, err := intEnv("DEX_MAX_ID", 898)
	if err != nil {
		return nil, err
	}
	if dexMaxID < 2 {
		return nil, fmt.Errorf("invalid DEX_MAX_ID value: %d (need at least two creatures)", dexMaxID)
	}

	dexTimeout, err := intEnv("DEX_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}

	prefetchCount, err := intEnv("DEX_PREFETCH_COUNT", 20)
	if err != nil {
		return nil, err
	}

	fetchAttempts, err := intEnv("FETCH_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if fetchAttempts < 1 {
		return nil, fmt.Errorf("invalid FETCH_ATTEMPTS value: %d (must be at least 1)", fetchAttempts)
	}

	similarityAttempts, err := intEnv("SIMILARITY_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	similarityTolerance, err := intEnv("SIMILARITY_TOLERANCE", 50)
	if err != nil {
		return nil, err
	}

	cooldownTicks, err := intEnv("COOLDOWN_TICKS", 3)
	if err != nil {
		return nil, err
	}

	tickInterval, err := intEnv("TICK_INTERVAL_SECONDS", 1)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:         host,
		Port:         port,
		StoreBackend: storeBackend,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Cassandra: CassandraConfig{
			Hosts:       parseHosts(getEnv("CASSANDRA_HOSTS", "localhost:9042")),
			Keyspace:    getEnv("CASSANDRA_KEYSPACE", "creature_duel"),
			Username:    getEnv("CASSANDRA_USERNAME", ""),
			Password:    getEnv("CASSANDRA_PASSWORD", ""),
			Consistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),
			Timeout:     time.Duration(cassandraTimeout) * time.Second,
		},
		Dex: DexConfig{
			BaseURL:       getEnv("DEX_BASE_URL", "https://pokeapi.co/api/v2"),
			MaxID:         dexMaxID,
			Timeout:       time.Duration(dexTimeout) * time.Second,
			PrefetchCount: prefetchCount,
		},
		Game: GameConfig{
			FetchAttempts:       fetchAttempts,
			SimilarityAttempts:  similarityAttempts,
			SimilarityTolerance: similarityTolerance,
			CooldownTicks:       cooldownTicks,
			TickInterval:        time.Duration(tickInterval) * time.Second,
		},
	}, nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return value, nil
}

// parseHosts parses a comma-separated list of hosts
func parseHosts(hostsStr string) []string {
	parts := strings.Split(hostsStr, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return []string{"localhost:9042"}
	}
	return hosts
}

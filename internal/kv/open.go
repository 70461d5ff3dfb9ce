package kv

import (
	"fmt"
	"strings"

	"GreenDeck/internal/logger"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend       string
	FilePath      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open constructs the store named by opts.Backend.
func Open(opts Options, log *logger.Logger) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(opts.FilePath, log)
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath, log)
	case BackendRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

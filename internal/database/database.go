// Package database opens the execution history database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/database/migrations"
)

// DB is the execution history database.
type DB struct {
	*sql.DB

	path      string
	wal       bool
	closeOnce sync.Once
	closeErr  error
}

// Open opens the SQLite database at cfg.Path, creating its directory when
// needed, and brings the schema up to date.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Path, err)
	}

	applied, err := migrations.Run(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if applied > 0 {
		log.Debug().Str("path", cfg.Path).Int("applied", applied).Msg("History database schema updated")
	}

	return &DB{DB: sqlDB, path: cfg.Path, wal: cfg.WALMode}, nil
}

// dsn builds a connection string whose pragmas apply to every pooled
// connection, not only the first one.
func dsn(cfg *config.DatabaseConfig) string {
	params := url.Values{}
	if cfg.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.WALMode {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}
	if cfg.CacheSize != 0 {
		params.Add("_pragma", fmt.Sprintf("cache_size(%d)", cfg.CacheSize))
	}

	if len(params) == 0 {
		return cfg.Path
	}
	return "file:" + cfg.Path + "?" + params.Encode()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database. Later calls return
// the result of the first one.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		if db.wal {
			if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				log.Warn().Err(err).Str("path", db.path).Msg("WAL checkpoint failed")
			}
		}
		db.closeErr = db.DB.Close()
	})
	return db.closeErr
}

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Pool keeps one *sql.DB per data source so query actions targeting the same
// database reuse connections across runs.
type Pool struct {
	driver string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewPool creates a pool that opens connections with driver.
func NewPool(driver string) *Pool {
	return &Pool{
		driver: driver,
		dbs:    make(map[string]*sql.DB),
	}
}

// Get returns the database for dsn, opening it on first use.
func (p *Pool) Get(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("no connection configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.dbs[dsn]; ok {
		return db, nil
	}

	db, err := sql.Open(p.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", p.driver, err)
	}
	p.dbs[dsn] = db

	log.Debug().Str("driver", p.driver).Msg("Query connection opened")
	return db, nil
}

// Close closes every open database.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for dsn, db := range p.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.dbs, dsn)
	}
	return errors.Join(errs...)
}

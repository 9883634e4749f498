// Package journal keeps a SQLite history of pipeline runs.
package journal

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pycoreos/pcforge/src/common/logs"
	"github.com/pycoreos/pcforge/src/common/paths"
	"github.com/pycoreos/pcforge/src/forge/journal/migrations"
)

var log = logs.NewDefault()

// SetLogger sets the logger for the journal and its migrations
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
		migrations.SetLogger(l)
	}
}

// Config holds the journal configuration
type Config struct {
	// Enabled turns run recording on
	Enabled bool
	// Path is the SQLite database file
	Path string
}

// DefaultConfig returns a default journal configuration
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Path:    "~/.pcforge/history.db",
	}
}

// Database wraps the SQLite connection
type Database struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once
}

// Open opens (creating if needed) the journal database and applies
// pending migrations
func Open(cfg Config) (*Database, error) {
	path := paths.Expand(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("journal path not set")
	}
	if path != ":memory:" {
		if err := paths.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	// one writer; sqlite serialises anyway and :memory: is per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	if err := migrations.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	log.Debug("Journal opened", "path", path)
	return &Database{db: db, path: path}, nil
}

// DB returns the underlying connection
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the database file
func (d *Database) Path() string {
	return d.path
}

// Close closes the database; later calls are no-ops
func (d *Database) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.db.Close()
	})
	return err
}

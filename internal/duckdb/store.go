// Package duckdb stores decoded variant records in DuckDB so they can be
// queried with SQL after a load.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding loaded variants.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, "" for in-memory.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS variants (
		source VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		id VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		qual DOUBLE,
		filter VARCHAR,
		class VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		path VARCHAR PRIMARY KEY,
		size BIGINT,
		mod_time BIGINT,
		records BIGINT
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

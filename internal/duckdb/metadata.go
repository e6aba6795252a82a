package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// SourceLoaded reports whether a file with the same path, size and
// modification time has already been loaded.
func (s *Store) SourceLoaded(fp FileFingerprint) (bool, error) {
	var size, modTime int64
	err := s.db.QueryRow("SELECT size, mod_time FROM sources WHERE path=?", fp.Path).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return size == fp.Size && modTime == fp.ModTime.UnixNano(), nil
}

// RecordSource stores the fingerprint of a loaded file, replacing an older
// entry for the same path.
func (s *Store) RecordSource(fp FileFingerprint, records int64) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO sources VALUES (?, ?, ?, ?)",
		fp.Path, fp.Size, fp.ModTime.UnixNano(), records)
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

// DeleteSource removes the variants and fingerprint of one file, so a
// changed file can be reloaded.
func (s *Store) DeleteSource(path string) error {
	for _, stmt := range []string{"DELETE FROM variants WHERE source=?", "DELETE FROM sources WHERE path=?"} {
		if _, err := s.db.Exec(stmt, path); err != nil {
			return fmt.Errorf("delete source: %w", err)
		}
	}
	return nil
}

package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

// DefaultBatchSize is the number of variants appended per flush by
// LoadVariants.
const DefaultBatchSize = 10000

// WriteVariants batch-inserts variants from one source file using the
// Appender API. A missing QUAL is stored as NULL.
func (s *Store) WriteVariants(source string, variants []*vcf.Variant) error {
	if len(variants) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variants")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, v := range variants {
		var qual any
		if !v.QualMissing {
			qual = v.Qual
		}
		if err := appender.AppendRow(
			source, v.Chrom, v.Pos, v.ID, v.Ref, v.Alt, qual, v.Filter, v.Class(),
		); err != nil {
			return fmt.Errorf("append variant %s:%d: %w", v.Chrom, v.Pos, err)
		}
	}

	return appender.Flush()
}

// LoadVariants drains r into the store in batches and returns the number of
// variants written.
func (s *Store) LoadVariants(source string, r vcf.VariantReader, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total int
	batch := make([]*vcf.Variant, 0, batchSize)
	flush := func() error {
		if err := s.WriteVariants(source, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		v, err := r.Next()
		if err != nil {
			return total, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		batch = append(batch, v)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// ClearVariants removes all loaded variants and source fingerprints.
func (s *Store) ClearVariants() error {
	for _, stmt := range []string{"DELETE FROM variants", "DELETE FROM sources"} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CountVariants returns the number of loaded variants, restricted to one
// source file unless source is empty.
func (s *Store) CountVariants(source string) (int64, error) {
	var n int64
	var err error
	if source == "" {
		err = s.db.QueryRow("SELECT count(*) FROM variants").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT count(*) FROM variants WHERE source=?", source).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count variants: %w", err)
	}
	return n, nil
}

// LookupPosition returns the variants loaded at chrom:pos.
func (s *Store) LookupPosition(chrom string, pos int64) ([]*vcf.Variant, error) {
	rows, err := s.db.Query(`SELECT chrom, pos, id, ref, alt, qual, filter
		FROM variants
		WHERE chrom=? AND pos=?
		ORDER BY ref, alt`, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query position: %w", err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

// SearchByClass returns every loaded variant of one class (SNV, DEL, ...).
func (s *Store) SearchByClass(class string) ([]*vcf.Variant, error) {
	rows, err := s.db.Query(`SELECT chrom, pos, id, ref, alt, qual, filter
		FROM variants
		WHERE class=?
		ORDER BY chrom, pos`, class)
	if err != nil {
		return nil, fmt.Errorf("query by class: %w", err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

// scanVariants scans rows into variants.
func scanVariants(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*vcf.Variant, error) {
	var out []*vcf.Variant
	for rows.Next() {
		var v vcf.Variant
		var qual sql.NullFloat64
		if err := rows.Scan(&v.Chrom, &v.Pos, &v.ID, &v.Ref, &v.Alt, &qual, &v.Filter); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		v.Qual, v.QualMissing = qual.Float64, !qual.Valid
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}

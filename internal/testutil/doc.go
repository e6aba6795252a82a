// Package testutil builds BCF and BGZF byte streams for tests.
//
// This package is intended for use in tests only. It is not a BCF writer:
// it encodes exactly what a test describes, including malformed input.
//
// # Records
//
//	rec := testutil.Record{Chrom: 0, Pos: 99, Alleles: []string{"A", "T"}}
//	data := testutil.File(headerText, rec)
//
// # Compression
//
//	compressed := testutil.BGZF(data, 1024)
package testutil

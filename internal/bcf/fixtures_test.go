package bcf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-bcf/internal/testutil"
)

// String ids: PASS 0, q10 1, s50 2, DP 3 (INFO and FORMAT), AF 4, DB 5,
// NOTE 6, GT 7. Contig ids: 1 -> 0, 12 -> 1.
const testHeader = `##fileformat=VCFv4.2
##FILTER=<ID=PASS,Description="All filters passed">
##FILTER=<ID=q10,Description="Quality below 10">
##FILTER=<ID=s50,Description="Less than 50% of samples have data">
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele Frequency">
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">
##INFO=<ID=NOTE,Number=1,Type=String,Description="Free text">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read Depth">
##contig=<ID=1,length=249250621>
##contig=<ID=12,length=133851895>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	A	B
`

const (
	idPASS = 0
	idQ10  = 1
	idS50  = 2
	idDP   = 3
	idAF   = 4
	idDB   = 5
	idNOTE = 6
)

// krasRecord is KRAS G12C, PASS, with INFO and per-sample depths.
var krasRecord = testutil.Record{
	Chrom:   1,
	Pos:     25245350,
	Qual:    50,
	ID:      "rs121913529",
	Alleles: []string{"C", "A"},
	Filters: []int32{idPASS},
	Info: []testutil.Field{
		{Key: idDP, Ints: []int32{100}},
		{Key: idAF, Floats: []float32{0.25}},
		{Key: idDB, Flag: true},
		{Key: idNOTE, Str: "a note longer than fifteen chars"},
	},
	NSample: 2,
	Format:  []testutil.Field{{Key: idDP, Ints: []int32{10, 20}}},
}

// multiRecord has two ALT alleles, missing QUAL and two failed filters.
var multiRecord = testutil.Record{
	Chrom:   0,
	Pos:     99,
	Qual:    testutil.FloatMissing,
	ID:      ".",
	Alleles: []string{"A", "G", "T"},
	Filters: []int32{idQ10, idS50},
	NSample: 2,
}

// refRecord has no ALT, no FILTER, two IDs and a zero QUAL.
var refRecord = testutil.Record{
	Chrom:   0,
	Pos:     199,
	Qual:    0,
	ID:      "rs1;rs2",
	Alleles: []string{"G"},
	NSample: 2,
}

// q10Record failed a single filter.
var q10Record = testutil.Record{
	Chrom:   1,
	Pos:     1000,
	Qual:    5,
	Alleles: []string{"ATG", "A"},
	Filters: []int32{idQ10},
	NSample: 2,
}

func testFile() []byte {
	return testutil.File(testHeader, krasRecord, multiRecord, refRecord, q10Record)
}

func openBytes(t *testing.T, data []byte, opts ...Option) *File {
	t.Helper()
	f, err := NewReader(bytes.NewReader(data), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readAll(t *testing.T, f *File) []*Record {
	t.Helper()
	var recs []*Record
	for rec, err := range f.All() {
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return zap.New(core), logs
}

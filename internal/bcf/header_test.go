package bcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

func rawEntries(t *testing.T, lines ...string) []RawEntry {
	t.Helper()
	entries := make([]RawEntry, 0, len(lines))
	for _, l := range lines {
		e, err := parseRawEntry(l)
		require.NoError(t, err, l)
		entries = append(entries, e)
	}
	return entries
}

func TestParseRawEntry(t *testing.T) {
	tests := []struct {
		line string
		want RawEntry
	}{
		{"##fileformat=VCFv4.2", RawEntry{Kind: KindGeneric, Key: "fileformat", Value: "VCFv4.2"}},
		{"##bcftools_viewCommand=view -Ob x.vcf; Date=now", RawEntry{Kind: KindGeneric, Key: "bcftools_viewCommand", Value: "view -Ob x.vcf; Date=now"}},
		{"##flag", RawEntry{Kind: KindGeneric, Key: "flag"}},
		{`##FILTER=<ID=q10,Description="Quality below 10">`, RawEntry{
			Kind: KindFilter, Key: "FILTER",
			Keys: []string{"ID", "Description"}, Vals: []string{"q10", "Quality below 10"},
		}},
		{`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth, total">`, RawEntry{
			Kind: KindInfo, Key: "INFO",
			Keys: []string{"ID", "Number", "Type", "Description"}, Vals: []string{"DP", "1", "Integer", "Depth, total"},
		}},
		{`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`, RawEntry{
			Kind: KindFormat, Key: "FORMAT",
			Keys: []string{"ID", "Number", "Type", "Description"}, Vals: []string{"GT", "1", "String", "Genotype"},
		}},
		{"##contig=<ID=chr1,length=248956422,IDX=0>", RawEntry{
			Kind: KindContig, Key: "contig",
			Keys: []string{"ID", "length", "IDX"}, Vals: []string{"chr1", "248956422", "0"},
		}},
		{`##SAMPLE=<ID=TUMOR,Genomes=Tumor>`, RawEntry{
			Kind: KindStructured, Key: "SAMPLE",
			Keys: []string{"ID", "Genomes"}, Vals: []string{"TUMOR", "Tumor"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseRawEntry(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRawEntry_Malformed(t *testing.T) {
	for _, line := range []string{
		`##INFO=<ID=DP,Number=1`,
		`##INFO=<ID=DP,Description="open>`,
		`##INFO=<=x>`,
	} {
		e, err := parseRawEntry(line)
		assert.Error(t, err, line)
		assert.Equal(t, KindGeneric, e.Kind, line)
		assert.Equal(t, "INFO", e.Key)
		assert.True(t, strings.HasPrefix(e.Value, "<"))
	}
}

func TestBuild(t *testing.T) {
	entries := rawEntries(t,
		"##fileformat=VCFv4.2",
		`##FILTER=<ID=q10,Description="Quality below 10">`,
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth, total">`,
		`##FORMAT=<ID=AD,Number=R,Type=Integer,Description="Allelic depths">`,
		"##contig=<ID=chr1,length=248956422>",
		`##ALT=<ID=DEL,Description="Deletion">`,
	)

	wantTypes := []vcf.HeaderLine{
		&vcf.GenericLine{},
		&vcf.FilterLine{},
		&vcf.InfoLine{},
		&vcf.FormatLine{},
		&vcf.ContigLine{},
		&vcf.StructuredLine{},
	}
	for i, e := range entries {
		l, err := Build(e)
		require.NoError(t, err)
		assert.IsType(t, wantTypes[i], l)
		assert.Equal(t, e.Key, l.Key())
	}

	l, err := Build(entries[2])
	require.NoError(t, err)
	info := l.(*vcf.InfoLine)
	assert.Equal(t, "Depth, total", info.Description)
	assert.Equal(t, `##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth, total">`, info.String())
}

func TestBuild_Fallback(t *testing.T) {
	e := RawEntry{
		Kind: KindFormat,
		Key:  "FORMAT",
		Keys: []string{"ID", "Number", "Type", "Description"},
		Vals: []string{"FT", "0", "Flag", "flags are not allowed here"},
	}

	l, err := Build(e)
	require.Error(t, err)
	s, ok := l.(*vcf.StructuredLine)
	require.True(t, ok)
	assert.Equal(t, "FT", s.ID())
}

func TestBuild_QuotesSeparators(t *testing.T) {
	e := RawEntry{
		Kind: KindStructured,
		Key:  "META",
		Keys: []string{"ID", "Values"},
		Vals: []string{"Assay", "[WholeGenome, Exome]"},
	}

	l, err := Build(e)
	require.NoError(t, err)
	s := l.(*vcf.StructuredLine)
	v, ok := s.Get("Values")
	require.True(t, ok)
	assert.Equal(t, "[WholeGenome, Exome]", v)
}

func TestNewDict(t *testing.T) {
	entries := rawEntries(t,
		"##fileformat=VCFv4.2",
		`##FILTER=<ID=q10,Description="Quality below 10">`,
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">`,
		`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
		`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Depth">`,
		"##contig=<ID=chr2>",
		"##contig=<ID=chr1>",
		`##ALT=<ID=DEL,Description="Deletion">`,
	)
	d := newDict(entries, zap.NewNop())

	for name, id := range map[string]int32{"PASS": 0, "q10": 1, "DP": 2, "GT": 3} {
		got, ok := d.StringID(name)
		assert.True(t, ok, name)
		assert.Equal(t, id, got, name)

		back, ok := d.StringName(id)
		assert.True(t, ok)
		assert.Equal(t, name, back)
	}
	assert.Equal(t, 4, d.NStrings())

	_, ok := d.StringID("DEL")
	assert.False(t, ok)
	_, ok = d.StringName(4)
	assert.False(t, ok)
	_, ok = d.StringName(-1)
	assert.False(t, ok)

	name, ok := d.ContigName(0)
	assert.True(t, ok)
	assert.Equal(t, "chr2", name)
	id, ok := d.ContigID("chr1")
	assert.True(t, ok)
	assert.Equal(t, int32(1), id)
	assert.Equal(t, 2, d.NContigs())
}

func TestNewDict_IDX(t *testing.T) {
	entries := rawEntries(t,
		`##FILTER=<ID=PASS,Description="All filters passed",IDX=0>`,
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth",IDX=3>`,
		`##FILTER=<ID=q10,Description="Quality below 10",IDX=1>`,
		`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Depth",IDX=3>`,
		"##contig=<ID=chrM,IDX=2>",
	)
	logger, logs := observedLogger()
	d := newDict(entries, logger)

	id, _ := d.StringID("DP")
	assert.Equal(t, int32(3), id)
	_, ok := d.StringName(2)
	assert.False(t, ok, "gap left by IDX")
	assert.Equal(t, 4, d.NStrings())

	name, ok := d.ContigName(2)
	assert.True(t, ok)
	assert.Equal(t, "chrM", name)
	_, ok = d.ContigName(0)
	assert.False(t, ok)

	assert.Zero(t, logs.Len())
}

func TestNewDict_IDXOutOfRange(t *testing.T) {
	entries := rawEntries(t,
		`##INFO=<ID=X,Number=1,Type=Integer,Description="X",IDX=50000000>`,
		`##INFO=<ID=Y,Number=1,Type=Integer,Description="Y",IDX=99999999999999999999>`,
		"##contig=<ID=chr1,IDX=2147483648>",
	)
	logger, logs := observedLogger()
	d := newDict(entries, logger)

	// Rejected IDX values fall back to the next free id.
	id, ok := d.StringID("X")
	require.True(t, ok)
	assert.Equal(t, int32(1), id)
	id, ok = d.StringID("Y")
	require.True(t, ok)
	assert.Equal(t, int32(2), id)
	assert.Equal(t, 3, d.NStrings())

	cid, ok := d.ContigID("chr1")
	require.True(t, ok)
	assert.Equal(t, int32(0), cid)
	assert.Equal(t, 1, d.NContigs())

	assert.Equal(t, 3, logs.FilterMessage("ignoring invalid IDX").Len())
}

func TestNewDict_Conflicts(t *testing.T) {
	entries := rawEntries(t,
		`##FILTER=<ID=PASS,Description="All filters passed",IDX=4>`,
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth",IDX=1>`,
		`##INFO=<ID=AF,Number=A,Type=Float,Description="AF",IDX=1>`,
		`##INFO=<ID=MQ,Number=1,Type=Integer,Description="MQ",IDX=x>`,
		`##INFO=<Number=1,Type=Integer,Description="no id">`,
	)
	logger, logs := observedLogger()
	d := newDict(entries, logger)

	id, _ := d.StringID("PASS")
	assert.Equal(t, int32(0), id)
	id, _ = d.StringID("DP")
	assert.Equal(t, int32(1), id)
	_, ok := d.StringID("AF")
	assert.False(t, ok)
	id, ok = d.StringID("MQ")
	assert.True(t, ok)
	assert.Equal(t, int32(2), id)

	assert.Equal(t, 2, logs.FilterMessage("conflicting header dictionary entry").Len())
	assert.Equal(t, 1, logs.FilterMessage("ignoring invalid IDX").Len())
}

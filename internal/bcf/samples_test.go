package bcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectSamples(t *testing.T) {
	all := []string{"A", "B", "C"}

	tests := []struct {
		name        string
		spec        string
		wantIdx     []int
		wantMissing []string
	}{
		{"all sentinel", "-", []int{0, 1, 2}, nil},
		{"single", "B", []int{1}, nil},
		{"file order kept", "C,A", []int{0, 2}, nil},
		{"duplicates", "A,A", []int{0}, nil},
		{"missing", "A,Z,Y", []int{0}, []string{"Z", "Y"}},
		{"exclude", "^B", []int{0, 2}, nil},
		{"exclude missing", "^Z", []int{0, 1, 2}, []string{"Z"}},
		{"empty", "", []int{}, nil},
		{"exclude nothing", "^", []int{0, 1, 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, missing := selectSamples(all, tt.spec)
			assert.Equal(t, tt.wantIdx, idx)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestSetSamples(t *testing.T) {
	tests := []struct {
		name      string
		samples   Samples
		want      []string
		wantIdx   []int
		wantWarns int
	}{
		{"nil keeps all", nil, []string{"A", "B"}, []int{0, 1}, 0},
		{"nil list keeps all", SampleList(nil), []string{"A", "B"}, []int{0, 1}, 0},
		{"all sentinel", AllSamples, []string{"A", "B"}, []int{0, 1}, 0},
		{"list", SampleList{"B"}, []string{"B"}, []int{1}, 0},
		{"string", SampleString("B,A"), []string{"A", "B"}, []int{0, 1}, 0},
		{"exclude", SampleString("^A"), []string{"B"}, []int{1}, 0},
		{"missing names", SampleList{"A", "B", "Z"}, []string{"A", "B"}, []int{0, 1}, 1},
		{"several missing", SampleList{"X", "A", "Z"}, []string{"A"}, []int{0}, 1},
		{"none match", SampleString("Z"), []string{}, []int{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observedLogger()
			f := openBytes(t, testFile(), WithLogger(logger), WithSamples(tt.samples))

			assert.Equal(t, tt.want, f.Samples())
			assert.Equal(t, tt.wantIdx, f.SampleIndices())
			assert.Equal(t, tt.want, f.Header().Samples)
			assert.Equal(t, tt.wantWarns, logs.FilterMessage("requested samples not found in file").Len())
		})
	}
}

func TestSetSamples_WarningListsMissing(t *testing.T) {
	logger, logs := observedLogger()
	f := openBytes(t, testFile(), WithLogger(logger))

	require.NoError(t, f.SetSamples(SampleList{"A", "B", "Z"}))
	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, []interface{}{"Z"}, ctx["missing"])
	assert.Equal(t, int64(2), ctx["matched"])
}

func TestSetSamples_ColumnLine(t *testing.T) {
	f := openBytes(t, testFile())
	require.NoError(t, f.SetSamples(SampleString("B")))
	assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tB", f.Header().ColumnLine())
}

func TestSetSamples_AfterRead(t *testing.T) {
	f := openBytes(t, testFile())
	require.NoError(t, f.SetSamples(SampleString("A")))

	_, err := f.Next()
	require.NoError(t, err)

	err = f.SetSamples(SampleString("B"))
	assert.ErrorIs(t, err, ErrSamplesAfterRead)
	assert.Equal(t, []string{"A"}, f.Samples())
}

func TestSetSamples_RecordKeepsFileSampleCount(t *testing.T) {
	f := openBytes(t, testFile())
	require.NoError(t, f.SetSamples(SampleString("B")))

	rec, err := f.Next()
	require.NoError(t, err)
	defer rec.Release()

	assert.Len(t, f.Samples(), 1)
	assert.Equal(t, 2, rec.NSamples())
}

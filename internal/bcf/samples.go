package bcf

import (
	"strings"

	"go.uber.org/zap"
)

// Samples selects the active samples of a File. A nil Samples leaves the
// selection unchanged.
type Samples interface {
	joined() string
}

// SampleString is a comma-joined list of names. "-" selects every sample
// and a leading "^" excludes the listed names instead.
type SampleString string

func (s SampleString) joined() string { return string(s) }

// SampleList is an ordered list of sample names.
type SampleList []string

func (s SampleList) joined() string { return strings.Join(s, ",") }

// AllSamples selects every sample in the file.
const AllSamples = SampleString("-")

// SetSamples narrows the active samples. It must be called before the
// first Next. Names not present in the file are reported with a single
// warning and otherwise ignored. The file order of samples is kept.
func (f *File) SetSamples(s Samples) error {
	if f.closed {
		return ErrClosed
	}
	if f.started {
		return ErrSamplesAfterRead
	}
	if s == nil {
		return nil
	}
	if l, ok := s.(SampleList); ok && l == nil {
		return nil
	}

	spec := s.joined()
	idx, missing := selectSamples(f.allSamples, spec)
	if len(missing) > 0 && spec != string(AllSamples) {
		f.logger.Warn("requested samples not found in file",
			zap.Strings("missing", missing),
			zap.Int("matched", len(idx)),
		)
	}

	names := make([]string, len(idx))
	for i, j := range idx {
		names[i] = f.allSamples[j]
	}
	f.sampleIdx = idx
	f.samples = names
	if f.header != nil {
		f.header.Samples = names
	}
	return nil
}

// Samples returns the active sample names.
func (f *File) Samples() []string { return f.samples }

// SampleIndices returns the file positions of the active samples.
func (f *File) SampleIndices() []int { return f.sampleIdx }

// selectSamples resolves a joined sample spec against the file's samples.
func selectSamples(all []string, spec string) (idx []int, missing []string) {
	idx = make([]int, 0, len(all))
	if spec == string(AllSamples) {
		for i := range all {
			idx = append(idx, i)
		}
		return idx, nil
	}

	exclude := strings.HasPrefix(spec, "^")
	spec = strings.TrimPrefix(spec, "^")

	pos := make(map[string]int, len(all))
	for i, name := range all {
		if _, ok := pos[name]; !ok {
			pos[name] = i
		}
	}

	want := make(map[int]bool)
	if spec != "" {
		seen := make(map[string]bool)
		for _, name := range strings.Split(spec, ",") {
			if seen[name] {
				continue
			}
			seen[name] = true
			i, ok := pos[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			want[i] = true
		}
	}

	for i := range all {
		if want[i] != exclude {
			idx = append(idx, i)
		}
	}
	return idx, missing
}

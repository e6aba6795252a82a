package bcf

import "github.com/inodb/vibe-bcf/internal/vcf"

var _ vcf.VariantReader = (*VariantReader)(nil)

// VariantReader flattens records into vcf.Variants for the writers and the
// store. Each record is released as soon as it has been flattened.
type VariantReader struct {
	f       *File
	split   bool
	pending []*vcf.Variant
	records int
}

// NewVariantReader wraps f. With split set, multi-allelic records yield
// one variant per ALT allele.
func NewVariantReader(f *File, split bool) *VariantReader {
	return &VariantReader{f: f, split: split}
}

// Next returns the next variant, or nil, nil at the end of the file.
func (vr *VariantReader) Next() (*vcf.Variant, error) {
	if len(vr.pending) > 0 {
		v := vr.pending[0]
		vr.pending = vr.pending[1:]
		return v, nil
	}

	rec, err := vr.f.Next()
	if err != nil || rec == nil {
		return nil, err
	}
	v := rec.Variant()
	rec.Release()
	vr.records++

	if !vr.split {
		return v, nil
	}
	vs := vcf.SplitMultiAllelic(v)
	vr.pending = vs[1:]
	return vs[0], nil
}

// Records returns the number of records read so far.
func (vr *VariantReader) Records() int { return vr.records }

// Close closes the underlying file.
func (vr *VariantReader) Close() error { return vr.f.Close() }

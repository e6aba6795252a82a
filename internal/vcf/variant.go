package vcf

import "strings"

// Variant is a flattened, text-level view of one record, as consumed by the
// writers and the DuckDB store.
type Variant struct {
	Chrom       string                 // Chromosome name (e.g., "12", "chr12")
	Pos         int64                  // 1-based genomic position
	ID          string                 // Variant identifier (e.g., rs ID), "." if none
	Ref         string                 // Reference allele
	Alt         string                 // Comma-joined alternate alleles, "." if none
	Qual        float64                // Quality score
	QualMissing bool                   // QUAL was "."
	Filter      string                 // "PASS", ".", or ;-joined filter names
	Info        map[string]interface{} // INFO field key-value pairs
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v *Variant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > len(v.Alt)
}

// Class returns a short variant class for a single-alt variant:
// REF (no alternate), SYMBOLIC, SNV, MNV, INS, DEL or COMPLEX.
func (v *Variant) Class() string {
	switch {
	case v.Alt == "." || v.Alt == "" || v.Alt == "*":
		return "REF"
	case strings.HasPrefix(v.Alt, "<") || strings.ContainsAny(v.Alt, "[]"):
		return "SYMBOLIC"
	case strings.Contains(v.Alt, ","):
		return "MULTI"
	case v.IsSNV():
		return "SNV"
	case !v.IsIndel():
		return "MNV"
	case v.IsInsertion() && strings.HasPrefix(v.Alt, v.Ref):
		return "INS"
	case v.IsDeletion() && strings.HasPrefix(v.Ref, v.Alt):
		return "DEL"
	}
	return "COMPLEX"
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// SplitMultiAllelic splits a multi-allelic variant into separate variants.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		variants[i] = &Variant{
			Chrom:       v.Chrom,
			Pos:         v.Pos,
			ID:          v.ID,
			Ref:         v.Ref,
			Alt:         alt,
			Qual:        v.Qual,
			QualMissing: v.QualMissing,
			Filter:      v.Filter,
			Info:        v.Info, // Note: INFO is shared, may need deep copy for some use cases
		}
	}

	return variants
}

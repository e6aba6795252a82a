package vcf

// VariantReader is the interface for sources that yield flattened variants.
type VariantReader interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the reader and releases resources.
	Close() error
}

package bcf

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBCF is returned when the stream does not start with the BCF magic.
	ErrNotBCF = errors.New("bcf: not a BCF file")

	// ErrUnsupportedVersion is returned for BCF versions other than 2.1 and 2.2.
	ErrUnsupportedVersion = errors.New("bcf: unsupported version")

	// ErrUnsupportedMode is returned by Open for anything but a read mode.
	ErrUnsupportedMode = errors.New("bcf: unsupported mode")

	// ErrClosed is returned when using a closed File.
	ErrClosed = errors.New("bcf: file closed")

	// ErrSamplesAfterRead is returned by SetSamples once iteration has started.
	ErrSamplesAfterRead = errors.New("bcf: samples must be set before reading records")

	// ErrRecordReleased is the panic value for accessing a released Record.
	ErrRecordReleased = errors.New("bcf: use of released record")

	// ErrNotIndex is returned when an index file is neither CSI nor TBI.
	ErrNotIndex = errors.New("bcf: not a CSI or TBI index")
)

// DecodeError reports malformed binary data in the header or a record.
type DecodeError struct {
	Record int // 1-based record number, 0 for the header
	Field  string
	Offset int // byte offset within the record or header
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Record == 0 {
		return fmt.Sprintf("bcf decode error in header, %s at offset %d: %s", e.Field, e.Offset, e.Msg)
	}
	return fmt.Sprintf("bcf decode error in record %d, %s at offset %d: %s", e.Record, e.Field, e.Offset, e.Msg)
}

package container

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEncoding is returned (wrapped) by OpenDense when the file
// carries the reference-based layout. It is the only failure signature
// that makes Open fail over to the reference reader; every other error
// propagates unchanged.
var ErrUnsupportedEncoding = errors.New("file uses the reference-based encoding")

// FormatError reports a structurally invalid container file.
type FormatError struct {
	Path   string
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("malformed container %s at offset %d: %s", e.Path, e.Offset, e.Reason)
	}
	return fmt.Sprintf("malformed container %s: %s", e.Path, e.Reason)
}

package dataset

import (
	"errors"
	"fmt"
)

// ErrFeatureMismatch is returned when a table does not have the feature
// columns a caller expects.
var ErrFeatureMismatch = errors.New("feature names do not match")

// MalformedRecordError reports an input line that cannot become a table row.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed records in %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed record at %s:%d: %s", e.Path, e.Line, e.Reason)
}

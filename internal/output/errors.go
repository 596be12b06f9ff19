package output

import "fmt"

// Stage names used in StageError.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageWrite     = "write"
	StageManifest  = "manifest"
)

// StageError reports which pipeline stage failed and, for writes, where.
type StageError struct {
	Stage       string
	Destination string
	Err         error
}

func (e *StageError) Error() string {
	if e.Destination != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Destination, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

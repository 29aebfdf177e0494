package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/roach88/milir/internal/diag"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded check of a program.
type Run struct {
	// ID is assigned by the store's IDGenerator when empty.
	ID string `json:"id"`

	// Seq is the logical position of the run in the log, assigned on write.
	Seq int64 `json:"seq"`

	// Source names what was checked, usually the program directory.
	Source string `json:"source"`

	Fingerprint string `json:"fingerprint,omitempty"`
	Opset       string `json:"opset,omitempty"`
	Functions   int    `json:"functions"`

	// Findings is the number of findings recorded with the run. Set on read.
	Findings int `json:"findings"`
}

// Clean reports whether the run recorded no findings.
func (r Run) Clean() bool { return r.Findings == 0 }

// Finding is one diagnostic produced by a check run.
type Finding struct {
	RunID string `json:"run_id,omitempty"`

	// Seq orders findings within a run, starting at 1.
	Seq int64 `json:"seq,omitempty"`

	Code      diag.Code         `json:"code,omitempty"`
	ShortCode string            `json:"short_code"`
	Function  string            `json:"function,omitempty"`
	Op        string            `json:"op,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// FindingFromError converts a check error into a finding. Structured
// *diag.Error values keep their code, context and details; any other error
// is recorded with an empty code.
func FindingFromError(err error) Finding {
	var de *diag.Error
	if errors.As(err, &de) {
		return Finding{
			Code:      de.Code,
			ShortCode: de.Code.Short(),
			Function:  de.Function,
			Op:        de.Op,
			Message:   de.Message,
			Details:   de.Details,
		}
	}
	return Finding{ShortCode: diag.Code("").Short(), Message: err.Error()}
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

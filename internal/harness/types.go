package harness

import "github.com/roach88/milir/internal/store"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Valid is true when the program compiled and passed every check.
	Valid bool `json:"valid"`

	// Code is the code of the first failure, empty when Valid.
	Code string `json:"code,omitempty"`

	// Message is the first failure's message, empty when Valid.
	Message string `json:"message,omitempty"`

	// Opset and Functions describe the compiled program. Empty when the
	// program did not compile.
	Opset     string   `json:"opset,omitempty"`
	Functions []string `json:"functions,omitempty"`

	// Rendering is the program's textual form; Fingerprint its hash.
	Rendering   string `json:"rendering,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// Findings are the findings recorded for the run, read back from the
	// store.
	Findings []store.Finding `json:"findings,omitempty"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

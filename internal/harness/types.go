package harness

// Error kinds reported in Output.Error.
const (
	ErrorQueryShape     = "query_shape"
	ErrorNoSnapshot     = "no_snapshot"
	ErrorInvalidInstant = "invalid_instant"
	ErrorUpstream       = "upstream"
)

// Output is the deterministic outcome of one scenario run. It is the
// content compared against golden files.
type Output struct {
	Scenario  string   `json:"scenario"`
	SessionID string   `json:"session_id"`
	Variables []string `json:"variables,omitempty"`

	// Instants lists the snapshot instants in order.
	Instants []string `json:"instants"`

	// Rows maps each instant to its tuples, terms in canonical encoding.
	// An unbound OPTIONAL variable is the empty string.
	Rows map[string][][]string `json:"rows,omitempty"`

	// Excluded lists the instants outside a window.
	Excluded []string `json:"excluded,omitempty"`

	// Error is the kind of a run that failed with a classified error.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Output is the run outcome used for assertions and golden comparison.
	Output *Output `json:"output"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
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

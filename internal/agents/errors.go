package agents

import "fmt"

// ResourceLimitError indicates a downstream analysis exhausted its
// allotted model capacity (token budget, provider quota). It is a
// recoverable terminal condition: the job surfaces it as
// resource_limit_exceeded rather than an internal failure, and callers
// classify it by type, not by message text.
type ResourceLimitError struct {
	Agent string
	Cause error
}

func (e *ResourceLimitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s analysis exceeded resource limits: %v", e.Agent, e.Cause)
	}
	return fmt.Sprintf("%s analysis exceeded resource limits", e.Agent)
}

func (e *ResourceLimitError) Unwrap() error {
	return e.Cause
}

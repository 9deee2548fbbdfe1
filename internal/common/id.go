package common

import (
	"fmt"
	"time"
)

// NewSessionID builds a session/trace identifier for a downstream
// analyst invocation: "<caller>-<jobID>-<unix timestamp>".
func NewSessionID(caller, jobID string) string {
	return fmt.Sprintf("%s-%s-%d", caller, jobID, time.Now().Unix())
}

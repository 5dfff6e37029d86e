package common

import (
	"time"

	"github.com/google/uuid"
)

// RunIDLayout is the timestamp layout of a run id; the log aggregator parses it back.
const RunIDLayout = "20060102150405"

// NewRunID generates the correlation id for one end-to-end pipeline run.
func NewRunID(now time.Time) string {
	return now.Format(RunIDLayout)
}

// NewInvocationID generates a unique id for a single step invocation
// Format: inv_<uuid>
func NewInvocationID() string {
	return "inv_" + uuid.New().String()
}

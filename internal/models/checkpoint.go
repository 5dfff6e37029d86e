package models

import "time"

// Checkpoint is the last continuation descriptor returned for a parser,
// persisted so an interrupted local run can resume.
type Checkpoint struct {
	Parser     string        `json:"parser" badgerhold:"key"`
	Descriptor JobDescriptor `json:"descriptor"`
	Steps      int           `json:"steps"` // Invocations executed so far in this run
	UpdatedAt  time.Time     `json:"updated_at" badgerhold:"index"`
}

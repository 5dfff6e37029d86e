package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// RunLog buffers status lines for one invocation and appends them on Flush
type RunLog struct {
	phase string
	runID string
	now   func() time.Time
	lines []string
}

// NewRunLog creates a buffer for phase lines tagged with runID
func NewRunLog(phase, runID string, now func() time.Time) *RunLog {
	if now == nil {
		now = time.Now
	}
	return &RunLog{
		phase: phase,
		runID: runID,
		now:   now,
	}
}

// Log buffers one line: timestamp, phase, run id, fields
func (l *RunLog) Log(fields ...string) {
	line := models.LogLine{
		Time:   l.now(),
		Phase:  l.phase,
		RunID:  l.runID,
		Fields: fields,
	}
	l.lines = append(l.lines, line.String())
}

// Lines returns the buffered lines
func (l *RunLog) Lines() []string {
	return l.lines
}

// Flush appends the buffered lines to prefix/name and clears the buffer.
// Nothing is written when the buffer is empty.
func (l *RunLog) Flush(ctx context.Context, storage interfaces.FileStorage, prefix, name string) error {
	if len(l.lines) == 0 {
		return nil
	}
	if err := storage.AppendToFile(ctx, prefix, name, strings.Join(l.lines, "\n")); err != nil {
		return err
	}
	l.lines = nil
	return nil
}

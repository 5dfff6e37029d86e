// -----------------------------------------------------------------------
// Job Descriptor - the unit of state passed between step invocations
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// UnresolvedOffsetEnd marks an offset_end that the phase computes from its total on first use.
const UnresolvedOffsetEnd = -1

// JobDescriptor is both the request and the continuation returned by one step invocation.
// A returned descriptor can be re-submitted as-is.
//
// Invariants:
//   - OffsetEnd == -1 is resolved to total+pad on first use inside a phase and then carried unchanged.
//   - HasMore == false means the next Action is a different phase or terminal.
type JobDescriptor struct {
	Parser         Parser `json:"parser" validate:"required,parser"`
	Action         Action `json:"action" validate:"required,action"`
	Offset         int    `json:"offset" validate:"min=0"`
	OffsetEnd      int    `json:"offset_end" validate:"min=-1"`
	PageSize       int    `json:"page_size" validate:"min=0"` // 0 = phase default
	HasMore        bool   `json:"has_more"`
	UseProxy       bool   `json:"use_proxy"`
	RunID          string `json:"log_id,omitempty" validate:"omitempty,numeric,len=14"`
	Version        string `json:"version,omitempty" validate:"omitempty,numeric,min=7,max=8"`
	ForceFetch     bool   `json:"force_fetch"`
	GotoNextStep   bool   `json:"goto_next_step"`
	PreviousAction Action `json:"previous_action,omitempty" validate:"omitempty,action"`
	Completed      string `json:"completed,omitempty"`     // Progress of the last invocation, e.g. "42.5%"
	LogFilePath    string `json:"log_file_path,omitempty"` // Status folder of the run, informational
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("parser", func(fl validator.FieldLevel) bool {
		return Parser(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		return Action(fl.Field().String()).IsValid()
	})
	return v
}

// NewJobDescriptor creates a descriptor with the defaults applied to absent fields.
func NewJobDescriptor(parser Parser, action Action) *JobDescriptor {
	return &JobDescriptor{
		Parser:       parser,
		Action:       action,
		OffsetEnd:    UnresolvedOffsetEnd,
		GotoNextStep: true,
	}
}

// ParseJobDescriptor decodes and validates a descriptor at the invocation boundary.
// Absent fields keep the NewJobDescriptor defaults.
func ParseJobDescriptor(data []byte) (*JobDescriptor, error) {
	desc := NewJobDescriptor("", "")
	if err := json.Unmarshal(data, desc); err != nil {
		return nil, fmt.Errorf("failed to decode job descriptor: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// Validate checks required fields and value ranges using go-playground/validator.
func (d *JobDescriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid job descriptor: %w", err)
	}
	return nil
}

// Next returns a copy of d moved to action with the cursor reset to the start of that phase.
// OffsetEnd and PageSize are reset so the next phase applies its own total and default.
func (d JobDescriptor) Next(action Action) JobDescriptor {
	next := d
	next.Action = action
	next.Offset = 0
	next.OffsetEnd = UnresolvedOffsetEnd
	next.PageSize = 0
	next.HasMore = !action.IsTerminal()
	next.PreviousAction = ""
	return next
}

// Continue returns a copy of d for the same phase resuming at offset.
func (d JobDescriptor) Continue(offset int) JobDescriptor {
	next := d
	next.Offset = offset
	next.HasMore = true
	return next
}

// Terminal returns a copy of d that ends the run.
func (d JobDescriptor) Terminal(offset int) JobDescriptor {
	next := d
	next.Action = ActionNone
	next.Offset = offset
	next.HasMore = false
	return next
}

// JSON renders the descriptor for logs and crash reports.
func (d JobDescriptor) JSON() string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%+v", d)
	}
	return string(data)
}

// Percentage formats parsed/total the way continuations report progress.
func Percentage(parsed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%g%%", roundTo(float64(parsed)/float64(total)*100, 2))
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// DefaultMaxSteps bounds one Run so a descriptor that never turns terminal cannot loop forever.
const DefaultMaxSteps = 100000

// Stepper executes one bounded invocation and returns the continuation
type Stepper interface {
	Execute(ctx context.Context, desc models.JobDescriptor) (models.JobDescriptor, error)
}

// Runner re-submits continuation descriptors until the run is terminal.
// With checkpoint storage every continuation is saved so an interrupted run can resume.
type Runner struct {
	stepper     Stepper
	checkpoints interfaces.CheckpointStorage // nil disables checkpoints
	logger      arbor.ILogger
	maxSteps    int
}

// NewRunner creates a Runner; checkpoints may be nil
func NewRunner(stepper Stepper, checkpoints interfaces.CheckpointStorage, logger arbor.ILogger) *Runner {
	return &Runner{
		stepper:     stepper,
		checkpoints: checkpoints,
		logger:      logger,
		maxSteps:    DefaultMaxSteps,
	}
}

// SetMaxSteps overrides DefaultMaxSteps
func (r *Runner) SetMaxSteps(n int) {
	if n > 0 {
		r.maxSteps = n
	}
}

// Resume returns the checkpointed descriptor of parser. ok is false when none is stored.
func (r *Runner) Resume(ctx context.Context, parser models.Parser) (models.JobDescriptor, bool, error) {
	if r.checkpoints == nil {
		return models.JobDescriptor{}, false, nil
	}
	cp, err := r.checkpoints.Get(ctx, parser.String())
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return models.JobDescriptor{}, false, nil
	}
	if err != nil {
		return models.JobDescriptor{}, false, err
	}
	return cp.Descriptor, true, nil
}

// Run executes desc and every continuation until the action is terminal.
// It returns the final descriptor and the number of invocations executed.
func (r *Runner) Run(ctx context.Context, desc models.JobDescriptor) (models.JobDescriptor, int, error) {
	steps := 0
	for !desc.Action.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return desc, steps, err
		}
		if steps >= r.maxSteps {
			return desc, steps, fmt.Errorf("run of %s stopped after %d steps at %s offset %d", desc.Parser, steps, desc.Action, desc.Offset)
		}

		next, err := r.stepper.Execute(ctx, desc)
		steps++
		if err != nil {
			return desc, steps, err
		}

		if err := r.save(ctx, next, steps); err != nil {
			return next, steps, err
		}
		desc = next
	}

	if r.checkpoints != nil {
		if err := r.checkpoints.Delete(ctx, desc.Parser.String()); err != nil {
			r.logger.Warn().Err(err).Str("parser", desc.Parser.String()).Msg("Failed to clear checkpoint")
		}
	}

	r.logger.Info().
		Str("parser", desc.Parser.String()).
		Int("steps", steps).
		Str("version", desc.Version).
		Msg("Run completed")

	return desc, steps, nil
}

func (r *Runner) save(ctx context.Context, desc models.JobDescriptor, steps int) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.Save(ctx, &models.Checkpoint{
		Parser:     desc.Parser.String(),
		Descriptor: desc,
		Steps:      steps,
	})
	if err != nil {
		return fmt.Errorf("failed to checkpoint %s: %w", desc.Parser, err)
	}
	return nil
}

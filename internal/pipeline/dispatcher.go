package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/httpclient"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// PhaseFunc runs one bounded invocation of a phase and returns the continuation
type PhaseFunc func(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error)

// FetcherLookup resolves the vendor fetcher of a parser
type FetcherLookup interface {
	Get(parser models.Parser) (interfaces.VendorFetcher, error)
}

// LocatorFactory builds the address resolver used by make.csv
type LocatorFactory func(ctx context.Context, parser models.Parser, paths Paths) (Locator, error)

// Dispatcher routes a job descriptor to the phase of its action and the fetcher of its parser
type Dispatcher struct {
	config     *common.Config
	storage    interfaces.FileStorage
	vendors    FetcherLookup
	logger     arbor.ILogger
	newLocator LocatorFactory
	newBudget  func(ctx context.Context) Budget
	sleeper    Sleeper
	now        func() time.Time
	phases     map[models.Action]PhaseFunc
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLocatorFactory enables geocoding in make.csv
func WithLocatorFactory(factory LocatorFactory) DispatcherOption {
	return func(d *Dispatcher) {
		d.newLocator = factory
	}
}

// WithSleeper replaces the sleeper used between requests
func WithSleeper(sleeper Sleeper) DispatcherOption {
	return func(d *Dispatcher) {
		d.sleeper = sleeper
	}
}

// WithBudget replaces how the time budget of an invocation is measured
func WithBudget(newBudget func(ctx context.Context) Budget) DispatcherOption {
	return func(d *Dispatcher) {
		d.newBudget = newBudget
	}
}

// WithClock replaces the clock used for run ids, partitions and timestamps
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a Dispatcher with every phase registered
func NewDispatcher(config *common.Config, storage interfaces.FileStorage, vendors FetcherLookup, logger arbor.ILogger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		config:  config,
		storage: storage,
		vendors: vendors,
		logger:  logger,
		sleeper: ContextSleeper{},
		now:     time.Now,
		phases: map[models.Action]PhaseFunc{
			models.ActionProcessLocation: RunLocation,
			models.ActionProcessMenu:     RunMenu,
			models.ActionProcessPostMenu: RunPostMenu,
			models.ActionMakeCSV:         RunCSV,
			models.ActionProcessLogs:     RunLogs,
		},
	}
	d.newBudget = func(ctx context.Context) Budget {
		return NewBudget(ctx, d.config.Pipeline.LocalRemaining.Duration)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute validates desc, runs one invocation of its phase and returns the continuation.
// A terminal descriptor is returned unchanged with has_more cleared.
func (d *Dispatcher) Execute(ctx context.Context, desc models.JobDescriptor) (models.JobDescriptor, error) {
	if err := desc.Validate(); err != nil {
		return desc, err
	}
	if desc.Action.IsTerminal() {
		desc.HasMore = false
		return desc, nil
	}

	phase, ok := d.phases[desc.Action]
	if !ok {
		return desc, fmt.Errorf("no phase registered for action %s", desc.Action)
	}

	ctx = httpclient.ContextWithProxy(ctx, desc.UseProxy)
	desc.Version = common.ResolvePartition(desc.Version, d.now())
	paths := NewPaths(d.config, desc.Parser, desc.Version)
	logger := d.logger.WithCorrelationId(common.NewInvocationID())

	env := &Env{
		Config:  d.config,
		Storage: d.storage,
		Paths:   paths,
		Budget:  d.newBudget(ctx),
		Sleeper: d.sleeper,
		Logger:  logger,
		Now:     d.now,
	}

	if desc.Action != models.ActionProcessLogs {
		vendor, err := d.vendors.Get(desc.Parser)
		if err != nil {
			return desc, err
		}
		env.Vendor = vendor
	}

	if desc.Action == models.ActionMakeCSV && d.newLocator != nil {
		locator, err := d.newLocator(ctx, desc.Parser, paths)
		if err != nil {
			return desc, fmt.Errorf("failed to create address resolver: %w", err)
		}
		env.Locator = locator
	}

	logger.Info().
		Str("parser", desc.Parser.String()).
		Str("action", desc.Action.String()).
		Int("offset", desc.Offset).
		Int("offset_end", desc.OffsetEnd).
		Str("version", desc.Version).
		Msg("Executing step")

	next, err := phase(ctx, env, desc)
	if err != nil {
		logger.Error().Err(err).Str("action", desc.Action.String()).Msg("Step failed")
		return next, fmt.Errorf("%s %s: %w", desc.Parser, desc.Action, err)
	}

	logger.Info().
		Str("next_action", next.Action.String()).
		Int("offset", next.Offset).
		Bool("has_more", next.HasMore).
		Str("completed", next.Completed).
		Msg("Step completed")

	return next, nil
}

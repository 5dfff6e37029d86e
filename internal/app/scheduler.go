package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// Scheduler starts a full run of every configured parser on a cron schedule.
// A tick that fires while the previous one is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   *Runner
	logger   arbor.ILogger
	parsers  []models.Parser
	useProxy bool

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	isProcessing bool
	running      bool
	wg           sync.WaitGroup
}

// NewScheduler creates a scheduler for the parsers of cfg
func NewScheduler(cfg common.SchedulerConfig, runner *Runner, logger arbor.ILogger) (*Scheduler, error) {
	parsers := make([]models.Parser, 0, len(cfg.Parsers))
	for _, name := range cfg.Parsers {
		p := models.Parser(name)
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown parser %q in scheduler.parsers", name)
		}
		parsers = append(parsers, p)
	}

	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		logger:   logger,
		parsers:  parsers,
		useProxy: cfg.UseProxy,
	}, nil
}

// Start registers schedule and starts the cron loop
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Strs("parsers", parserNames(s.parsers)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous scheduled run still in progress, skipping")
		return
	}
	s.isProcessing = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	s.RunOnce(ctx)
}

// RunOnce runs every parser from the location phase to the end.
// A failing or panicking parser is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) map[models.Parser]error {
	results := make(map[models.Parser]error, len(s.parsers))
	for _, parser := range s.parsers {
		if ctx.Err() != nil {
			results[parser] = ctx.Err()
			continue
		}

		desc := *models.NewJobDescriptor(parser, models.ActionProcessLocation)
		desc.UseProxy = s.useProxy

		var final models.JobDescriptor
		var steps int
		err := common.RunRecovered(s.logger, "scheduled "+parser.String(), desc.JSON, func() error {
			var runErr error
			final, steps, runErr = s.runner.Run(ctx, desc)
			return runErr
		})
		results[parser] = err
		if err != nil {
			s.logger.Error().Err(err).Str("parser", parser.String()).Int("steps", steps).Msg("Scheduled run failed")
			continue
		}
		s.logger.Info().Str("parser", parser.String()).Int("steps", steps).Str("version", final.Version).Msg("Scheduled run finished")
	}
	return results
}

func parserNames(parsers []models.Parser) []string {
	names := make([]string, len(parsers))
	for i, p := range parsers {
		names[i] = p.String()
	}
	return names
}

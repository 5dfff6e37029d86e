package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/csvflat"
	"github.com/ternarybob/harvester/internal/interfaces"
)

// Locator resolves coordinates for the CSV phase and persists what it learned
type Locator interface {
	csvflat.Locator
	Flush(ctx context.Context) error
}

// Env carries the collaborators of one phase invocation
type Env struct {
	Config  *common.Config
	Storage interfaces.FileStorage
	Vendor  interfaces.VendorFetcher // nil for process.logs
	Locator Locator                  // nil disables geocoding in make.csv
	Paths   Paths
	Budget  Budget
	Sleeper Sleeper
	Logger  arbor.ILogger
	Now     func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) exhausted() bool {
	return Exhausted(e.Budget, e.Config.Pipeline.TimeMargin.Duration)
}

func (e *Env) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleeper == nil {
		return nil
	}
	return e.Sleeper.Sleep(ctx, d)
}

func pageSize(requested, def int) int {
	if requested > 0 {
		return requested
	}
	return def
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// AggregateLog tallies the lines of one run in a status log.
// Lines whose third field is not runID are ignored; manifest bookkeeping lines
// are excluded from the total; a line counts as a success when it contains "success".
func AggregateLog(content, runID string) (total, success, failure int) {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 || strings.TrimSpace(fields[2]) != runID {
			continue
		}
		if len(fields) > 3 && fields[3] == models.LogBookkeepingMarker {
			continue
		}
		total++
		if strings.Contains(line, models.LogSuccess) {
			success++
		} else {
			failure++
		}
	}
	return total, success, failure
}

// reportDate renders the run id as the report date; unparseable ids fall back to now
func reportDate(runID string, now time.Time) string {
	t, err := time.Parse(common.RunIDLayout, runID)
	if err != nil {
		t = now
	}
	return t.Format(models.ReportDateLayout)
}

// RunLogs writes the success/failure report of the phase that just finished
// and routes the run to its next phase.
func RunLogs(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error) {
	previous := desc.PreviousAction
	if previous == "" {
		previous = models.ActionProcessLocation
	}
	kind := previous.LogKind()
	if previous != models.ActionProcessLocation && previous != models.ActionProcessMenu {
		return desc, fmt.Errorf("no log report for previous action %q", previous)
	}

	parser := desc.Parser.String()
	logName := env.Paths.LogFile(kind)
	content, err := env.Storage.ReadFile(ctx, env.Paths.Status(), logName)
	if errors.Is(err, interfaces.ErrNotFound) {
		env.Logger.Warn().Str("file", logName).Msg("Status log not found, reporting empty run")
		content, err = "", nil
	}
	if err != nil {
		return desc, fmt.Errorf("failed to read %s: %w", logName, err)
	}

	total, success, failure := AggregateLog(content, desc.RunID)
	date := reportDate(desc.RunID, env.now())
	report := models.NewLogReport(parser, date, total, success, failure)

	data, err := json.Marshal(report)
	if err != nil {
		return desc, fmt.Errorf("failed to encode log report: %w", err)
	}
	reportName := models.ReportFileName(parser, kind, date)
	if err := env.Storage.WriteFile(ctx, env.Paths.Status(), reportName, string(data)); err != nil {
		return desc, fmt.Errorf("failed to write log report: %w", err)
	}

	env.Logger.Info().
		Str("parser", parser).
		Str("kind", kind).
		Int("total", total).
		Int("success", success).
		Int("failure", failure).
		Msg("Log report written")

	if previous == models.ActionProcessLocation {
		return desc.Next(models.ActionProcessMenu), nil
	}

	if !desc.GotoNextStep {
		next := desc.Terminal(0)
		next.PreviousAction = ""
		return next, nil
	}
	if env.Config.RequiresPostMenu(parser) {
		// a partial Menu range also bounds Post-Menu
		next := desc.Next(models.ActionProcessPostMenu)
		next.OffsetEnd = desc.OffsetEnd
		return next, nil
	}
	return desc.Next(models.ActionMakeCSV), nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// RunPostMenu enriches every stored menu from desc.Offset through the vendor's ParseItems.
func RunPostMenu(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error) {
	if desc.RunID == "" {
		desc.RunID = common.NewRunID(env.now())
	}
	size := pageSize(desc.PageSize, env.Config.Pipeline.PostMenuPageSize)
	desc.PageSize = size
	runLog := NewRunLog(models.LogPhasePostMenu, desc.RunID, env.Now)
	offset := desc.Offset

	names, err := env.Storage.List(ctx, env.Paths.Menu())
	if err != nil {
		return desc, fmt.Errorf("failed to list menus: %w", err)
	}
	total := len(names)
	if desc.OffsetEnd == models.UnresolvedOffsetEnd {
		desc.OffsetEnd = total + env.Config.Pipeline.PostMenuOffsetPad
	}

	rowParsed := 0
	for _, name := range names {
		if rowParsed >= offset {
			if err := enrichMenu(ctx, env, runLog, name); err != nil {
				env.Logger.Error().Err(err).Str("file", name).Msg("Data was not inputted")
			}
		}
		rowParsed++

		if rowParsed >= offset+size {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("Post-menu page size reached")
			break
		}
		if env.exhausted() {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("Post-menu phase suspended, time budget low")
			break
		}
	}

	stop := rowParsed >= desc.OffsetEnd
	allParsed := rowParsed >= total

	if err := runLog.Flush(ctx, env.Storage, env.Paths.Status(), env.Paths.LogFile(models.ActionProcessPostMenu.LogKind())); err != nil {
		return desc, fmt.Errorf("failed to flush post-menu log: %w", err)
	}

	completed := models.Percentage(rowParsed, total)

	switch {
	case allParsed:
		env.Logger.Info().Int("total", total).Msg("All post-menu items parsed")
		next := desc.Next(models.ActionMakeCSV)
		next.Completed = completed
		return next, nil
	case stop:
		env.Logger.Info().Int("offset", offset).Int("offset_end", desc.OffsetEnd).Msg("Post-menu range parsed")
		next := desc.Terminal(rowParsed)
		next.Completed = completed
		return next, nil
	default:
		next := desc.Continue(rowParsed)
		next.Completed = completed
		return next, nil
	}
}

func enrichMenu(ctx context.Context, env *Env, runLog *RunLog, name string) error {
	itemID := strings.SplitN(name, ".", 2)[0]

	content, err := env.Storage.ReadFile(ctx, env.Paths.Menu(), name)
	if err != nil {
		return err
	}
	var record models.MenuRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return fmt.Errorf("failed to decode menu %s: %w", name, err)
	}

	updated, costFiles, err := env.Vendor.ParseItems(ctx, runLog, record.MenuDetail, itemID)
	if err != nil {
		return fmt.Errorf("failed to parse items of %s: %w", name, err)
	}

	data, err := json.Marshal(models.MenuRecord{
		Store:      record.Store,
		MenuDetail: updated,
		CostFile:   costFiles,
	})
	if err != nil {
		return fmt.Errorf("failed to encode post-menu %s: %w", name, err)
	}
	if err := env.Storage.WriteFile(ctx, env.Paths.PostMenu(), name, string(data)); err != nil {
		return err
	}

	env.Logger.Info().Str("file", name).Msg("Post-menu file written")
	return nil
}

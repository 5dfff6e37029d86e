package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// manifestEntry is one row of the Menu manifest
type manifestEntry struct {
	ID       int
	FileName string
}

// writeManifest lists the location area and stores the .json names with ids from 1
func writeManifest(ctx context.Context, env *Env, runLog *RunLog) error {
	names, err := env.Storage.List(ctx, env.Paths.Location())
	if err != nil {
		return fmt.Errorf("failed to list locations: %w", err)
	}

	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	_ = writer.Write([]string{"id", "file_name"})
	count := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		count++
		_ = writer.Write([]string{strconv.Itoa(count), name})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}

	if err := env.Storage.WriteFile(ctx, env.Paths.Status(), ManifestName, sb.String()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	env.Logger.Info().Int("file_count", count).Msg("Menu manifest generated")
	runLog.Log(models.LogBookkeepingMarker, "file_count", strconv.Itoa(count), models.LogSuccess)
	return nil
}

func readManifest(content string) ([]manifestEntry, error) {
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		id, _ := strconv.Atoi(record[0])
		entries = append(entries, manifestEntry{ID: id, FileName: record[1]})
	}
	return entries, nil
}

func readLocation(ctx context.Context, env *Env, fileName string) (models.LocationRecord, error) {
	content, err := env.Storage.ReadFile(ctx, env.Paths.Location(), fileName)
	if err != nil {
		return nil, err
	}
	var record models.LocationRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return nil, fmt.Errorf("failed to decode location %s: %w", fileName, err)
	}
	if record == nil {
		record = models.LocationRecord{}
	}
	return record, nil
}

// RunMenu fetches the menu of every manifest entry from desc.Offset.
// Existing menu files are skipped unless desc.ForceFetch is set.
func RunMenu(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error) {
	if desc.RunID == "" {
		desc.RunID = common.NewRunID(env.now())
	}
	size := pageSize(desc.PageSize, env.Config.Pipeline.MenuPageSize)
	desc.PageSize = size
	runLog := NewRunLog(models.LogPhaseMenu, desc.RunID, env.Now)
	offset := desc.Offset

	exists, err := env.Storage.FileExists(ctx, env.Paths.Status(), ManifestName)
	if err != nil {
		return desc, fmt.Errorf("failed to check manifest: %w", err)
	}
	if offset == 0 || !exists {
		if err := writeManifest(ctx, env, runLog); err != nil {
			return desc, err
		}
	}

	content, err := env.Storage.ReadFile(ctx, env.Paths.Status(), ManifestName)
	if err != nil {
		return desc, fmt.Errorf("failed to read manifest: %w", err)
	}
	entries, err := readManifest(content)
	if err != nil {
		return desc, fmt.Errorf("failed to parse manifest: %w", err)
	}

	total := len(entries)
	if desc.OffsetEnd == models.UnresolvedOffsetEnd {
		desc.OffsetEnd = total + env.Config.Pipeline.MenuOffsetPad
	}

	gotoNext := desc.GotoNextStep
	rowParsed := 0
	for i, entry := range entries {
		if rowParsed >= offset {
			fileName := entry.FileName
			done, err := env.Storage.FileExists(ctx, env.Paths.Menu(), fileName)
			if err != nil {
				return desc, fmt.Errorf("failed to check menu %s: %w", fileName, err)
			}

			if desc.ForceFetch || !done {
				env.Logger.Info().Int("record", i).Str("file", fileName).Msg("Processing menu record")
				halted := fetchMenu(ctx, env, runLog, fileName, offset)
				if halted || !gotoNext {
					gotoNext = false
					env.Logger.Warn().Str("file", fileName).Msg("Menu phase halted, upstream precondition failed")
					break
				}

				if rowParsed > offset+1 {
					if err := env.sleep(ctx, env.Config.Pipeline.RowDelay.Duration); err != nil {
						return desc, err
					}
				}
			} else {
				runLog.Log("file", fileName, "found", models.LogSuccess)
			}
		}

		rowParsed++

		if rowParsed >= offset+size {
			env.Logger.Info().Int("record", i).Int("total", total).Msg("Menu page size reached")
			break
		}
		if env.exhausted() {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("Menu phase suspended, time budget low")
			break
		}
	}

	allParsed := rowParsed >= desc.OffsetEnd || rowParsed >= total

	if err := runLog.Flush(ctx, env.Storage, env.Paths.Status(), env.Paths.LogFile(models.ActionProcessMenu.LogKind())); err != nil {
		return desc, fmt.Errorf("failed to flush menu log: %w", err)
	}

	desc.LogFilePath = env.Paths.LogFilePath()
	completed := models.Percentage(rowParsed, total)

	if !gotoNext {
		next := desc.Terminal(0)
		next.GotoNextStep = false
		next.Completed = completed
		return next, nil
	}

	if allParsed {
		env.Logger.Info().Int("total", total).Msg("All menu items parsed")
		next := desc.Next(models.ActionProcessLogs)
		next.OffsetEnd = desc.OffsetEnd
		next.PreviousAction = models.ActionProcessMenu
		next.Completed = completed
		return next, nil
	}

	next := desc.Continue(rowParsed)
	next.Completed = completed
	return next, nil
}

// fetchMenu requests one menu and persists the result or a failure marker.
// It returns true when the vendor asked to halt the pipeline.
func fetchMenu(ctx context.Context, env *Env, runLog *RunLog, fileName string, offset int) bool {
	store, err := readLocation(ctx, env, fileName)
	if err != nil {
		env.Logger.Error().Err(err).Str("file", fileName).Msg("Unable to read location")
		runLog.Log("url", fileName, strconv.Itoa(offset), models.LogFailure)
		return false
	}
	store["scrape_date"] = env.now().Format(models.ScrapeDateLayout)

	storeID, payload, err := env.Vendor.GenRequest(ctx, store)
	if errors.Is(err, interfaces.ErrHaltPipeline) {
		return true
	}
	if err != nil {
		env.Logger.Error().Err(err).Str("file", fileName).Msg("Menu request failed")
		payload = nil
	}

	if payload != nil {
		data, err := json.Marshal(models.MenuRecord{Store: store, MenuDetail: payload})
		if err == nil {
			err = env.Storage.WriteFile(ctx, env.Paths.Menu(), fileName, string(data))
		}
		if err == nil {
			runLog.Log("url", fileName, strconv.Itoa(offset), models.LogSuccess)
			env.Logger.Info().Str("store", storeID).Str("file", fileName).Msg("Menu stored")
			return false
		}
		env.Logger.Error().Err(err).Str("file", fileName).Msg("Unable to store menu")
	}

	if err := env.Storage.WriteFile(ctx, env.Paths.FailedMenu(), fileName, "None"); err != nil {
		env.Logger.Error().Err(err).Str("file", fileName).Msg("Unable to write failure marker")
	}
	runLog.Log("url", fileName, strconv.Itoa(offset), models.LogFailure)
	env.Logger.Error().Str("store", storeID).Str("file", fileName).Msg("Menu fetch failed")
	return false
}

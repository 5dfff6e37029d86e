package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// locationSink writes location files found by the vendor and buffers their status lines
type locationSink struct {
	env *Env
	log *RunLog
}

func (s *locationSink) LocationExists(ctx context.Context, fileName string) (bool, error) {
	return s.env.Storage.FileExists(ctx, s.env.Paths.Location(), fileName)
}

func (s *locationSink) SaveLocation(ctx context.Context, fileName string, record models.LocationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode location %s: %w", fileName, err)
	}
	return s.env.Storage.WriteFile(ctx, s.env.Paths.Location(), fileName, string(data))
}

func (s *locationSink) Log(fields ...string) {
	s.log.Log(fields...)
}

// markFailedLocation records a failed location page as <parent>_<offset>.json in the failed_loc area
func markFailedLocation(ctx context.Context, env *Env, parentID string, pageOffset int) {
	name := parentID + "_" + strconv.Itoa(pageOffset) + ".json"
	if err := env.Storage.WriteFile(ctx, env.Paths.FailedLocation(), name, "None"); err != nil {
		env.Logger.Error().Err(err).Str("file", name).Msg("Unable to write failure marker")
	}
}

// readSeedRows parses the seed CSV into header keyed rows
func readSeedRows(content string) ([]models.SeedRow, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]models.SeedRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(models.SeedRow, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RunLocation walks the seed rows from desc.Offset, paging each row through the vendor.
func RunLocation(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error) {
	if desc.RunID == "" {
		desc.RunID = common.NewRunID(env.now())
	}
	size := pageSize(desc.PageSize, env.Config.Pipeline.LocationPageSize)
	desc.PageSize = size
	runLog := NewRunLog(models.LogPhaseLocation, desc.RunID, env.Now)
	sink := &locationSink{env: env, log: runLog}
	parser := env.Vendor.GetServiceName()

	content, err := env.Storage.ReadFile(ctx, env.Paths.Input(), env.Paths.SeedFile())
	if err != nil {
		return desc, fmt.Errorf("failed to read location seed: %w", err)
	}
	rows, err := readSeedRows(content)
	if err != nil {
		return desc, fmt.Errorf("failed to parse location seed: %w", err)
	}

	total := len(rows)
	offset := desc.Offset
	urlPageSize := env.Vendor.URLPageSize()
	if urlPageSize <= 0 {
		urlPageSize = env.Config.Pipeline.URLPageSize
	}

	env.Logger.Info().Str("parser", parser.String()).Int("total", total).Int("offset", offset).Msg("Generating locations")

	rowParsed := 0
	for i, row := range rows {
		parentID := env.Vendor.GetIdentifierID(row)

		if rowParsed >= offset {
			known, pageOffset := 10, 0
			for known > pageOffset {
				if pageOffset > 0 {
					if err := env.sleep(ctx, env.Config.Pipeline.PageDelay.Duration); err != nil {
						return desc, err
					}
				}
				env.Logger.Debug().Str("parent_id", parentID).Int("offset", pageOffset).Int("page_size", urlPageSize).Msg("Fetching location page")

				known, err = env.Vendor.FetchOnePage(ctx, sink, row, parentID, urlPageSize, pageOffset)
				if err != nil {
					env.Logger.Error().Err(err).Str("parent_id", parentID).Int("offset", pageOffset).Msg("Location page failed")
					runLog.Log("url", parentID, strconv.Itoa(pageOffset), models.LogFailure)
					markFailedLocation(ctx, env, parentID, pageOffset)
					known = 0
				}
				pageOffset += urlPageSize
			}
		}

		rowParsed++
		if rowParsed > offset+1 {
			if err := env.sleep(ctx, env.Config.Pipeline.RowDelay.Duration); err != nil {
				return desc, err
			}
		}

		if rowParsed >= offset+size {
			env.Logger.Info().Int("record", i).Int("total", total).Msg("Location page size reached")
			break
		}
		if env.exhausted() {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("Location phase suspended, time budget low")
			break
		}
	}

	if err := runLog.Flush(ctx, env.Storage, env.Paths.Status(), env.Paths.LogFile(models.ActionProcessLocation.LogKind())); err != nil {
		return desc, fmt.Errorf("failed to flush location log: %w", err)
	}

	desc.LogFilePath = env.Paths.LogFilePath()
	completed := models.Percentage(rowParsed, total)

	if rowParsed >= total {
		env.Logger.Info().Int("total", total).Msg("All locations parsed")
		next := desc.Next(models.ActionProcessLogs)
		next.PreviousAction = models.ActionProcessLocation
		next.Completed = completed
		return next, nil
	}

	next := desc.Continue(rowParsed)
	next.Completed = completed
	return next, nil
}

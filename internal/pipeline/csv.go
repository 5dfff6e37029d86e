package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/harvester/internal/csvflat"
	"github.com/ternarybob/harvester/internal/models"
)

// CSVFileName is the output name of one make.csv invocation
func CSVFileName(parser models.Parser, offset int) string {
	return fmt.Sprintf("%s_prices_%d.csv", parser, offset)
}

// RunCSV flattens stored menus from desc.Offset into one CSV file per invocation.
func RunCSV(ctx context.Context, env *Env, desc models.JobDescriptor) (models.JobDescriptor, error) {
	parser := env.Vendor.GetServiceName()
	def := env.Config.Pipeline.CSVPageSizeLocal
	if env.Config.InLambda {
		def = env.Config.Pipeline.CSVPageSize
	}
	size := pageSize(desc.PageSize, def)
	desc.PageSize = size
	offset := desc.Offset

	input := env.Paths.Menu()
	if env.Config.RequiresPostMenu(parser.String()) {
		input = env.Paths.PostMenu()
	}

	names, err := env.Storage.List(ctx, input)
	if err != nil {
		return desc, fmt.Errorf("failed to list %s: %w", input, err)
	}
	total := len(names)
	desc.OffsetEnd = total + env.Config.Pipeline.CSVOffsetPad

	brand, ok := env.Config.Brand(parser.String())
	if !ok {
		env.Logger.Warn().Str("parser", parser.String()).Msg("No brand configured for parser")
	}

	var locator csvflat.Locator
	if env.Locator != nil {
		locator = env.Locator
	}
	builder := csvflat.NewRowBuilder(locator, brand, env.Logger)

	fileName := CSVFileName(parser, offset)
	scratch := filepath.Join(env.Config.Storage.ScratchDir, parser.String(), "result", fileName)
	writer, err := csvflat.Create(scratch, builder)
	if err != nil {
		return desc, err
	}

	rowParsed := 0
	for _, name := range names {
		if rowParsed >= offset {
			if err := flattenRecord(ctx, env, writer, input, name); err != nil {
				env.Logger.Error().Err(err).Str("file", name).Msg("Data was not inputted")
			}
		}
		rowParsed++

		if rowParsed >= offset+size {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("CSV page size reached")
			break
		}
		if env.exhausted() {
			env.Logger.Info().Int("parsed", rowParsed).Int("total", total).Msg("CSV phase suspended, time budget low")
			break
		}
	}

	if err := writer.Close(); err != nil {
		return desc, err
	}

	key := path.Join(env.Paths.Result(), fileName)
	if err := env.Storage.UploadObject(ctx, scratch, key); err != nil {
		return desc, fmt.Errorf("failed to store %s: %w", key, err)
	}
	env.Logger.Info().Str("key", key).Int("rows", writer.Rows()).Msg("CSV written")

	if env.Locator != nil {
		if err := env.Locator.Flush(ctx); err != nil {
			env.Logger.Error().Err(err).Msg("Unable to persist address cache")
		}
	}

	completed := models.Percentage(rowParsed, total)

	if rowParsed >= total {
		env.Logger.Info().Int("total", total).Msg("All menu items flattened")
		next := desc.Terminal(0)
		next.Completed = completed
		return next, nil
	}

	next := desc.Continue(rowParsed)
	next.Completed = completed
	return next, nil
}

func flattenRecord(ctx context.Context, env *Env, writer *csvflat.Writer, input, name string) error {
	content, err := env.Storage.ReadFile(ctx, input, name)
	if err != nil {
		return err
	}
	var record models.MenuRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if record.Store == nil {
		record.Store = models.LocationRecord{}
	}

	var costs map[string]map[string]float64
	if len(record.CostFile) > 0 {
		costs = csvflat.ReadCostFiles(ctx, env.Storage, env.Paths.PostMenuCost(), record.CostFile, env.Logger)
	}
	writer.SetCosts(costs)

	storeID := strings.SplitN(name, ".", 2)[0]
	return env.Vendor.WriteMenuToCSV(ctx, record, storeID, writer)
}

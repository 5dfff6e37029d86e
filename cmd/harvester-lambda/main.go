package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/app"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// handler executes one step per invocation. The returned descriptor is the
// input of the next invocation; the state machine loops while has_more is set.
type handler struct {
	application *app.App
	logger      arbor.ILogger
}

// Handle decodes the raw event so absent fields keep the descriptor defaults
func (h *handler) Handle(ctx context.Context, event json.RawMessage) (models.JobDescriptor, error) {
	desc, err := models.ParseJobDescriptor(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event)).Msg("Rejected descriptor")
		return models.JobDescriptor{}, err
	}
	return h.application.Dispatcher.Execute(ctx, *desc)
}

func main() {
	var configFiles []string
	if path := os.Getenv("HARVESTER_CONFIG"); path != "" {
		configFiles = append(configFiles, path)
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	logger.Info().Str("version", common.GetFullVersion()).Bool("object_store", config.UseObjectStore()).Msg("Lambda cold start")

	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	h := &handler{application: application, logger: logger}
	lambda.Start(h.Handle)
}

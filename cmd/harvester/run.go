package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/harvester/internal/app"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a chain from a phase until the pipeline ends",
	Long: `Re-submits every continuation descriptor until the action is terminal.
Each continuation is checkpointed; --resume picks up the last one after an interruption.`,
	RunE: runRun,
}

var (
	runParser     string
	runAction     string
	runPartition  string
	runPageSize   int
	runProxy      bool
	runForceFetch bool
	runNoCSV      bool
	runResume     bool
	runMaxSteps   int
)

func init() {
	runCmd.Flags().StringVarP(&runParser, "parser", "p", "", "Chain to run (required)")
	runCmd.Flags().StringVarP(&runAction, "action", "a", string(models.ActionProcessLocation), "Phase to start from")
	runCmd.Flags().StringVar(&runPartition, "partition", "", "Storage partition label (default: current week)")
	runCmd.Flags().IntVar(&runPageSize, "page-size", 0, "Items per invocation for the first phase (0 = phase default)")
	runCmd.Flags().BoolVar(&runProxy, "proxy", false, "Route vendor requests through the proxy")
	runCmd.Flags().BoolVar(&runForceFetch, "force-fetch", false, "Refetch menus that already exist")
	runCmd.Flags().BoolVar(&runNoCSV, "no-next-step", false, "Stop after the menu log report")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Continue from the last checkpoint of the parser")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", app.DefaultMaxSteps, "Upper bound on invocations")
	_ = runCmd.MarkFlagRequired("parser")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, err := app.New(ctx, config, logger, app.WithCheckpoints())
	if err != nil {
		return err
	}
	defer application.Close()

	parser := models.Parser(runParser)
	desc := *models.NewJobDescriptor(parser, models.Action(runAction))
	desc.Version = runPartition
	desc.PageSize = runPageSize
	desc.UseProxy = runProxy
	desc.ForceFetch = runForceFetch
	desc.GotoNextStep = !runNoCSV

	if runResume {
		resumed, ok, err := application.Runner.Resume(ctx, parser)
		if err != nil {
			return err
		}
		if ok {
			logger.Info().Str("parser", parser.String()).Str("action", resumed.Action.String()).Int("offset", resumed.Offset).Msg("Resuming from checkpoint")
			desc = resumed
		} else {
			logger.Warn().Str("parser", parser.String()).Msg("No checkpoint found, starting fresh")
		}
	}

	if err := desc.Validate(); err != nil {
		return err
	}

	current := desc
	defer common.RecoverWithCrashFile(func() string { return current.JSON() })

	application.Runner.SetMaxSteps(runMaxSteps)
	final, steps, err := application.Runner.Run(ctx, desc)
	current = final
	if err != nil {
		return fmt.Errorf("run stopped after %d steps: %w", steps, err)
	}
	return printDescriptor(final)
}

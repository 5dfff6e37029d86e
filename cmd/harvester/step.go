package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/harvester/internal/app"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

var stepCmd = &cobra.Command{
	Use:   "step [descriptor-json]",
	Short: "Run one bounded invocation and print the continuation",
	Long: `Executes one step for a job descriptor and prints the returned descriptor as JSON.
The descriptor is read from the argument, from --file, or from stdin when neither is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStep,
}

var stepFile string

func init() {
	stepCmd.Flags().StringVarP(&stepFile, "file", "f", "", "Read the descriptor from a file")
}

func readDescriptor(args []string) (*models.JobDescriptor, error) {
	var data []byte
	var err error
	switch {
	case len(args) == 1:
		data = []byte(args[0])
	case stepFile != "":
		data, err = os.ReadFile(stepFile)
	default:
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return models.ParseJobDescriptor(data)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printDescriptor(desc models.JobDescriptor) error {
	out, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runStep(cmd *cobra.Command, args []string) error {
	desc, err := readDescriptor(args)
	if err != nil {
		return err
	}
	defer common.RecoverWithCrashFile(desc.JSON)

	ctx, cancel := signalContext()
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	next, err := application.Dispatcher.Execute(ctx, *desc)
	if err != nil {
		return err
	}
	return printDescriptor(next)
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/pipeline"
	"github.com/ternarybob/harvester/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the latest log report of a chain",
	RunE:  runReport,
}

var (
	reportParser    string
	reportKind      string
	reportPartition string
	reportAll       bool
)

func init() {
	reportCmd.Flags().StringVarP(&reportParser, "parser", "p", "", "Chain (required)")
	reportCmd.Flags().StringVarP(&reportKind, "kind", "k", "menu", "Report kind: locations or menu")
	reportCmd.Flags().StringVar(&reportPartition, "partition", "", "Storage partition label (default: current week)")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Print every report of the kind, oldest first")
	_ = reportCmd.MarkFlagRequired("parser")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	parser := models.Parser(reportParser)
	if !parser.IsValid() {
		return fmt.Errorf("unknown parser %q", reportParser)
	}

	fs, err := storage.NewFileStorage(ctx, logger, config)
	if err != nil {
		return err
	}

	version := common.ResolvePartition(reportPartition, time.Now())
	paths := pipeline.NewPaths(config, parser, version)
	names, err := fs.List(ctx, paths.Status())
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", paths.Status(), err)
	}

	prefix := fmt.Sprintf("%s_%s_log_report_", parser, reportKind)
	var reports []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			reports = append(reports, name)
		}
	}
	if len(reports) == 0 {
		return fmt.Errorf("no %s report for %s in partition %s", reportKind, parser, version)
	}
	if !reportAll {
		reports = reports[len(reports)-1:]
	}

	for _, name := range reports {
		content, err := fs.ReadFile(ctx, paths.Status(), name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		fmt.Printf("%s\n%s\n", name, content)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wisefido-rppg/common/logger"
	"wisefido-rppg/internal/classifier"
	"wisefido-rppg/internal/extractor"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/replay"
	"wisefido-rppg/internal/report"
)

var (
	fps            float64
	classifierName string
	extraction     string
	xlsxPath       string
	logLevel       string
)

// rootCmd is the entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:           "rppg-replay",
	Short:         "Replay pulse signals through the rPPG pipeline.",
	Long:          `rppg-replay feeds recorded samples or synthetic video through the same filtering, peak detection and classification the service uses, with a clock that follows the sample timestamps.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&fps, "fps", 30, "sampling rate of the signal in frames per second")
	rootCmd.PersistentFlags().StringVar(&classifierName, "classifier", "redness", "classification table: redness or heart")
	rootCmd.PersistentFlags().StringVar(&extraction, "extraction", "chrom", "sample extraction: chrom or green")
	rootCmd.PersistentFlags().StringVar(&xlsxPath, "xlsx", "", "also write the estimates to this spreadsheet")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(replayCmd, synthCmd, exportCmd, watchCmd)
}

// pipelineConfig is the sliding live-mode configuration at the requested rate.
func pipelineConfig() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig(fps)
	table, err := classifier.ParseTable(classifierName)
	if err != nil {
		return cfg, err
	}
	method, err := extractor.ParseMethod(extraction)
	if err != nil {
		return cfg, err
	}
	cfg.Table = table
	cfg.Extraction = method
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logger.NewLogger(logLevel, "console", "rppg-replay")
}

// emit prints the table and writes the spreadsheet when requested.
func emit(cmd *cobra.Command, estimates []*models.MetricEstimate, waveform []float64) error {
	if len(estimates) == 0 {
		cmd.Println("No estimates: the signal is shorter than one window.")
	} else if err := replay.PrintTable(cmd.OutOrStdout(), estimates); err != nil {
		return err
	}

	if xlsxPath == "" {
		return nil
	}
	f, err := os.Create(xlsxPath)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", xlsxPath, err)
	}
	defer f.Close()
	if err := report.WriteReplay(f, estimates, waveform, fps); err != nil {
		return err
	}
	cmd.Printf("Wrote %d estimates to %s\n", len(estimates), xlsxPath)
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wisefido-rppg/internal/replay"
)

var csvPath string

// replayCmd replays a value,timestamp CSV.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded samples from a CSV file.",
	Long: `Replay value,timestamp samples through a sliding pipeline.

Examples:
  # Replay a recording taken at 30 fps
  rppg-replay replay --csv samples.csv

  # Keep the estimates and the last filtered window
  rppg-replay replay --csv samples.csv --xlsx replay.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(csvPath)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", csvPath, err)
		}
		defer f.Close()

		samples, err := replay.ReadCSV(f)
		if err != nil {
			return err
		}
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		trace, err := replay.Samples(cfg, samples)
		if err != nil {
			return err
		}
		cmd.Printf("Replayed %d samples\n", trace.Samples)
		return emit(cmd, trace.Estimates, trace.Waveform)
	},
}

func init() {
	replayCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file of value,timestamp rows")
	_ = replayCmd.MarkFlagRequired("csv")
}

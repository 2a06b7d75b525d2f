package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wisefido-rppg/common/database"
	"wisefido-rppg/internal/config"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/replay"
	"wisefido-rppg/internal/report"
	"wisefido-rppg/internal/repository"
)

var (
	exportSession string
	exportOut     string
	exportLimit   int
)

// exportCmd exports stored estimates of one session.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored estimates of a session to a spreadsheet.",
	Long: `Read a session's estimates from Postgres (DB_* environment variables, as for the
service) and write them to an xlsx file.

Examples:
  rppg-replay export --session 5f0c... --out session.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		zl, err := newLogger()
		if err != nil {
			return err
		}
		defer zl.Sync()

		db, err := database.Open(cmd.Context(), &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		records, err := repository.NewEstimateRepository(db, zl).ListBySession(ctx, exportSession, exportLimit)
		if err != nil {
			return err
		}
		// oldest first
		estimates := make([]*models.MetricEstimate, len(records))
		for i := range records {
			estimates[len(records)-1-i] = &records[i].Estimate
		}

		if err := replay.PrintTable(cmd.OutOrStdout(), estimates); err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("could not create %s: %w", exportOut, err)
		}
		defer f.Close()
		if err := report.WriteEstimates(f, estimates); err != nil {
			return err
		}
		cmd.Printf("Wrote %d estimates of session %s to %s\n", len(estimates), exportSession, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSession, "session", "", "session id")
	exportCmd.Flags().StringVar(&exportOut, "out", "estimates.xlsx", "output xlsx file")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "maximum number of estimates")
	_ = exportCmd.MarkFlagRequired("session")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rediscommon "wisefido-rppg/common/redis"
	"wisefido-rppg/internal/config"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/publisher"
	"wisefido-rppg/internal/replay"
	"wisefido-rppg/internal/session"
)

var (
	watchGroup   string
	watchSession string
)

// watchCmd follows the live estimate stream of a running service.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print estimates as the service emits them.",
	Long: `Follow the Redis estimate stream (REDIS_* environment variables, as for the service)
as a member of a consumer group and print each batch of estimates until interrupted.

Examples:
  rppg-replay watch
  rppg-replay watch --session cam-1 --group dashboards`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := rediscommon.Connect(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		reader, err := publisher.NewStreamReader(ctx, client, publisher.EstimateStream, watchGroup, "rppg-replay-"+session.NewID())
		if err != nil {
			return err
		}
		cmd.Printf("Watching %s as group %s\n", publisher.EstimateStream, watchGroup)

		for ctx.Err() == nil {
			events, err := reader.Read(ctx, 100, 2*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				return err
			}
			var estimates []*models.MetricEstimate
			for _, ev := range events {
				if watchSession == "" || ev.SessionID == watchSession {
					estimates = append(estimates, ev.Estimate)
				}
			}
			if len(estimates) == 0 {
				continue
			}
			if err := replay.PrintTable(cmd.OutOrStdout(), estimates); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchGroup, "group", "rppg-replay", "consumer group name")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "only print this session")
}

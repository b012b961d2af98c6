package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the configured AI provider and whether it answers",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		runtime, err := newAIRuntime(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("building ai matcher", zap.Error(err))
		}

		available := runtime.prober.IsAvailable(ctx)
		fields := []zap.Field{
			zap.String("provider", runtime.provider),
			zap.String("model", runtime.model),
			zap.Bool("available", available),
		}

		if !available {
			logger.Warn("ai service is not reachable", fields...)
			return
		}
		logger.Info("ai service is ready", fields...)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

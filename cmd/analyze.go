package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/applications"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score how well an application's candidate matches its job",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		applicationsPath, _ := cmd.Flags().GetString("applications")
		applicationID, _ := cmd.Flags().GetString("application-id")

		store, err := applications.Open(applicationsPath)
		if err != nil {
			logger.Fatal("opening applications", zap.Error(err))
		}

		application, err := store.Get(applicationID)
		if err != nil {
			logger.Fatal("getting application", zap.Error(err))
		}

		runtime, err := newAIRuntime(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("building ai matcher", zap.Error(err))
		}

		result, err := runtime.matcher.AnalyzeMatch(ctx, &application.Candidate, &application.Job)
		if err != nil {
			recordAnalysisFailure(logger, store, applicationID, err)
			logger.Fatal("analyzing match",
				zap.String("application_id", applicationID),
				zap.String("code", ai.Code(err)),
				zap.Int("http_status", ai.HTTPStatus(err)),
				zap.Error(err),
			)
		}

		if err := store.UpdateMatchScore(applicationID, result.Score, result.Justification); err != nil {
			logger.Fatal("updating match score", zap.Error(err))
		}
		if err := store.Flush(); err != nil {
			logger.Fatal("writing applications", zap.Error(err))
		}

		logger.Info("match analysed",
			zap.String("application_id", applicationID),
			zap.Int("score", result.Score),
			zap.String("justification", result.Justification),
		)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("applications", "", "applications file")
	analyzeCmd.Flags().String("application-id", "", "application to analyse")
	analyzeCmd.MarkFlagRequired("applications")
	analyzeCmd.MarkFlagRequired("application-id")
}

// recordAnalysisFailure stores the failure on the application and writes the file. Write errors are
// logged, not returned.
func recordAnalysisFailure(logger *zap.Logger, store *applications.Store, id string, cause error) {
	if err := store.RecordMatchError(id, cause); err != nil {
		logger.Error("recording match error", zap.String("application_id", id), zap.Error(err))
		return
	}
	if err := store.Flush(); err != nil {
		logger.Error("writing applications", zap.String("file", store.Path()), zap.Error(err))
	}
}

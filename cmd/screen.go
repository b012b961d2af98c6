package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/applications"
	"github.com/spigell/careerpath-ai/internal/screening"
)

const (
	PromptShortlist       = "Show shortlist"
	PromptDescribe        = "Describe filters"
	PromptShortlistToFile = "Dump shortlist to file"
	PromptExit            = "Exit"
)

var errExit = errors.New("exit requested")

var screenPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShortlist, PromptDescribe, PromptShortlistToFile, PromptExit},
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Score every pending application against its job and build a shortlist",
	Run: func(cmd *cobra.Command, _ []string) {
		screen(cmd)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("applications", "", "applications file")
	screenCmd.Flags().BoolP("force", "f", false, "analyse applications again even if they already have a score")
	screenCmd.Flags().Int("min-score", -1, "drop applications scored below this value (default from config)")
	screenCmd.Flags().BoolP("auto-approve", "y", false, "print the shortlist and exit without asking")
	screenCmd.MarkFlagRequired("applications")
}

func screen(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	flags := cmd.Flags()
	applicationsPath, _ := flags.GetString("applications")
	force, _ := flags.GetBool("force")
	minScore, _ := flags.GetInt("min-score")
	autoApprove, _ := flags.GetBool("auto-approve")

	store, err := applications.Open(applicationsPath)
	if err != nil {
		logger.Fatal("opening applications", zap.Error(err))
	}

	logger.Info("starting the screening", zap.String("file", store.Path()), zap.Int("applications", store.Len()))

	if store.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no applications found"))
		return
	}

	runtime, err := newAIRuntime(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai matcher", zap.Error(err))
	}

	screeningConfig := &screening.Config{}
	if config.Screening != nil {
		screeningConfig.Statuses = config.Screening.Statuses
		screeningConfig.MinimumScore = config.Screening.MinimumScore
		screeningConfig.Concurrency = config.Screening.Concurrency
	}
	if minScore >= 0 {
		screeningConfig.MinimumScore = minScore
	}

	steps := screening.Default()
	screening.DisableForced(steps, force)

	deps := screening.Deps{Store: store, Matcher: runtime.matcher, Logger: logger}

	kept, err := screening.Run(ctx, screeningConfig, deps, steps, store.Items())
	// Scores recorded before a failure are still worth keeping.
	if flushErr := store.Flush(); flushErr != nil {
		logger.Error("writing applications", zap.Error(flushErr))
	}
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	logger.Info("screening finished", zap.Int("kept", len(kept)))

	action := PromptShortlist
	for {
		if !autoApprove {
			_, action, err = screenPrompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleScreenAction(action, logger, kept, steps); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

// handleScreenAction acts on the applications kept by the pipeline, so the shortlist honours the
// minimum score.
func handleScreenAction(action string, logger *zap.Logger, kept []*applications.Application, steps []screening.Filter) error {
	switch action {
	case PromptShortlist:
		shortlist := applications.Shortlist(kept)
		pretty, _ := json.MarshalIndent(shortlistReport(shortlist), "", "  ")
		logger.Info(string(pretty), zap.Int("applications count", len(shortlist)))
		return nil
	case PromptDescribe:
		pretty, _ := json.MarshalIndent(screening.Describe(steps), "", "  ")
		logger.Info(string(pretty))
		return nil
	case PromptShortlistToFile:
		filename, err := applications.DumpToTmpFile(applications.Shortlist(kept))
		if err != nil {
			return fmt.Errorf("dump shortlist to file: %w", err)
		}
		logger.Info("dumping shortlist to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

type shortlistEntry struct {
	ID            string `json:"id"`
	Candidate     string `json:"candidate"`
	Job           string `json:"job"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

func shortlistReport(items []*applications.Application) []shortlistEntry {
	report := make([]shortlistEntry, 0, len(items))
	for _, item := range items {
		report = append(report, shortlistEntry{
			ID:            item.ID,
			Candidate:     strings.TrimSpace(item.Candidate.FirstName + " " + item.Candidate.LastName),
			Job:           item.Job.Title,
			Score:         *item.MatchScore,
			Justification: item.MatchJustification,
		})
	}
	return report
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/applications"
	"github.com/spigell/careerpath-ai/internal/cv"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter",
	Short: "Generate a cover letter for a candidate and a job",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		flags := cmd.Flags()
		candidatePath, _ := flags.GetString("candidate")
		jobPath, _ := flags.GetString("job")
		jobsPath, _ := flags.GetString("jobs")
		cvPath, _ := flags.GetString("cv")
		applicationsPath, _ := flags.GetString("applications")
		applicationID, _ := flags.GetString("application-id")

		var (
			store     *applications.Store
			candidate *ai.CandidateSnapshot
			job       *ai.JobSnapshot
			err       error
		)

		if applicationsPath != "" && applicationID != "" {
			store, err = applications.Open(applicationsPath)
			if err != nil {
				logger.Fatal("opening applications", zap.Error(err))
			}
			application, err := store.Get(applicationID)
			if err != nil {
				logger.Fatal("getting application", zap.Error(err))
			}
			candidate, job = &application.Candidate, &application.Job
			if cvPath != "" {
				text, err := cv.ExtractText(cvPath)
				if err != nil {
					logger.Fatal("reading cv", zap.Error(err))
				}
				candidate.CVText = text
			}
		} else {
			if candidate, err = loadCandidate(candidatePath, cvPath); err != nil {
				logger.Fatal("loading candidate", zap.Error(err))
			}
			if job, err = selectJob(jobPath, jobsPath); err != nil {
				logger.Fatal("loading job", zap.Error(err))
			}
		}

		runtime, err := newAIRuntime(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("building ai matcher", zap.Error(err))
		}

		logger.Info("generating cover letter",
			zap.String("provider", runtime.provider),
			zap.String("job", job.Title),
		)

		letter, err := runtime.matcher.GenerateCoverLetter(ctx, candidate, job)
		if err != nil {
			logger.Fatal("generating cover letter",
				zap.String("code", ai.Code(err)),
				zap.Int("http_status", ai.HTTPStatus(err)),
				zap.Error(err),
			)
		}

		fmt.Println(letter)

		if store == nil {
			return
		}

		if err := store.SaveAIContent(applicationID, "", letter); err != nil {
			logger.Fatal("saving cover letter", zap.Error(err))
		}
		if err := store.Flush(); err != nil {
			logger.Fatal("writing applications", zap.Error(err))
		}
		logger.Info("cover letter saved", zap.String("application_id", applicationID), zap.String("file", store.Path()))
	},
}

func init() {
	rootCmd.AddCommand(coverLetterCmd)

	coverLetterCmd.Flags().String("candidate", "", "candidate profile file (yaml or json)")
	coverLetterCmd.Flags().String("job", "", "job offer file (yaml or json)")
	coverLetterCmd.Flags().String("jobs", "", "file with a list of job offers under 'jobs' to choose from")
	coverLetterCmd.Flags().String("cv", "", "CV in PDF format; its text replaces the candidate cvText")
	coverLetterCmd.Flags().String("applications", "", "applications file; with --application-id the letter is stored on the application")
	coverLetterCmd.Flags().String("application-id", "", "application to read the candidate and job from")
}

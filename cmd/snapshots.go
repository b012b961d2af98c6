package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/viper"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/cv"
)

// loadFile decodes a YAML or JSON file into target using a dedicated viper instance.
func loadFile(path string, target any) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("decoding %q: %w", path, err)
	}
	return nil
}

func loadCandidate(path, cvPath string) (*ai.CandidateSnapshot, error) {
	var candidate ai.CandidateSnapshot
	if path != "" {
		if err := loadFile(path, &candidate); err != nil {
			return nil, err
		}
	}

	if cvPath != "" {
		text, err := cv.ExtractText(cvPath)
		if err != nil {
			return nil, err
		}
		candidate.CVText = text
	}

	return &candidate, nil
}

type jobList struct {
	Jobs []*ai.JobSnapshot `mapstructure:"jobs"`
}

// selectJob loads a single job file or lets the user pick one job from a list file.
func selectJob(jobPath, jobsPath string) (*ai.JobSnapshot, error) {
	if jobPath != "" {
		var job ai.JobSnapshot
		if err := loadFile(jobPath, &job); err != nil {
			return nil, err
		}
		return &job, nil
	}

	if jobsPath == "" {
		return nil, fmt.Errorf("either --job or --jobs is required")
	}

	var list jobList
	if err := loadFile(jobsPath, &list); err != nil {
		return nil, err
	}
	if len(list.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs found in %q", jobsPath)
	}

	items := make([]string, 0, len(list.Jobs))
	for i, job := range list.Jobs {
		label := fmt.Sprintf("%d %s", i+1, job.Title)
		if job.Company.Name != "" {
			label += " / " + job.Company.Name
		}
		if job.ContractType != "" {
			label += " / " + job.ContractType
		}
		items = append(items, label)
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
	}

	idx, _, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}

	return list.Jobs[idx], nil
}

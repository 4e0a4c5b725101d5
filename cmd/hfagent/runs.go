package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abonvalle/hf-agent-course/pkg/db"
	"github.com/abonvalle/hf-agent-course/pkg/presenter"
	"github.com/abonvalle/hf-agent-course/pkg/runs"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the local history of evaluation runs",
}

// openRunStore opens the run history store at its default location
func openRunStore(ctx context.Context) (*runs.Store, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return runs.NewStore(ctx, dbPath)
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved evaluation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		store, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		all, err := store.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			presenter.Info("No runs saved yet")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-10s  %s\n", "RUN ID", "CREATED", "SUBMITTED", "SCORE")
		for _, run := range all {
			score := "-"
			if run.Score != nil {
				score = fmt.Sprintf("%.1f%% (%d/%d)", *run.Score, run.CorrectCount, run.TotalAttempted)
			}
			fmt.Printf("%-36s  %-20s  %-10v  %s\n",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Submitted, score)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run with its per-task answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		run, answers, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		presenter.Section("Run " + run.ID)
		fmt.Printf("Created:   %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Username:  %s\n", run.Username)
		fmt.Printf("Submitted: %v\n", run.Submitted)
		if run.Score != nil {
			fmt.Printf("Score:     %.1f%% (%d/%d correct)\n", *run.Score, run.CorrectCount, run.TotalAttempted)
		}
		if run.Message != "" {
			fmt.Printf("Message:   %s\n", run.Message)
		}

		for _, answer := range answers {
			presenter.Separator()
			fmt.Printf("Task:     %s\n", answer.TaskID)
			fmt.Printf("Question: %s\n", answer.Question)
			if answer.FilePath != "" {
				fmt.Printf("File:     %s\n", answer.FilePath)
			}
			if answer.Error != "" {
				fmt.Printf("Error:    %s\n", answer.Error)
				continue
			}
			fmt.Printf("Answer:   %s\n", answer.Answer)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a run and its answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRun(ctx, args[0]); err != nil {
			return err
		}
		presenter.Success("Deleted run " + args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

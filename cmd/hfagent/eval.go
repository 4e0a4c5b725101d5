package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abonvalle/hf-agent-course/pkg/config"
	"github.com/abonvalle/hf-agent-course/pkg/llm"
	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/presenter"
	"github.com/abonvalle/hf-agent-course/pkg/runner"
	"github.com/abonvalle/hf-agent-course/pkg/runs"
	"github.com/abonvalle/hf-agent-course/pkg/scoring"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Fetch the evaluation questions, answer them and submit the answers",
	Long: `Fetch all questions from the scoring API, answer each of them with the
tool-using agent and submit the answers for scoring. The run and its
per-task answers are saved to the local run history unless --no-save
is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		appConfig, err := config.FromViper()
		if err != nil {
			return err
		}
		llmConfig, err := llm.GetConfigFromViper()
		if err != nil {
			return err
		}

		opts := runner.Options{
			Concurrency: viper.GetInt("concurrency"),
			Only:        viper.GetString("only"),
		}
		opts.NoSubmit, _ = cmd.Flags().GetBool("no-submit")
		opts.NoSave, _ = cmd.Flags().GetBool("no-save")

		var clientOpts []scoring.Option
		if appConfig.HFToken != "" {
			clientOpts = append(clientOpts, scoring.WithHFToken(appConfig.HFToken))
		}
		client := scoring.NewClient(appConfig.BaseURL, clientOpts...)

		var store *runs.Store
		if !opts.NoSave {
			store, err = openRunStore(ctx)
			if err != nil {
				logger.G(ctx).WithError(err).Warn("failed to open run history, continuing without persistence")
			} else {
				defer store.Close()
			}
		}

		report, err := runner.New(appConfig, llmConfig, client, store, opts).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println(runner.RenderResultsTable(report.Results))
		presenter.Section("Run " + report.RunID)
		if report.Submit != nil {
			presenter.Success(report.Status)
		} else {
			presenter.Warning(report.Status)
		}
		if report.Errors != nil {
			presenter.Warning(fmt.Sprintf("Some tasks failed:\n%s", report.Errors))
		}

		return nil
	},
}

func init() {
	evalCmd.Flags().String("base-url", config.DefaultBaseURL, "Base URL of the scoring API")
	evalCmd.Flags().String("username", "", "Hugging Face username used for the submission")
	evalCmd.Flags().Int("concurrency", 1, "Number of questions answered in parallel")
	evalCmd.Flags().String("only", "", "Glob pattern of task ids to answer (e.g. 'a1b2*')")
	evalCmd.Flags().Bool("no-submit", false, "Answer the questions but do not submit")
	evalCmd.Flags().Bool("no-save", false, "Do not save the run to the local history")

	viper.BindPFlag("base_url", evalCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("username", evalCmd.Flags().Lookup("username"))
	viper.BindPFlag("concurrency", evalCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("only", evalCmd.Flags().Lookup("only"))
}

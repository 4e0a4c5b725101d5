package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/abonvalle/hf-agent-course/pkg/llm"
	"github.com/abonvalle/hf-agent-course/pkg/presenter"
	"github.com/abonvalle/hf-agent-course/pkg/runner"
	"github.com/abonvalle/hf-agent-course/pkg/tools"
	llmtypes "github.com/abonvalle/hf-agent-course/pkg/types/llm"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question without fetching or submitting",
	Long: `Run the agent on a single question and print its final answer. Useful
for trying out prompts and tools outside an evaluation run. An optional
local file can be attached with --file, mirroring the task attachments
of the evaluation questions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := args[0]

		llmConfig, err := llm.GetConfigFromViper()
		if err != nil {
			return err
		}
		thread, err := llm.NewThread(llmConfig)
		if err != nil {
			return err
		}

		workDir, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to determine working directory")
		}
		mcpManager, err := tools.CreateMCPManagerFromViper(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to create MCP manager")
		}
		defer mcpManager.Close(ctx)

		state := tools.NewBasicState(ctx, tools.WithWorkDir(workDir), tools.WithMCPTools(mcpManager))

		if filePath, _ := cmd.Flags().GetString("file"); filePath != "" {
			absPath, err := filepath.Abs(filePath)
			if err != nil {
				return errors.Wrapf(err, "invalid file path %s", filePath)
			}
			if _, err := os.Stat(absPath); err != nil {
				return errors.Wrapf(err, "cannot attach file %s", filePath)
			}
			state.SetTaskFile(absPath)
			thread.AddUserMessage(fmt.Sprintf(
				"A file is available at local path: %s. You can inspect it by calling the 'file_inspect' tool with args {'path': '%s', ...}.",
				absPath, absPath,
			))
		}
		thread.SetState(state)

		handler := &llmtypes.ConsoleMessageHandler{}
		reply, err := thread.SendMessage(ctx, question, handler, llmtypes.MessageOpt{})
		if err != nil {
			return err
		}

		presenter.Section("Final answer")
		fmt.Println(runner.ExtractFinalAnswer(reply))

		usage := thread.GetUsage()
		presenter.Stats(presenter.ConvertUsageStats(&usage))

		return nil
	},
}

func init() {
	askCmd.Flags().String("file", "", "Local file to attach to the question")
}

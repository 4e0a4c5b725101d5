package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abonvalle/hf-agent-course/pkg/config"
	"github.com/abonvalle/hf-agent-course/pkg/presenter"
	"github.com/abonvalle/hf-agent-course/pkg/scoring"
	"github.com/abonvalle/hf-agent-course/pkg/spaceconfig"
)

const doctorProbeTimeout = 15 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify the local setup for an evaluation run",
	Long: `Check that the environment is ready: the env file and its recognized
keys, the scoring API, and the Space README front matter. Exits with a
non-zero status when a required check fails.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		appConfig, err := config.FromViper()
		if err != nil {
			return err
		}

		printHostInfo(ctx)

		failed := 0
		failed += checkEnvFile(viper.GetString("env_file"))
		failed += checkEnvKeys()
		failed += checkScoringAPI(ctx, appConfig)
		failed += checkSpaceConfig()

		presenter.Separator()
		if failed > 0 {
			return errors.Errorf("%d check(s) failed", failed)
		}
		presenter.Success("All checks passed. You can now run: hfagent eval")
		return nil
	},
}

func printHostInfo(ctx context.Context) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		presenter.Warning(fmt.Sprintf("could not read host info: %s", err))
		return
	}
	presenter.Info(fmt.Sprintf("Host: %s %s (%s %s)", info.Platform, info.PlatformVersion, info.OS, info.KernelArch))
	presenter.Separator()
}

// checkEnvFile reports whether the env file exists. A missing file is a
// warning only, the keys may come from the process environment.
func checkEnvFile(path string) int {
	if _, err := os.Stat(path); err != nil {
		presenter.Warning(fmt.Sprintf("%s not found, relying on the process environment", path))
		return 0
	}
	presenter.Success(fmt.Sprintf("%s found", path))
	return 0
}

func checkEnvKeys() int {
	missing := 0
	for _, key := range config.RecognizedEnvKeys {
		if os.Getenv(key) == "" {
			presenter.Warning(fmt.Sprintf("%s is not set", key))
			missing++
			continue
		}
		presenter.Success(fmt.Sprintf("%s is set", key))
	}
	// At least one LLM provider key is required to answer anything.
	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		presenter.Error(errors.New("no LLM provider key set"), "OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
		return 1
	}
	return 0
}

func checkScoringAPI(ctx context.Context, appConfig config.AppConfig) int {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	client := scoring.NewClient(appConfig.BaseURL)
	questions, err := client.FetchQuestions(ctx)
	if err != nil {
		presenter.Error(err, fmt.Sprintf("scoring API %s is not reachable", appConfig.BaseURL))
		return 1
	}
	presenter.Success(fmt.Sprintf("scoring API reachable, %d questions available", len(questions)))
	return 0
}

func checkSpaceConfig() int {
	spaceConfig, err := spaceconfig.Load("README.md")
	if err != nil {
		presenter.Warning(fmt.Sprintf("README.md front matter not readable: %s", err))
		return 0
	}
	if err := spaceConfig.Validate(); err != nil {
		presenter.Error(err, "README.md front matter is invalid")
		return 1
	}
	presenter.Success("README.md front matter is valid")
	return 0
}

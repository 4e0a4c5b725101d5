package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abonvalle/hf-agent-course/pkg/config"
	"github.com/abonvalle/hf-agent-course/pkg/logger"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("HFAGENT")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.hfagent")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "hfagent",
	Short: "hfagent answers and submits agents-course evaluation questions",
	Long: `hfagent is a tool-using LLM agent for the Hugging Face agents course
final assignment. It fetches the evaluation questions, answers them with
web search, Wikipedia, file inspection and calculator tools, and submits
the answers to the scoring API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		configureLogging()
		return config.LoadDotEnv(ctx, viper.GetString("env_file"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func configureLogging() {
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if viper.GetString("log_format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Add global flags
	rootCmd.PersistentFlags().String("provider", "", "LLM provider to use (anthropic or openai)")
	rootCmd.PersistentFlags().String("model", "", "LLM model to use (overrides config)")
	rootCmd.PersistentFlags().Int("max-tokens", 0, "Maximum tokens for response (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path of the env file to load")

	// Bind flags to viper
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("max_tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(evalCmd))
	rootCmd.AddCommand(withTracing(askCmd))
	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(withTracing(doctorCmd))
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)

	shutdown, err := initTracing(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to initialize tracing, continuing without it")
		shutdown = func(context.Context) error { return nil }
	}

	execErr := rootCmd.ExecuteContext(ctx)

	if err := shutdown(context.Background()); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to shut down tracing")
	}

	if execErr != nil {
		fmt.Println(execErr)
		os.Exit(1)
	}
}

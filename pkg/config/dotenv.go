package config

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/abonvalle/hf-agent-course/pkg/logger"
)

// RecognizedEnvKeys are the keys the .env file is expected to carry.
// Missing keys are reported by doctor but never block startup.
var RecognizedEnvKeys = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"TAVILY_API_KEY",
	"SPACE_ID",
	"SPACE_HOST",
	"HF_TOKEN",
}

// LoadDotEnv reads a .env file and exports its keys into the process
// environment. Variables already set in the environment win over the file.
// A missing file logs a warning and is not an error; a malformed file is.
func LoadDotEnv(ctx context.Context, path string) error {
	log := logger.G(ctx)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Warn(".env file not found, continuing with process environment only")
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to parse env file %s", path)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return errors.Wrapf(err, "failed to set %s", name)
		}
	}

	log.WithField("path", path).Debug("loaded environment file")
	return nil
}

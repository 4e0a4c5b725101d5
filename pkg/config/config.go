// Package config loads application configuration from the environment,
// an optional .env file and viper-bound flags.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the scoring API used when no base URL is configured.
const DefaultBaseURL = "https://agents-course-unit4-scoring.hf.space"

// AppConfig holds the application-level settings outside the LLM client.
type AppConfig struct {
	Username  string      `mapstructure:"username"`
	SpaceID   string      `mapstructure:"space_id"`
	SpaceHost string      `mapstructure:"space_host"`
	BaseURL   string      `mapstructure:"base_url"`
	HFToken   string      `mapstructure:"hf_token"`
	Serve     ServeConfig `mapstructure:"serve"`
}

// ServeConfig holds the web server listen address.
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// FromViper unmarshals the application configuration and applies defaults
// and bare environment fallbacks for the hosting-platform variables.
func FromViper() (AppConfig, error) {
	var config AppConfig

	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "failed to unmarshal configuration")
	}

	// The hosting platform injects these without any prefix
	applyEnvFallback(&config.Username, "HF_USERNAME")
	applyEnvFallback(&config.SpaceID, "SPACE_ID")
	applyEnvFallback(&config.SpaceHost, "SPACE_HOST")
	applyEnvFallback(&config.HFToken, "HF_TOKEN")

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Serve.Host == "" {
		config.Serve.Host = "0.0.0.0"
	}
	if config.Serve.Port == 0 {
		config.Serve.Port = 7860
	}

	return config, nil
}

func applyEnvFallback(target *string, envVar string) {
	if *target == "" {
		*target = os.Getenv(envVar)
	}
}

// AgentCodeURL returns the public URL of the space source tree, used as
// the agent_code field on submissions. Empty when no space is configured.
func (c AppConfig) AgentCodeURL() string {
	if c.SpaceID == "" {
		return ""
	}
	return fmt.Sprintf("https://huggingface.co/spaces/%s/tree/main", c.SpaceID)
}

// ServeAddr returns the host:port the web server should listen on.
func (c AppConfig) ServeAddr() string {
	return fmt.Sprintf("%s:%d", c.Serve.Host, c.Serve.Port)
}

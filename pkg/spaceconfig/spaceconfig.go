// Package spaceconfig parses and validates the hosting platform front matter
// in README.md, which controls how the agent space is deployed.
package spaceconfig

import (
	"bytes"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// expectedAppPort is the port the hosting platform probes for the web UI.
const expectedAppPort = 7860

// SpaceConfig is the YAML front matter of the space README
type SpaceConfig struct {
	Title                    string `yaml:"title"`
	SDK                      string `yaml:"sdk"`
	SDKVersion               string `yaml:"sdk_version"`
	AppPort                  int    `yaml:"app_port"`
	HFOAuth                  bool   `yaml:"hf_oauth"`
	HFOAuthExpirationMinutes int    `yaml:"hf_oauth_expiration_minutes"`
}

// Load reads and parses the front matter from the README at path
func Load(path string) (*SpaceConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read README")
	}
	return Parse(content)
}

// Parse extracts the YAML front matter from markdown content
func Parse(content []byte) (*SpaceConfig, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing front matter")
	}

	// Round-trip through YAML for a typed decode of the loose metadata map.
	raw, err := yaml.Marshal(metaData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to re-encode front matter")
	}

	var config SpaceConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode front matter")
	}
	return &config, nil
}

// Validate checks the front matter against what the deployment requires
func (c *SpaceConfig) Validate() error {
	var result *multierror.Error

	if c.SDK != "docker" {
		result = multierror.Append(result, errors.Errorf("sdk must be \"docker\", got %q", c.SDK))
	}
	if c.AppPort != 0 && c.AppPort != expectedAppPort {
		result = multierror.Append(result, errors.Errorf("app_port must be %d, got %d", expectedAppPort, c.AppPort))
	}

	return result.ErrorOrNil()
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/scopa/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// Defaults pinned to the Scope3 campaign agent.
const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultScope3URL = "https://api.agentic.scope3.com/mcp"

	defaultMaxTokens    = 4096
	defaultWordWrap     = 80
	defaultMCPTimeout   = 15 * time.Second
	defaultMaxToolSteps = 16
)

// Credential describes where a secret comes from.
//
// Exactly like API keys in the settings file: a literal value, a named
// environment variable, or a command that prints the key.
type Credential struct {
	APIKey    string `yaml:"api-key"`
	APIKeyEnv string `yaml:"api-key-env"`
	APIKeyCmd string `yaml:"api-key-cmd"`
}

// MCPServerConfig holds configuration for one MCP server.
type MCPServerConfig struct {
	Type         string   `yaml:"type"`
	Command      string   `yaml:"command"`
	Env          []string `yaml:"env"`
	Args         []string `yaml:"args"`
	URL          string   `yaml:"url"`
	AuthToken    string   `yaml:"auth-token"`
	AuthTokenEnv string   `yaml:"auth-token-env"`
}

// BearerToken resolves the server's bearer token, if any.
func (s MCPServerConfig) BearerToken() string {
	if s.AuthToken != "" {
		return s.AuthToken
	}
	if s.AuthTokenEnv != "" {
		return os.Getenv(s.AuthTokenEnv)
	}
	return ""
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	Model        string        `yaml:"model" env:"MODEL"`
	MaxTokens    int64         `yaml:"max-tokens" env:"MAX_TOKENS"`
	Temperature  float64       `yaml:"temp" env:"TEMP"`
	BaseURL      string        `yaml:"anthropic-base-url" env:"ANTHROPIC_BASE_URL"`
	HTTPProxy    string        `yaml:"http-proxy" env:"HTTP_PROXY"`
	WordWrap     int           `yaml:"word-wrap" env:"WORD_WRAP"`
	Quiet        bool          `yaml:"quiet" env:"QUIET"`
	Raw          bool          `yaml:"raw" env:"RAW"`
	CachePath    string        `yaml:"cache-path" env:"CACHE_PATH"`
	NoSave       bool          `yaml:"no-save" env:"NO_SAVE"`
	MaxToolSteps int           `yaml:"max-tool-steps" env:"MAX_TOOL_STEPS"`
	Scope3       Credential    `yaml:"scope3"`
	Anthropic    Credential    `yaml:"anthropic"`
	MCPTimeout   time.Duration `yaml:"mcp-timeout" env:"MCP_TIMEOUT"`

	MCPServers map[string]MCPServerConfig `yaml:"mcp-servers"`
	MCPDisable []string                   `yaml:"mcp-disable" env:"MCP_DISABLE"`
}

// Runtime holds CLI/runtime-only options that should not be loaded from the
// settings file.
type Runtime struct {
	SettingsPath string
	ShowHelp     bool
	Version      bool
	Title        string
	Continue     string
	ContinueLast bool
}

// Config is the application configuration (settings + runtime-only options).
//
// It is constructed once at process start and passed by reference; nothing
// below the cmd layer reads the ambient environment.
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// Ensure loads settings from disk and environment and applies defaults.
//
// A local .env file, when present, is merged into the process environment
// first, so both credentials and SCOPA_* overrides can live there. The
// default settings file is created if it does not exist.
func Ensure() (Config, error) {
	var c Config

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}

	sp := filepath.Join(home, ".config", "scopa", "scopa.yml")
	c.SettingsPath = sp

	if dirErr := os.MkdirAll(filepath.Dir(sp), 0o700); dirErr != nil {
		return c, errs.Error{Err: dirErr, Reason: "Could not create config directory."}
	}
	if fileErr := WriteConfigFile(sp); fileErr != nil {
		return c, fileErr
	}

	content, err := os.ReadFile(sp)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := env.ParseWithOptions(&c, env.Options{Prefix: "SCOPA_"}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(home, ".config", "scopa", "history")
	}
	if err := os.MkdirAll(filepath.Join(c.CachePath, "sessions"), 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create cache directory."}
	}

	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	def := Default()
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.WordWrap == 0 {
		c.WordWrap = def.WordWrap
	}
	if c.MCPTimeout == 0 {
		c.MCPTimeout = def.MCPTimeout
	}
	if c.MaxToolSteps == 0 {
		c.MaxToolSteps = def.MaxToolSteps
	}
	if len(c.MCPServers) == 0 {
		c.MCPServers = def.MCPServers
	}
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat settings path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: fmt.Sprintf("Could not render %s.", path)}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			Model:        DefaultModel,
			MaxTokens:    defaultMaxTokens,
			Temperature:  0,
			WordWrap:     defaultWordWrap,
			MCPTimeout:   defaultMCPTimeout,
			MaxToolSteps: defaultMaxToolSteps,
			Scope3:       Credential{APIKeyEnv: Scope3KeyEnv},
			Anthropic:    Credential{APIKeyEnv: AnthropicKeyEnv},
			MCPServers: map[string]MCPServerConfig{
				"scope3": {
					Type:         "http",
					URL:          DefaultScope3URL,
					AuthTokenEnv: Scope3KeyEnv,
				},
			},
		},
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/dotcommander/scopa/internal/errs"
)

// Default environment variable names for the two required credentials.
const (
	Scope3KeyEnv    = "SCOPE3_API_KEY"
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// Keys holds the two resolved secrets the session needs.
type Keys struct {
	Scope3    string
	Anthropic string
}

// ResolveKeys resolves both required credentials.
//
// It fails on the first missing credential so the diagnostic always names a
// single, specific variable. No network activity happens here.
func (c *Config) ResolveKeys(ctx context.Context) (Keys, error) {
	scope3, err := resolveKey(ctx, c.Scope3, Scope3KeyEnv, "Scope3", "https://scope3.com")
	if err != nil {
		return Keys{}, err
	}
	anthropic, err := resolveKey(ctx, c.Anthropic, AnthropicKeyEnv, "Anthropic", "https://console.anthropic.com/settings/keys")
	if err != nil {
		return Keys{}, err
	}
	return Keys{Scope3: scope3, Anthropic: anthropic}, nil
}

func resolveKey(ctx context.Context, cred Credential, defaultEnv, vendor, docsURL string) (string, error) {
	key := cred.APIKey
	if key == "" && cred.APIKeyEnv != "" && cred.APIKeyCmd == "" {
		key = os.Getenv(cred.APIKeyEnv)
	}
	if key == "" && cred.APIKeyCmd != "" {
		args, err := shellwords.Parse(cred.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
		}
		// #nosec G204 -- api-key-cmd is explicitly configured by the local user.
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Cannot exec api-key-cmd"}
		}
		key = strings.TrimSpace(string(out))
	}
	if key == "" {
		key = os.Getenv(defaultEnv)
	}
	if key != "" {
		return key, nil
	}
	return "", MissingKeyError{Env: defaultEnv, Vendor: vendor, DocsURL: docsURL}
}

// SeedScope3Auth hands the resolved Scope3 credential to the scope3 MCP
// server when it has no bearer token of its own. Keys configured through a
// settings literal or api-key-cmd reach the transport the same way an
// environment variable does.
func (c *Config) SeedScope3Auth(key string) {
	server, ok := c.MCPServers["scope3"]
	if !ok || server.BearerToken() != "" {
		return
	}
	server.AuthToken = key
	c.MCPServers["scope3"] = server
}

// MissingKeyError reports an absent credential before any connection is made.
type MissingKeyError struct {
	Env     string
	Vendor  string
	DocsURL string
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("%s not found in your environment or .env file", e.Env)
}

// Remediation is the follow-up line printed under the diagnostic.
func (e MissingKeyError) Remediation() string {
	return fmt.Sprintf("Please add your %s API key to the .env file (or grab one at %s).", e.Vendor, e.DocsURL)
}

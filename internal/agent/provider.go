package agent

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
)

// providerConfig is what newProvider needs to build the Anthropic client.
type providerConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func newProvider(cfg providerConfig) (fantasy.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errs.Error{Reason: "Missing Anthropic provider configuration."}
	}
	opts := []anthropic.Option{anthropic.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/v1")))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	provider, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("new anthropic provider: %w", err)
	}
	return provider, nil
}

// providerConfigFor resolves the provider settings from config and keys.
func providerConfigFor(cfg *config.Config, keys config.Keys) (providerConfig, error) {
	pc := providerConfig{APIKey: keys.Anthropic, BaseURL: cfg.BaseURL}
	if err := applyProxyConfig(cfg.HTTPProxy, &pc); err != nil {
		return providerConfig{}, err
	}
	return pc, nil
}

// applyProxyConfig configures the provider HTTP client to use an HTTP proxy.
func applyProxyConfig(httpProxy string, pc *providerConfig) error {
	if httpProxy == "" {
		return nil
	}
	proxyURL, err := url.Parse(httpProxy)
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error parsing your proxy URL."}
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errs.Error{Err: fmt.Errorf("default transport is not *http.Transport"), Reason: "Could not configure proxy."}
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(proxyURL)
	tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.IdleConnTimeout = 90 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second
	pc.HTTPClient = &http.Client{Transport: tr}
	return nil
}

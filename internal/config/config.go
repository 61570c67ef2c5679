// Package config loads the suite configuration from the environment and
// decides which backends the current run can exercise.
//
// The VITE_* variable names are the observable contract of the externally
// built test app: the same variables that configure the app in the browser
// gate which specs run here. AGENT_E2E_* variables belong to this suite.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Backend identifies one of the supported voice-agent transports.
type Backend string

const (
	// BackendDeepgram connects the component directly to Deepgram.
	BackendDeepgram Backend = "deepgram"
	// BackendDeepgramProxy relays through a local Deepgram proxy process.
	BackendDeepgramProxy Backend = "deepgram-proxy"
	// BackendOpenAI relays through the OpenAI Realtime proxy.
	BackendOpenAI Backend = "openai"
)

// Config is the resolved suite configuration.
type Config struct {
	AppURL   string `mapstructure:"app_url"`
	Headless bool   `mapstructure:"headless"`

	OpenAIProxyEndpoint   string `mapstructure:"openai_proxy_endpoint"`
	DeepgramProxyEndpoint string `mapstructure:"deepgram_proxy_endpoint"`
	ProxyEndpoint         string `mapstructure:"proxy_endpoint"`
	UseProxyMode          bool   `mapstructure:"use_proxy_mode"`

	DeepgramAPIKey    string `mapstructure:"deepgram_api_key"`
	DeepgramProjectID string `mapstructure:"deepgram_project_id"`

	CI    bool `mapstructure:"ci"`
	HTTPS bool `mapstructure:"https"`
}

// envBindings maps config keys to the environment variables that feed them.
var envBindings = map[string]string{
	"app_url":                 "AGENT_E2E_APP_URL",
	"headless":                "AGENT_E2E_HEADLESS",
	"openai_proxy_endpoint":   "VITE_OPENAI_PROXY_ENDPOINT",
	"deepgram_proxy_endpoint": "VITE_DEEPGRAM_PROXY_ENDPOINT",
	"proxy_endpoint":          "VITE_PROXY_ENDPOINT",
	"use_proxy_mode":          "USE_PROXY_MODE",
	"deepgram_api_key":        "VITE_DEEPGRAM_API_KEY",
	"deepgram_project_id":     "VITE_DEEPGRAM_PROJECT_ID",
	"ci":                      "CI",
	"https":                   "HTTPS",
}

// Load resolves the configuration: explicit YAML file (AGENT_E2E_CONFIG) if
// set, then environment, then defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("app_url", "http://localhost:5173")
	v.SetDefault("headless", true)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path := os.Getenv("AGENT_E2E_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AppURL == "" {
		return fmt.Errorf("app URL must not be empty")
	}
	if !strings.HasPrefix(c.AppURL, "http://") && !strings.HasPrefix(c.AppURL, "https://") {
		return fmt.Errorf("app URL %q must be http(s)", c.AppURL)
	}
	for name, ep := range map[string]string{
		"VITE_OPENAI_PROXY_ENDPOINT":   c.OpenAIProxyEndpoint,
		"VITE_DEEPGRAM_PROXY_ENDPOINT": c.DeepgramProxyEndpoint,
		"VITE_PROXY_ENDPOINT":          c.ProxyEndpoint,
	} {
		if ep != "" && !strings.HasPrefix(ep, "ws://") && !strings.HasPrefix(ep, "wss://") {
			return fmt.Errorf("%s %q must be a ws(s) URL", name, ep)
		}
	}
	return nil
}

// DeepgramConfigured reports whether direct-Deepgram specs can run.
func (c Config) DeepgramConfigured() bool {
	return c.DeepgramAPIKey != ""
}

// DeepgramProxyConfigured reports whether Deepgram-proxy specs can run.
func (c Config) DeepgramProxyConfigured() bool {
	if c.DeepgramProxyEndpoint != "" {
		return true
	}
	return c.UseProxyMode && c.ProxyEndpoint != ""
}

// OpenAIConfigured reports whether OpenAI Realtime proxy specs can run.
func (c Config) OpenAIConfigured() bool {
	return c.OpenAIProxyEndpoint != ""
}

// Endpoint returns the WebSocket endpoint for a backend, or an error when
// the backend is not configured for this run.
func (c Config) Endpoint(b Backend) (string, error) {
	switch b {
	case BackendOpenAI:
		if c.OpenAIProxyEndpoint == "" {
			return "", fmt.Errorf("VITE_OPENAI_PROXY_ENDPOINT is not set")
		}
		return c.OpenAIProxyEndpoint, nil
	case BackendDeepgramProxy:
		if c.DeepgramProxyEndpoint != "" {
			return c.DeepgramProxyEndpoint, nil
		}
		if c.UseProxyMode && c.ProxyEndpoint != "" {
			return c.ProxyEndpoint, nil
		}
		return "", fmt.Errorf("no Deepgram proxy endpoint configured")
	case BackendDeepgram:
		if c.DeepgramAPIKey == "" {
			return "", fmt.Errorf("VITE_DEEPGRAM_API_KEY is not set")
		}
		return "wss://agent.deepgram.com/v1/agent/converse", nil
	default:
		return "", fmt.Errorf("unknown backend %q", b)
	}
}

// ConfiguredBackends lists every backend the current environment can reach.
func (c Config) ConfiguredBackends() []Backend {
	var out []Backend
	if c.DeepgramConfigured() {
		out = append(out, BackendDeepgram)
	}
	if c.DeepgramProxyConfigured() {
		out = append(out, BackendDeepgramProxy)
	}
	if c.OpenAIConfigured() {
		out = append(out, BackendOpenAI)
	}
	return out
}

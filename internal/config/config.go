/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"goscreenplay/internal/agent"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/telemetry"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type ClassifierConfig struct {
	ContextWindow  int `yaml:"context_window"`
	MemoryCapacity int `yaml:"memory_capacity"`
}

type ReviewConfig struct {
	Radius          int     `yaml:"radius"`
	EscalationRatio float64 `yaml:"escalation_ratio"`
}

type AgentConfig struct {
	Endpoint            string  `yaml:"endpoint"`
	DeadlineMs          int     `yaml:"deadline_ms"`
	MinAttemptTimeoutMs int     `yaml:"min_attempt_timeout_ms"`
	MaxAttemptTimeoutMs int     `yaml:"max_attempt_timeout_ms"`
	MaxAttempts         int     `yaml:"max_attempts"`
	BackoffMs           int     `yaml:"backoff_ms"`
	MaxBackoffMs        int     `yaml:"max_backoff_ms"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
	ConfidenceFloor     int     `yaml:"confidence_floor"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type StoreConfig struct {
	Driver     string `yaml:"driver"` // "memory" | "sqlite" | "postgres"
	DSN        string `yaml:"dsn"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	AuthSecret string `yaml:"auth_secret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Classifier    ClassifierConfig `yaml:"classifier"`
	Review        ReviewConfig     `yaml:"review"`
	Agent         AgentConfig      `yaml:"agent"`
	Store         StoreConfig      `yaml:"store"`
	Server        ServerConfig     `yaml:"server"`
	Logging       LoggingConfig    `yaml:"logging"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Classifier:    ClassifierConfig{ContextWindow: 6, MemoryCapacity: 12},
		Review:        ReviewConfig{Radius: 5, EscalationRatio: agent.DefaultRatio},
		Agent: AgentConfig{
			DeadlineMs:          int(agent.DefaultDeadline / time.Millisecond),
			MinAttemptTimeoutMs: int(agent.DefaultMinAttemptTimeout / time.Millisecond),
			MaxAttemptTimeoutMs: int(agent.DefaultMaxAttemptTimeout / time.Millisecond),
			MaxAttempts:         agent.DefaultMaxAttempts,
			BackoffMs:           int(agent.DefaultBackoff / time.Millisecond),
			MaxBackoffMs:        int(agent.DefaultMaxBackoff / time.Millisecond),
			ConfidenceFloor:     agent.DefaultConfidenceFloor,
		},
		Store:   StoreConfig{Driver: DriverMemory, TTLMinutes: 60},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvAgentEndpoint   = "GSP_AGENT_ENDPOINT"
	EnvAgentDeadlineMs = "GSP_AGENT_DEADLINE_MS"
	EnvAgentToken      = "GSP_AGENT_TOKEN"
	EnvStoreDriver     = "GSP_STORE_DRIVER"
	EnvStoreDSN        = "GSP_STORE_DSN"
	EnvServerAddr      = "GSP_SERVER_ADDR"
	EnvAuthSecret      = "GSP_AUTH_SECRET"
	EnvTelemetryOptIn  = "GSP_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "GSP_TELEMETRY_URL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSP_LOG_LEVEL"
	EnvLogFormat = "GSP_LOG_FORMAT"
	EnvLogSource = "GSP_LOG_SOURCE"
	EnvLogFile   = "GSP_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "goscreenplay"
	keyringToken   = "agent_token"
)

// tokenStore abstracts the keyring, so we can stub it in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "goscreenplay")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "goscreenplay")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscreenplay")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "goscreenplay")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadFrom reads the config file at path (if present), applies defaults and
// merges environment overrides. The agent token is returned separately. A
// missing file is not an error; a malformed one is.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, agentToken(), nil
}

// agentToken prefers the environment over the keyring.
func agentToken() string {
	if v := strings.TrimSpace(os.Getenv(EnvAgentToken)); v != "" {
		return v
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return tok
}

// SaveTo writes the config YAML to path and persists the token into the OS
// keyring (if non-empty).
func SaveTo(path string, cfg AppConfig, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store agent token: %w", err)
		}
	}
	return nil
}

// ClearToken removes the agent token from the OS keyring.
func ClearToken() error {
	if err := tokenStore.Delete(keyringService, keyringToken); err != nil {
		return fmt.Errorf("clear agent token: %w", err)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setInt(&dst.Classifier.ContextWindow, src.Classifier.ContextWindow)
	setInt(&dst.Classifier.MemoryCapacity, src.Classifier.MemoryCapacity)
	setInt(&dst.Review.Radius, src.Review.Radius)
	if src.Review.EscalationRatio > 0 {
		dst.Review.EscalationRatio = src.Review.EscalationRatio
	}
	// agent
	if v := strings.TrimSpace(src.Agent.Endpoint); v != "" {
		dst.Agent.Endpoint = v
	}
	setInt(&dst.Agent.DeadlineMs, src.Agent.DeadlineMs)
	setInt(&dst.Agent.MinAttemptTimeoutMs, src.Agent.MinAttemptTimeoutMs)
	setInt(&dst.Agent.MaxAttemptTimeoutMs, src.Agent.MaxAttemptTimeoutMs)
	setInt(&dst.Agent.MaxAttempts, src.Agent.MaxAttempts)
	setInt(&dst.Agent.BackoffMs, src.Agent.BackoffMs)
	setInt(&dst.Agent.MaxBackoffMs, src.Agent.MaxBackoffMs)
	setInt(&dst.Agent.ConfidenceFloor, src.Agent.ConfidenceFloor)
	if src.Agent.RequestsPerSecond > 0 {
		dst.Agent.RequestsPerSecond = src.Agent.RequestsPerSecond
	}
	// store
	if v := strings.ToLower(strings.TrimSpace(src.Store.Driver)); v != "" {
		dst.Store.Driver = v
	}
	if v := strings.TrimSpace(src.Store.DSN); v != "" {
		dst.Store.DSN = v
	}
	setInt(&dst.Store.TTLMinutes, src.Store.TTLMinutes)
	// server
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if src.Server.AuthSecret != "" {
		dst.Server.AuthSecret = src.Server.AuthSecret
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if v := strings.TrimSpace(src.Telemetry.EventsURL); v != "" {
		dst.Telemetry.EventsURL = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAgentEndpoint)); v != "" {
		cfg.Agent.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAgentDeadlineMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.DeadlineMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvAuthSecret); v != "" {
		cfg.Server.AuthSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"agent.endpoint":           EnvAgentEndpoint,
	"agent.deadline_ms":     EnvAgentDeadlineMs,
	"store.driver":               EnvStoreDriver,
	"store.dsn":                     EnvStoreDSN,
	"server.addr":                 EnvServerAddr,
	"server.auth_secret":   EnvAuthSecret,
	"telemetry.opt_in":       EnvTelemetryOptIn,
	"telemetry.events_url": EnvTelemetryURL,
	"logging.level":             EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":               EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Validate reports settings no component can run with.
func (c AppConfig) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if r := c.Review.EscalationRatio; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("review.escalation_ratio must be in (0,1], got %v", r))
	}
	if f := c.Agent.ConfidenceFloor; f < 0 || f > 100 {
		errs = append(errs, fmt.Errorf("agent.confidence_floor must be in [0,100], got %d", f))
	}
	return errors.Join(errs...)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Escalation builds the escalator settings; the session id is left for the escalator to assign.
func (c AppConfig) Escalation(token string) agent.Config {
	a := c.Agent
	return agent.Config{
		Endpoint:          a.Endpoint,
		Token:             token,
		Deadline:          ms(a.DeadlineMs),
		MinAttemptTimeout: ms(a.MinAttemptTimeoutMs),
		MaxAttemptTimeout: ms(a.MaxAttemptTimeoutMs),
		MaxAttempts:       a.MaxAttempts,
		Backoff:           ms(a.BackoffMs),
		MaxBackoff:        ms(a.MaxBackoffMs),
		RequestsPerSecond: a.RequestsPerSecond,
		Ratio:             c.Review.EscalationRatio,
		ConfidenceFloor:   a.ConfidenceFloor,
	}
}

// LogOptions maps the logging section onto the logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

// TelemetryOptions overlays the telemetry section on the environment defaults.
func (c AppConfig) TelemetryOptions() telemetry.Config {
	t := telemetry.FromEnv()
	t.OptIn = c.Telemetry.OptIn
	if c.Telemetry.EventsURL != "" {
		t.EventsURL = c.Telemetry.EventsURL
	}
	return t
}

// StoreTTL is the in-memory store's expiry.
func (s StoreConfig) StoreTTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return time.Duration(Defaults().Store.TTLMinutes) * time.Minute
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

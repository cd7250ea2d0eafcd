// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v2"
)

const (
	DefaultSMTPHost      = "smtp.gmail.com"
	DefaultSMTPPort      = 587
	DefaultListenAddress = "127.0.0.1:8501"
	DefaultPasswordEnv   = "BULKMAIL_SMTP_PASSWORD"
	DefaultOutputFormat  = "table"

	envPrefix = "BULKMAIL_"
)

type Config struct {
	SMTP     SMTP     `yaml:"smtp"`
	Web      Web      `yaml:"web,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

// SMTP describes the relay. The secret itself is never part of the file; only
// the places it may be looked up.
type SMTP struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Sender         string `yaml:"sender,omitempty"`
	PasswordEnv    string `yaml:"password-env,omitempty"`
	PasswordFile   string `yaml:"password-file,omitempty"`
	KeyringService string `yaml:"keyring-service,omitempty"`
}

type Web struct {
	ListenAddress  string   `yaml:"listen-address,omitempty"`
	AllowedOrigins []string `yaml:"allowed-origins,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	Debug        bool   `yaml:"debug,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		SMTP: SMTP{
			Host:        DefaultSMTPHost,
			Port:        DefaultSMTPPort,
			PasswordEnv: DefaultPasswordEnv,
		},
		Web: Web{
			ListenAddress: DefaultListenAddress,
		},
		Settings: Settings{
			OutputFormat: DefaultOutputFormat,
		},
	}
}

// Load reads the config file at path, fills unset values with defaults and
// applies the BULKMAIL_* environment overlay. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			var fileCfg Config
			if err := yaml.Unmarshal(content, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			cfg.merge(fileCfg)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) merge(o Config) {
	if o.SMTP.Host != "" {
		c.SMTP.Host = o.SMTP.Host
	}
	if o.SMTP.Port != 0 {
		c.SMTP.Port = o.SMTP.Port
	}
	if o.SMTP.Sender != "" {
		c.SMTP.Sender = o.SMTP.Sender
	}
	if o.SMTP.PasswordEnv != "" {
		c.SMTP.PasswordEnv = o.SMTP.PasswordEnv
	}
	if o.SMTP.PasswordFile != "" {
		c.SMTP.PasswordFile = o.SMTP.PasswordFile
	}
	if o.SMTP.KeyringService != "" {
		c.SMTP.KeyringService = o.SMTP.KeyringService
	}
	if o.Web.ListenAddress != "" {
		c.Web.ListenAddress = o.Web.ListenAddress
	}
	if len(o.Web.AllowedOrigins) > 0 {
		c.Web.AllowedOrigins = o.Web.AllowedOrigins
	}
	if o.Settings.OutputFormat != "" {
		c.Settings.OutputFormat = o.Settings.OutputFormat
	}
	c.Settings.Debug = c.Settings.Debug || o.Settings.Debug
}

// ApplyEnv overrides values from BULKMAIL_* variables, e.g. BULKMAIL_SMTP_HOST.
func (c *Config) ApplyEnv() error {
	k := koanf.New(".")
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if v := k.String("smtp_host"); v != "" {
		c.SMTP.Host = v
	}
	if v := k.String("smtp_port"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSMTP_PORT %q: %w", envPrefix, v, err)
		}
		c.SMTP.Port = port
	}
	if v := k.String("smtp_sender"); v != "" {
		c.SMTP.Sender = v
	}
	if v := k.String("smtp_password_file"); v != "" {
		c.SMTP.PasswordFile = v
	}
	if v := k.String("smtp_keyring_service"); v != "" {
		c.SMTP.KeyringService = v
	}
	if v := k.String("web_listen_address"); v != "" {
		c.Web.ListenAddress = v
	}
	if v := k.String("web_allowed_origins"); v != "" {
		c.Web.AllowedOrigins = splitAndTrim(v)
	}
	if v := k.String("output"); v != "" {
		c.Settings.OutputFormat = v
	}
	if v := k.String("debug"); v != "" {
		c.Settings.Debug = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// Save writes cfg to path. Secrets are not part of Config and are never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SMTP.Host) == "" {
		return errors.New("smtp host is required")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp port %d out of range", c.SMTP.Port)
	}
	switch c.Settings.OutputFormat {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format: %s", c.Settings.OutputFormat)
	}
	return nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type FalconConfig struct {
	BaseURL           string `yaml:"base_url"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	UseSecretsManager bool   `yaml:"use_secrets_manager"`
	SecretsARN        string `yaml:"secrets_arn"`
}

type SettingsConfig struct {
	DryRun             bool `yaml:"dry_run_mode"`
	EnableCleanup      bool `yaml:"enable_cleanup"`
	CleanupOfflineDays int  `yaml:"cleanup_offline_days"`
	DiscoveryLimit     int  `yaml:"discovery_limit"`
	Registrars         int  `yaml:"registrars"`
}

type NotifyConfig struct {
	SNSTopicARN           string `yaml:"sns_topic_arn"`
	SlackWebhookParameter string `yaml:"slack_webhook_parameter"`
}

// Config is built once at process start and passed by value into every
// component; nothing reads the environment after this point.
type Config struct {
	Falcon   FalconConfig   `yaml:"crowdstrike"`
	Settings SettingsConfig `yaml:"settings"`
	Notify   NotifyConfig   `yaml:"notifications"`
}

func defaultConfig() Config {
	return Config{
		Falcon: FalconConfig{
			BaseURL: "https://api.crowdstrike.com",
		},
		Settings: SettingsConfig{
			CleanupOfflineDays: 7,
			DiscoveryLimit:     1000,
			Registrars:         3,
		},
	}
}

// loadConfig layers an optional YAML file over the defaults and environment
// variables over the file. A missing path is fine; an unreadable file is not.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		slog.Info("config", "file", path, "status", "loaded")
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.EqualFold(v, "true")
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				slog.Warn("config", "variable", key, "value", v, "error", "not an integer")
				return
			}
			*dst = n
		}
	}

	setString("CROWDSTRIKE_BASE_URL", &c.Falcon.BaseURL)
	setString("CROWDSTRIKE_CLIENT_ID", &c.Falcon.ClientID)
	setString("CROWDSTRIKE_CLIENT_SECRET", &c.Falcon.ClientSecret)
	setString("CROWDSTRIKE_SECRETS_ARN", &c.Falcon.SecretsARN)
	setBool("USE_SECRETS_MANAGER", &c.Falcon.UseSecretsManager)

	setBool("DRY_RUN_MODE", &c.Settings.DryRun)
	setBool("ENABLE_CLEANUP", &c.Settings.EnableCleanup)
	setInt("CLEANUP_OFFLINE_DAYS", &c.Settings.CleanupOfflineDays)
	setInt("DISCOVERY_LIMIT", &c.Settings.DiscoveryLimit)

	setString("SNS_TOPIC_ARN", &c.Notify.SNSTopicARN)
	setString("SLACK_WEBHOOK_PARAMETER", &c.Notify.SlackWebhookParameter)
}

func (c Config) offlineThreshold() time.Duration {
	return time.Duration(c.Settings.CleanupOfflineDays) * 24 * time.Hour
}

func (c Config) validate() error {
	if c.Falcon.UseSecretsManager && c.Falcon.SecretsARN != "" {
		return nil
	}
	if c.Falcon.ClientID == "" || c.Falcon.ClientSecret == "" {
		return fmt.Errorf("crowdstrike credentials not configured: set client_id and client_secret or a secrets manager ARN")
	}
	return nil
}

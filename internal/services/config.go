package services

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

// LoadConfig loads configuration from file and environment
// Priority order (highest to lowest):
//  1. Environment variables (GENOGRAB_ prefix, dots become underscores)
//  2. Configuration file
//  3. Default values
//
// CLI flags are applied by the commands on top of the returned config.
func LoadConfig(configFile string) (*models.ProjectConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("genograb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/genograb")
		v.AddConfigPath("/etc/genograb")
	}

	setDefaults(v)

	v.SetEnvPrefix("GENOGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, lib.WrapError(lib.CategoryConfiguration, "failed to read config file", err,
				"Check the config file for YAML syntax errors")
		}
	}

	// Build config manually from viper values
	config := models.ProjectConfig{
		Imputation: models.ImputationConfig{
			BaseURL:             v.GetString("imputation.base_url"),
			SettleDelayMs:       v.GetInt64("imputation.settle_delay_ms"),
			PollIntervalSeconds: v.GetInt("imputation.poll_interval_seconds"),
		},
		OpenSNP: models.OpenSNPConfig{
			BaseURL:  v.GetString("opensnp.base_url"),
			Workers:  v.GetInt("opensnp.workers"),
			StateDir: v.GetString("opensnp.state_dir"),
		},
		HTTP: models.HTTPConfig{
			TimeoutSeconds: v.GetInt("http.timeout_seconds"),
			UserAgent:      v.GetString("http.user_agent"),
		},
		Retry: models.RetryConfig{
			MaxAttempts:      v.GetInt("retry.max_attempts"),
			InitialBackoffMs: v.GetInt64("retry.initial_backoff_ms"),
			MaxBackoffMs:     v.GetInt64("retry.max_backoff_ms"),
		},
	}

	if err := config.Validate(); err != nil {
		var fieldErr *models.ConfigError
		if errors.As(err, &fieldErr) {
			return nil, lib.ErrInvalidConfig(fieldErr.Field, fieldErr.Reason)
		}
		return nil, lib.WrapError(lib.CategoryConfiguration, "invalid configuration", err)
	}

	return &config, nil
}

// GetConfigFilePath returns the path to the config file that would be loaded
func GetConfigFilePath(configFile string) string {
	if configFile != "" {
		return configFile
	}
	v := viper.New()
	v.SetConfigName("genograb")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/genograb")
	v.AddConfigPath("/etc/genograb")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	d := models.DefaultConfig()
	v.SetDefault("imputation.base_url", d.Imputation.BaseURL)
	v.SetDefault("imputation.settle_delay_ms", d.Imputation.SettleDelayMs)
	v.SetDefault("imputation.poll_interval_seconds", d.Imputation.PollIntervalSeconds)
	v.SetDefault("opensnp.base_url", d.OpenSNP.BaseURL)
	v.SetDefault("opensnp.workers", d.OpenSNP.Workers)
	v.SetDefault("opensnp.state_dir", d.OpenSNP.StateDir)
	v.SetDefault("http.timeout_seconds", d.HTTP.TimeoutSeconds)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_backoff_ms", d.Retry.InitialBackoffMs)
	v.SetDefault("retry.max_backoff_ms", d.Retry.MaxBackoffMs)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// Load builds a Config from defaults, an optional YAML file and the environment,
// then validates it. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from well-known environment variables.
func (c *Config) ApplyEnv() error {
	if value, ok := EnvString("TELEGRAM_TOKEN"); ok {
		c.Bot.Token = value
	}
	if value, ok, err := EnvInt("PORT"); err != nil {
		return err
	} else if ok {
		c.Server.Addr = fmt.Sprintf(":%d", value)
	}
	if value, ok := EnvString("QUOTER_BASE_URL"); ok {
		c.Catalog.BaseURL = value
	}
	if value, ok, err := EnvInt("QUOTER_MAX_RESULTS"); err != nil {
		return err
	} else if ok {
		c.Catalog.MaxResults = value
	}
	if value, ok := EnvString("QUOTER_CURRENCY_FORMAT"); ok {
		c.Report.CurrencyFormat = strings.ToLower(value)
	}
	if value, ok, err := EnvBool("QUOTER_DETECT_STOCK"); err != nil {
		return err
	} else if ok {
		c.Report.DetectStock = value
	}
	if value, ok, err := EnvFloat("QUOTER_PROFIT_MARGIN"); err != nil {
		return err
	} else if ok {
		c.Pricing.ProfitMargin = value
	}
	if value, ok := EnvString("QUOTER_LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(value)
	}
	return nil
}

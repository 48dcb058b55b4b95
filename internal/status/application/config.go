package application

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines the offline sweep configuration.
type Config struct {
	StalenessMinutes int    `yaml:"staleness_minutes"`
	BatchSize        int    `yaml:"batch_size"`
	DailyAt          string `yaml:"daily_at"`
	IntervalMinutes  int    `yaml:"interval_minutes"`
}

// LoadConfig loads sweep config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		StalenessMinutes: getenvIntDefault("SWEEP_STALENESS_MINUTES", 30),
		BatchSize:        getenvIntDefault("SWEEP_BATCH_SIZE", 500),
	}

	if path := os.Getenv("SWEEP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DailyAt == "" && cfg.IntervalMinutes == 0 {
		cfg.IntervalMinutes = getenvIntDefault("SWEEP_INTERVAL_MINUTES", 0)
		cfg.DailyAt = os.Getenv("SWEEP_DAILY_AT")
	}
	if cfg.StalenessMinutes <= 0 {
		return cfg, errors.New("sweep: staleness_minutes must be positive")
	}
	if cfg.BatchSize <= 0 {
		return cfg, errors.New("sweep: batch_size must be positive")
	}
	if cfg.DailyAt == "" && cfg.IntervalMinutes <= 0 {
		cfg.DailyAt = "03:00"
	}
	return cfg, nil
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

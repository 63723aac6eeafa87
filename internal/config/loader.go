package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("REVIEWKART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reviewkart")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".reviewkart"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.base_url", cfg.Scraper.BaseURL)
	v.SetDefault("scraper.max_reviews_per_product", cfg.Scraper.MaxReviewsPerProduct)
	v.SetDefault("scraper.settle_delay", cfg.Scraper.SettleDelay)
	v.SetDefault("scraper.scroll_steps", cfg.Scraper.ScrollSteps)
	v.SetDefault("scraper.scroll_delay", cfg.Scraper.ScrollDelay)
	v.SetDefault("scraper.delay_min", cfg.Scraper.DelayMin)
	v.SetDefault("scraper.delay_max", cfg.Scraper.DelayMax)
	v.SetDefault("scraper.page_timeout", cfg.Scraper.PageTimeout)
	v.SetDefault("scraper.script_timeout", cfg.Scraper.ScriptTimeout)
	v.SetDefault("scraper.popup_wait", cfg.Scraper.PopupWait)
	v.SetDefault("scraper.headless", cfg.Scraper.Headless)
	v.SetDefault("scraper.stealth", cfg.Scraper.Stealth)
	v.SetDefault("scraper.user_agent", cfg.Scraper.UserAgent)

	v.SetDefault("dataset.data_dir", cfg.Dataset.DataDir)
	v.SetDefault("dataset.master_prefix", cfg.Dataset.MasterPrefix)
	v.SetDefault("dataset.text_limit", cfg.Dataset.TextLimit)

	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.preload", cfg.API.Preload)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

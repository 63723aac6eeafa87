package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scraper.MaxReviewsPerProduct < 1 {
		return fmt.Errorf("scraper.max_reviews_per_product must be >= 1, got %d", cfg.Scraper.MaxReviewsPerProduct)
	}
	if cfg.Scraper.ScrollSteps < 0 {
		return fmt.Errorf("scraper.scroll_steps must be >= 0, got %d", cfg.Scraper.ScrollSteps)
	}
	if cfg.Scraper.PageTimeout <= 0 {
		return fmt.Errorf("scraper.page_timeout must be > 0")
	}
	if cfg.Scraper.DelayMin < 0 || cfg.Scraper.DelayMax < cfg.Scraper.DelayMin {
		return fmt.Errorf("scraper delay range invalid: min=%s max=%s", cfg.Scraper.DelayMin, cfg.Scraper.DelayMax)
	}
	if err := ValidateURL(cfg.Scraper.BaseURL); err != nil {
		return fmt.Errorf("scraper.base_url: %w", err)
	}

	if cfg.Dataset.TextLimit < 1 {
		return fmt.Errorf("dataset.text_limit must be >= 1, got %d", cfg.Dataset.TextLimit)
	}
	if cfg.Dataset.DataDir == "" {
		return fmt.Errorf("dataset.data_dir must not be empty")
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	for i, t := range cfg.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d]: name must not be empty", i)
		}
		if t.URL != "" {
			if err := ValidateURL(t.URL); err != nil {
				return fmt.Errorf("targets[%d] (%s): %w", i, t.Name, err)
			}
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable for navigation.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

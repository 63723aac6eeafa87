package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with no file: %v", err)
	}
	if cfg.Scraper.BaseURL != "https://www.flipkart.com" {
		t.Errorf("base url: %q", cfg.Scraper.BaseURL)
	}
	if cfg.Scraper.MaxReviewsPerProduct != 15 {
		t.Errorf("max reviews: %d", cfg.Scraper.MaxReviewsPerProduct)
	}
	if cfg.Dataset.MasterPrefix != "reviews_MASTER_DATASET" {
		t.Errorf("master prefix: %q", cfg.Dataset.MasterPrefix)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewkart.yaml")
	body := `
scraper:
  max_reviews_per_product: 5
  delay_min: 1s
  delay_max: 2s
api:
  port: 9001
targets:
  - name: iPhone 15
    category: Electronics
  - name: Nike Revolution
    url: https://www.flipkart.com/nike-revolution/p/itm123
    category: Shoes
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scraper.MaxReviewsPerProduct != 5 {
		t.Errorf("file override lost: %d", cfg.Scraper.MaxReviewsPerProduct)
	}
	if cfg.Scraper.DelayMin != time.Second || cfg.Scraper.DelayMax != 2*time.Second {
		t.Errorf("delays: %s/%s", cfg.Scraper.DelayMin, cfg.Scraper.DelayMax)
	}
	if cfg.API.Port != 9001 {
		t.Errorf("port: %d", cfg.API.Port)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1].URL == "" {
		t.Errorf("targets not parsed: %+v", cfg.Targets)
	}
	if cfg.Scraper.BaseURL != "https://www.flipkart.com" {
		t.Errorf("unset keys must keep defaults: %q", cfg.Scraper.BaseURL)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max reviews", func(c *Config) { c.Scraper.MaxReviewsPerProduct = 0 }},
		{"inverted delay range", func(c *Config) {
			c.Scraper.DelayMin = 5 * time.Second
			c.Scraper.DelayMax = time.Second
		}},
		{"bad base url scheme", func(c *Config) { c.Scraper.BaseURL = "ftp://example.com" }},
		{"zero api port", func(c *Config) { c.API.Port = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"empty data dir", func(c *Config) { c.Dataset.DataDir = "" }},
		{"nameless target", func(c *Config) {
			c.Targets = append(c.Targets, types.ScrapeTarget{Category: "Electronics"})
		}},
		{"target with bad url", func(c *Config) {
			c.Targets = append(c.Targets, types.ScrapeTarget{Name: "x", URL: "not a url"})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

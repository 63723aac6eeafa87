package config

import (
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for reviewkart.
type Config struct {
	Scraper Scraper              `mapstructure:"scraper" yaml:"scraper"`
	Dataset Dataset              `mapstructure:"dataset" yaml:"dataset"`
	Storage Storage              `mapstructure:"storage" yaml:"storage"`
	API     API                  `mapstructure:"api"     yaml:"api"`
	Logging Logging              `mapstructure:"logging" yaml:"logging"`
	Metrics Metrics              `mapstructure:"metrics" yaml:"metrics"`
	Targets []types.ScrapeTarget `mapstructure:"targets" yaml:"targets"`
}

// Scraper controls the browser session and the review collector.
type Scraper struct {
	// BaseURL is the storefront root used to resolve search and
	// relative product links.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// MaxReviewsPerProduct caps extracted blocks per target.
	MaxReviewsPerProduct int `mapstructure:"max_reviews_per_product" yaml:"max_reviews_per_product"`

	// SettleDelay is applied after each page load before reading DOM.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`

	// ScrollSteps and ScrollDelay drive the lazy-load scroll loop.
	ScrollSteps int           `mapstructure:"scroll_steps" yaml:"scroll_steps"`
	ScrollDelay time.Duration `mapstructure:"scroll_delay" yaml:"scroll_delay"`

	// DelayMin/DelayMax bound the randomized pause between targets.
	DelayMin time.Duration `mapstructure:"delay_min" yaml:"delay_min"`
	DelayMax time.Duration `mapstructure:"delay_max" yaml:"delay_max"`

	// PageTimeout bounds navigation; ScriptTimeout bounds JS eval.
	PageTimeout   time.Duration `mapstructure:"page_timeout"   yaml:"page_timeout"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`

	// PopupWait bounds the opportunistic consent-dialog dismissal.
	PopupWait time.Duration `mapstructure:"popup_wait" yaml:"popup_wait"`

	Headless  bool   `mapstructure:"headless"   yaml:"headless"`
	Stealth   bool   `mapstructure:"stealth"    yaml:"stealth"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Dataset controls merging and the canonical artifact.
type Dataset struct {
	// DataDir holds run exports and merged master artifacts.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// MasterPrefix names merged artifacts: <prefix>_<timestamp>.csv.
	MasterPrefix string `mapstructure:"master_prefix" yaml:"master_prefix"`

	// TextLimit truncates review bodies at extraction time.
	TextLimit int `mapstructure:"text_limit" yaml:"text_limit"`
}

// Storage controls optional sinks for merged records.
type Storage struct {
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// API controls the read-only query HTTP server.
type API struct {
	Port    int  `mapstructure:"port"    yaml:"port"`
	Preload bool `mapstructure:"preload" yaml:"preload"`
}

// Logging controls logging behavior.
type Logging struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: Scraper{
			BaseURL:              "https://www.flipkart.com",
			MaxReviewsPerProduct: 15,
			SettleDelay:          3 * time.Second,
			ScrollSteps:          3,
			ScrollDelay:          1500 * time.Millisecond,
			DelayMin:             3 * time.Second,
			DelayMax:             10 * time.Second,
			PageTimeout:          30 * time.Second,
			ScriptTimeout:        30 * time.Second,
			PopupWait:            5 * time.Second,
			Headless:             true,
			Stealth:              true,
			UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Dataset: Dataset{
			DataDir:      "./data",
			MasterPrefix: "reviews_MASTER_DATASET",
			TextLimit:    500,
		},
		Storage: Storage{
			MongoDatabase:   "reviews_db",
			MongoCollection: "reviews",
		},
		API: API{
			Port:    8000,
			Preload: true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: Metrics{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

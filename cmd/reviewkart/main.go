package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/reviewkart/reviewkart/internal/api"
	"github.com/reviewkart/reviewkart/internal/collect"
	"github.com/reviewkart/reviewkart/internal/config"
	"github.com/reviewkart/reviewkart/internal/dataset"
	"github.com/reviewkart/reviewkart/internal/extract"
	"github.com/reviewkart/reviewkart/internal/navigate"
	"github.com/reviewkart/reviewkart/internal/query"
	"github.com/reviewkart/reviewkart/internal/storage"
	"github.com/reviewkart/reviewkart/internal/types"
)

var (
	cfgFile    string
	verbose    bool
	category   string
	dataDir    string
	headless   bool
	maxReviews int
	keepOld    bool
	mongoURI   string
	apiPort    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewkart",
		Short: "ReviewKart, a Flipkart review scraping and query toolkit",
		Long: `ReviewKart scrapes product reviews from Flipkart with a headless
browser, merges run exports into a master dataset, and serves the
dataset over a read-only HTTP API.

Pipeline:
  scrape  collect reviews for configured targets or a search keyword
  merge   combine run exports into the master dataset artifacts
  serve   query the latest master dataset over HTTP
  upload  push the master dataset to MongoDB`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [keyword]",
		Short: "Scrape reviews for configured targets or one keyword",
		Long: `Scrape reviews with a headless browser. With a keyword argument a
single ad-hoc target is scraped; without one, every target from the
config file is processed in order with a randomized pause between
targets. Each run writes a timestamped CSV and JSON export.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().StringVar(&category, "category", "", "category stamped on ad-hoc keyword targets")
	cmd.Flags().StringVarP(&dataDir, "output", "o", "", "run export directory (default from config)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().IntVarP(&maxReviews, "max-reviews", "m", 0, "max reviews per product (0 = config default)")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	applyScrapeFlags(cmd, cfg)

	targets := cfg.Targets
	if len(args) == 1 {
		targets = []types.ScrapeTarget{{Name: args[0], Category: category}}
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets: pass a keyword or configure targets in %s", cfgFile)
	}

	session, err := navigate.NewSession(&cfg.Scraper, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	metrics := collect.NewMetrics()
	collector := collect.New(
		navigate.New(session, &cfg.Scraper, logger),
		extract.New(logger, cfg.Dataset.TextLimit),
		&cfg.Scraper,
		logger,
		collect.WithMetrics(metrics),
	)

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, metrics, logger)
	}

	// First SIGINT stops after the current target; a second kills the run.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("signal received, finishing current target")
		collector.Stop()
		<-sigCh
		logger.Warn("second signal, aborting")
		cancel()
	}()

	start := time.Now()
	var result *types.RunResult
	if len(args) == 1 {
		result, err = collector.RunKeyword(ctx, args[0], category)
	} else {
		result, err = collector.Run(ctx, targets)
	}
	if result != nil && len(result.Reviews) > 0 {
		if _, werr := storage.WriteRun(result, cfg.Dataset.DataDir, logger); werr != nil {
			logger.Error("run export failed", "error", werr)
		}
	}
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}

	fmt.Printf("\nScrape finished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Targets:  %d processed, %d failed\n", len(result.Outcomes), len(result.Meta.Failures))
	fmt.Printf("   Reviews:  %d collected\n", result.Meta.ReviewsCount)
	fmt.Printf("   Output:   %s\n", cfg.Dataset.DataDir)
	if len(result.Meta.Failures) > 0 {
		fmt.Printf("   Failed:   %s\n", strings.Join(result.Meta.Failures, ", "))
	}
	return nil
}

// applyScrapeFlags folds command-line overrides into the config. A flag
// the user did not pass leaves the config value alone.
func applyScrapeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("headless") {
		cfg.Scraper.Headless = headless
	}
	if maxReviews > 0 {
		cfg.Scraper.MaxReviewsPerProduct = maxReviews
	}
	if dataDir != "" {
		cfg.Dataset.DataDir = dataDir
	}
}

// mergeCmd creates the "merge" subcommand.
func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge run exports into the master dataset",
		Long: `Merge every run export CSV in the data directory into one master
dataset: normalized ratings, deduplicated bodies, fresh sequential
IDs. Writes the master CSV, a clean CSV, a JSON export, and a text
summary.`,
		RunE: runMerge,
	}
	cmd.Flags().StringVarP(&dataDir, "dir", "d", "", "directory of run exports (default from config)")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Dataset.DataDir = dataDir
	}

	merger := dataset.NewMerger(logger)
	ds, errs := merger.MergeDir(cfg.Dataset.DataDir, cfg.Dataset.MasterPrefix)
	for _, e := range errs {
		logger.Warn("source skipped", "error", e)
	}
	if ds == nil {
		return fmt.Errorf("merge: no usable sources in %s", cfg.Dataset.DataDir)
	}

	art, err := merger.Persist(ds, cfg.Dataset.DataDir, cfg.Dataset.MasterPrefix)
	if err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}

	fmt.Println(dataset.RenderSummary(ds))
	fmt.Printf("Master:  %s\n", art.MasterCSV)
	fmt.Printf("Clean:   %s\n", art.CleanCSV)
	fmt.Printf("JSON:    %s\n", art.JSON)
	fmt.Printf("Summary: %s\n", art.Summary)
	return nil
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the master dataset over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&apiPort, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if apiPort > 0 {
		cfg.API.Port = apiPort
	}

	svc := query.NewService(cfg.Dataset.DataDir, cfg.Dataset.MasterPrefix, logger)
	if cfg.API.Preload {
		svc.Preload()
	}

	server := api.NewServer(svc, cfg.API.Port, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	return server.Start()
}

// uploadCmd creates the "upload" subcommand.
func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the master dataset to MongoDB",
		RunE:  runUpload,
	}
	cmd.Flags().StringVar(&mongoURI, "uri", "", "MongoDB connection URI (default from config)")
	cmd.Flags().BoolVar(&keepOld, "keep-existing", false, "append instead of replacing the collection")
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if mongoURI != "" {
		cfg.Storage.MongoURI = mongoURI
	}
	if cfg.Storage.MongoURI == "" {
		return fmt.Errorf("no MongoDB URI configured")
	}

	ds, err := dataset.LoadLatest(cfg.Dataset.DataDir, cfg.Dataset.MasterPrefix, logger)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	ctx := cmd.Context()
	var opts []storage.MongoOption
	if !keepOld {
		opts = append(opts, storage.WithReplace())
	}
	sink, err := storage.NewMongoSink(ctx, cfg.Storage.MongoURI,
		cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger, opts...)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer sink.Close(ctx)

	if err := sink.Upload(ctx, ds.Records); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	fmt.Printf("Uploaded %d reviews to %s/%s\n",
		len(ds.Records), cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ReviewKart %s\n", config.Version)
		},
	}
}

// setup loads config and builds the logger shared by all subcommands.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(&cfg.Logging), nil
}

// setupLogger creates a structured logger per the logging config.
func setupLogger(cfg *config.Logging) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch strings.ToLower(cfg.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// startMetricsServer exposes collector metrics for Prometheus scrapes.
func startMetricsServer(cfg *config.Config, metrics *collect.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	go func() {
		logger.Info("metrics server starting", "addr", addr, "path", cfg.Metrics.Path)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
}

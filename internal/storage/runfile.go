package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

// runFileTimeFormat stamps run export file names.
const runFileTimeFormat = "20060102_150405"

// runColumns is the column order of run exports. The review_id column
// holds the collector's provisional ID; the merger replaces it.
var runColumns = []string{
	"review_id", "category", "product_name", "rating", "review_text",
	"reviewer", "date", "verified", "product_url", "scraped_date",
}

// RunFiles are the paths one WriteRun call produced.
type RunFiles struct {
	CSV  string
	JSON string
}

// WriteRun exports a collector run as a CSV of records plus a JSON
// file carrying the run metadata and per-target ledger.
func WriteRun(result *types.RunResult, dir string, logger *slog.Logger) (*RunFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "filesystem", Err: err}
	}

	stamp := time.Now().Format(runFileTimeFormat)
	base := fmt.Sprintf("%s_reviews_%s_%s", result.Meta.Source, runSlug(result), stamp)
	files := &RunFiles{
		CSV:  filepath.Join(dir, base+".csv"),
		JSON: filepath.Join(dir, base+".json"),
	}

	if err := writeRunCSV(files.CSV, result.Reviews); err != nil {
		return nil, err
	}
	if err := writeRunJSON(files.JSON, result); err != nil {
		return nil, err
	}

	logger.Info("run exported",
		"reviews", len(result.Reviews),
		"csv", files.CSV,
		"json", files.JSON)
	return files, nil
}

// runSlug derives a filename fragment from the run's keyword, or
// "batch" for multi-target runs.
func runSlug(result *types.RunResult) string {
	name := result.Meta.Keyword
	if name == "" {
		return "batch"
	}
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}

func writeRunCSV(path string, records []types.ReviewRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(runColumns); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	for _, r := range records {
		row := []string{
			r.ProvisionalID,
			r.Category,
			r.ProductName,
			strconv.Itoa(r.Rating),
			r.ReviewText,
			r.Reviewer,
			r.Date,
			r.Verified,
			r.ProductURL,
			r.ScrapedDate,
		}
		if err := w.Write(row); err != nil {
			return &types.StorageError{Backend: "filesystem", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	return f.Close()
}

func writeRunJSON(path string, result *types.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	return nil
}

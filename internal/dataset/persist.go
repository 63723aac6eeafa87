package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

// artifactTimeFormat names artifacts; it sorts lexicographically by
// creation time, which LoadLatest relies on.
const artifactTimeFormat = "20060102_150405"

// cleanPrefix names the analysis-friendly artifact without provenance
// columns.
const cleanPrefix = "reviews_CLEAN"

// Artifacts lists the files one Persist call produced.
type Artifacts struct {
	MasterCSV string
	CleanCSV  string
	JSON      string
	Summary   string
}

// Persist writes the four dataset artifacts into dir: the master CSV,
// a clean CSV without provenance columns, a JSON export, and a text
// summary. CSVs carry a UTF-8 BOM so spreadsheet tools detect the
// encoding.
func (m *Merger) Persist(ds *Dataset, dir, prefix string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "filesystem", Err: err}
	}

	stamp := ds.CreatedAt.Format(artifactTimeFormat)
	art := &Artifacts{
		MasterCSV: filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, stamp)),
		CleanCSV:  filepath.Join(dir, fmt.Sprintf("%s_%s.csv", cleanPrefix, stamp)),
		JSON:      filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, stamp)),
		Summary:   filepath.Join(dir, fmt.Sprintf("dataset_summary_%s.txt", stamp)),
	}

	if err := writeCSV(art.MasterCSV, ds.Records, Columns); err != nil {
		return nil, err
	}
	if err := writeCSV(art.CleanCSV, ds.Records, Columns[:10]); err != nil {
		return nil, err
	}
	if err := writeJSON(art.JSON, ds); err != nil {
		return nil, err
	}
	if err := os.WriteFile(art.Summary, []byte(RenderSummary(ds)), 0o644); err != nil {
		return nil, &types.StorageError{Backend: "filesystem", Err: err}
	}

	m.logger.Info("dataset persisted",
		"records", len(ds.Records),
		"master", art.MasterCSV,
		"json", art.JSON)
	return art, nil
}

// LoadLatest reads the newest master artifact under dir. Returns
// ErrNoDataset when no master CSV exists yet.
func LoadLatest(dir, prefix string, logger *slog.Logger) (*Dataset, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, types.ErrNoDataset
	}
	sort.Strings(matches)
	newest := matches[len(matches)-1]

	data, err := os.ReadFile(newest)
	if err != nil {
		return nil, &types.StorageError{Backend: "filesystem", Err: err}
	}
	records, err := ReadSource(newest, data, logger)
	if err != nil {
		return nil, err
	}

	info, _ := os.Stat(newest)
	created := time.Now()
	if info != nil {
		created = info.ModTime()
	}

	logger.Info("master dataset loaded", "file", newest, "records", len(records))
	return &Dataset{
		Records:   records,
		Sources:   []string{filepath.Base(newest)},
		CreatedAt: created,
	}, nil
}

func writeCSV(path string, records []types.ReviewRecord, columns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	for i := range records {
		if err := w.Write(recordRow(&records[i], columns)); err != nil {
			return &types.StorageError{Backend: "filesystem", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	return f.Close()
}

func recordRow(r *types.ReviewRecord, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "review_id":
			row[i] = strconv.Itoa(r.ReviewID)
		case "category":
			row[i] = r.Category
		case "product_name":
			row[i] = r.ProductName
		case "rating":
			row[i] = strconv.Itoa(r.Rating)
		case "review_text":
			row[i] = r.ReviewText
		case "reviewer":
			row[i] = r.Reviewer
		case "date":
			row[i] = r.Date
		case "verified":
			row[i] = r.Verified
		case "product_url":
			row[i] = r.ProductURL
		case "scraped_date":
			row[i] = r.ScrapedDate
		case "scrape_phase":
			row[i] = r.ScrapePhase
		case "source_file":
			row[i] = r.SourceFile
		}
	}
	return row
}

func writeJSON(path string, ds *Dataset) error {
	payload := struct {
		GeneratedAt  string               `json:"generated_at"`
		TotalReviews int                  `json:"total_reviews"`
		Sources      []string             `json:"sources"`
		Reviews      []types.ReviewRecord `json:"reviews"`
	}{
		GeneratedAt:  ds.CreatedAt.Format(types.TimeFormat),
		TotalReviews: len(ds.Records),
		Sources:      ds.Sources,
		Reviews:      ds.Records,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &types.StorageError{Backend: "filesystem", Err: err}
	}
	return nil
}

// RenderSummary formats the human-readable dataset report.
func RenderSummary(ds *Dataset) string {
	s := ds.Summarize()
	var b strings.Builder

	b.WriteString("REVIEW DATASET SUMMARY\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Generated:          %s\n", ds.CreatedAt.Format(types.TimeFormat))
	fmt.Fprintf(&b, "Total reviews:      %d\n", s.Total)
	fmt.Fprintf(&b, "Average rating:     %.2f\n", s.AverageRating)
	fmt.Fprintf(&b, "Verified purchases: %d\n", s.Verified)
	fmt.Fprintf(&b, "Source files:       %s\n", strings.Join(ds.Sources, ", "))

	b.WriteString("\nBy category:\n")
	for _, name := range sortedKeys(s.Categories) {
		fmt.Fprintf(&b, "  %-24s %d\n", name, s.Categories[name])
	}

	b.WriteString("\nBy rating:\n")
	for rating := 5; rating >= 1; rating-- {
		fmt.Fprintf(&b, "  %d star: %d\n", rating, s.Ratings[rating])
	}

	b.WriteString("\nBy phase:\n")
	for _, name := range sortedKeys(s.Phases) {
		fmt.Fprintf(&b, "  %-24s %d\n", name, s.Phases[name])
	}

	b.WriteString("\nBy product:\n")
	for _, name := range sortedKeys(s.Products) {
		fmt.Fprintf(&b, "  %-24s %d\n", name, s.Products[name])
	}
	return b.String()
}

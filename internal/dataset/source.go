package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/reviewkart/reviewkart/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerAliases maps column-name variants seen in older run exports to
// the canonical names.
var headerAliases = map[string]string{
	"review":   "review_text",
	"reviews":  "review_text",
	"text":     "review_text",
	"product":  "product_name",
	"user":     "reviewer",
	"customer": "reviewer",
	"stars":    "rating",
	"url":      "product_url",
}

// decodeBytes normalizes a source file's encoding to UTF-8. The chain
// mirrors the encodings run exports have shipped with over time: BOM
// UTF-8, plain UTF-8, then Latin-1 as the catch-all for legacy files.
func decodeBytes(data []byte, logger *slog.Logger) []byte {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):]
	}
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		logger.Warn("latin-1 decode failed, keeping raw bytes", "error", err)
		return data
	}
	logger.Debug("source decoded as latin-1")
	return decoded
}

// normalizeHeader canonicalizes one CSV column name.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// parseRating coerces a raw rating cell to an int. Unparseable or
// missing values become 0, the unknown sentinel; range clamping is the
// merger's job.
func parseRating(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}

// parseID parses an inbound review_id cell, 0 when absent or invalid.
func parseID(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// inferPhase derives the scrape phase from a source file name.
func inferPhase(filename string) string {
	name := strings.ToLower(filename)
	if strings.Contains(name, "phase2") || strings.Contains(name, "phase_2") {
		return "Phase 2"
	}
	return "Phase 1"
}

// inferCategory derives a category from a source file name, used only
// when a row carries none.
func inferCategory(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "home"), strings.Contains(name, "appliance"):
		return "Home Appliances"
	case strings.Contains(name, "shoe"):
		return "Shoes"
	default:
		return "Electronics"
	}
}

// ReadSource parses one run-export CSV into records. Column order is
// free; names are normalized and aliased. Inbound review_id values are
// parsed but the merger reassigns them.
func ReadSource(path string, data []byte, logger *slog.Logger) ([]types.ReviewRecord, error) {
	data = decodeBytes(data, logger)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &types.MergeError{Source: path, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &types.MergeError{Source: path, Err: fmt.Errorf("empty file")}
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	if _, ok := cols["review_text"]; !ok {
		return nil, &types.MergeError{Source: path, Err: fmt.Errorf("no review_text column")}
	}

	base := filepath.Base(path)
	phase := inferPhase(base)
	fallbackCategory := inferCategory(base)

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]types.ReviewRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := types.ReviewRecord{
			ReviewID:    parseID(cell(row, "review_id")),
			Category:    cell(row, "category"),
			ProductName: cell(row, "product_name"),
			Rating:      parseRating(cell(row, "rating")),
			ReviewText:  cell(row, "review_text"),
			Reviewer:    cell(row, "reviewer"),
			Date:        cell(row, "date"),
			Verified:    cell(row, "verified"),
			ProductURL:  cell(row, "product_url"),
			ScrapedDate: cell(row, "scraped_date"),
			ScrapePhase: cell(row, "scrape_phase"),
			SourceFile:  cell(row, "source_file"),
		}
		if rec.Category == "" {
			rec.Category = fallbackCategory
		}
		if rec.ScrapePhase == "" {
			rec.ScrapePhase = phase
		}
		if rec.SourceFile == "" {
			rec.SourceFile = base
		}
		records = append(records, rec)
	}

	logger.Info("source loaded", "file", base, "rows", len(records), "phase", phase)
	return records, nil
}

// Package dataset combines run exports into the canonical master
// dataset: one deduplicated table with fresh sequential IDs, persisted
// as CSV and JSON artifacts plus a text summary.
package dataset

import (
	"sort"
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Columns is the canonical column order of every CSV artifact.
var Columns = []string{
	"review_id", "category", "product_name", "rating", "review_text",
	"reviewer", "date", "verified", "product_url", "scraped_date",
	"scrape_phase", "source_file",
}

// Dataset is a merged, normalized collection of review records.
type Dataset struct {
	Records   []types.ReviewRecord
	Sources   []string
	CreatedAt time.Time
}

// Summary aggregates the dataset for the report artifact and the
// stats endpoint.
type Summary struct {
	Total         int
	AverageRating float64
	Verified      int
	Categories    map[string]int
	Products      map[string]int
	Ratings       map[int]int
	Phases        map[string]int
}

// Summarize computes aggregate statistics over the dataset. The rating
// histogram always carries all five keys.
func (d *Dataset) Summarize() Summary {
	s := Summary{
		Total:      len(d.Records),
		Categories: make(map[string]int),
		Products:   make(map[string]int),
		Ratings:    map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		Phases:     make(map[string]int),
	}

	var ratingSum int
	for _, r := range d.Records {
		s.Categories[r.Category]++
		s.Products[r.ProductName]++
		s.Phases[r.ScrapePhase]++
		if r.Rating >= 1 && r.Rating <= 5 {
			s.Ratings[r.Rating]++
			ratingSum += r.Rating
		}
		if r.IsVerified() {
			s.Verified++
		}
	}
	if s.Total > 0 {
		s.AverageRating = float64(ratingSum) / float64(s.Total)
	}
	return s
}

// CategoryNames returns the distinct categories in sorted order.
func (d *Dataset) CategoryNames() []string {
	return sortedKeys(d.Summarize().Categories)
}

// ProductNames returns the distinct product names in sorted order.
func (d *Dataset) ProductNames() []string {
	return sortedKeys(d.Summarize().Products)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package types

import (
	"fmt"
	"strings"
	"time"
)

// TimeFormat is the human-readable timestamp layout used across
// scraped_date, run metadata, and artifact names.
const TimeFormat = "2006-01-02 15:04:05"

// RawBlock is an unstructured candidate review extracted from a rendered
// page. It is transient: produced by the navigator, consumed immediately
// by the field extractor, never persisted.
type RawBlock struct {
	// Text is the rendered text content of the block.
	Text string

	// HTML is the block's outer HTML when the selector strategy had
	// access to the DOM node. Optional; heuristics fall back to Text.
	HTML string
}

// ReviewRecord is the canonical unit of the dataset.
type ReviewRecord struct {
	// ReviewID is the dataset primary key, assigned at merge time.
	// Collector-emitted records carry 0 here; see ProvisionalID.
	ReviewID int `json:"review_id" bson:"review_id"`

	Category    string `json:"category"     bson:"category"`
	ProductName string `json:"product_name" bson:"product_name"`
	Rating      int    `json:"rating"       bson:"rating"`
	ReviewText  string `json:"review_text"  bson:"review_text"`
	Reviewer    string `json:"reviewer"     bson:"reviewer"`
	Date        string `json:"date,omitempty" bson:"date,omitempty"`
	Verified    string `json:"verified"     bson:"verified"`
	ProductURL  string `json:"product_url"  bson:"product_url"`
	ScrapedDate string `json:"scraped_date" bson:"scraped_date"`

	// Provenance, added at merge time.
	ScrapePhase string `json:"scrape_phase,omitempty" bson:"scrape_phase,omitempty"`
	SourceFile  string `json:"source_file,omitempty"  bson:"source_file,omitempty"`

	// ProvisionalID is the collector's locally-unique ID
	// (name-prefix_index_timestamp). Debugging only: the merger
	// discards it and assigns the authoritative ReviewID.
	ProvisionalID string `json:"provisional_id,omitempty" bson:"-"`
}

// NewProvisionalID builds the collector's per-run review identifier.
// It is locally unique within a run but not globally collision-free.
func NewProvisionalID(productName string, index int) string {
	prefix := []rune(productName)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	name := strings.ReplaceAll(string(prefix), " ", "_")
	return fmt.Sprintf("%s_%d_%d", name, index, time.Now().Unix())
}

// IsVerified reports whether the record's verified flag is affirmative.
func (r *ReviewRecord) IsVerified() bool {
	switch strings.ToLower(strings.TrimSpace(r.Verified)) {
	case "yes", "true", "1", "verified":
		return true
	}
	return false
}

// ScrapeTarget identifies one product to scrape.
type ScrapeTarget struct {
	Name     string `json:"name"     mapstructure:"name"     yaml:"name"`
	URL      string `json:"url"      mapstructure:"url"      yaml:"url"`
	Category string `json:"category" mapstructure:"category" yaml:"category"`
}

// RunMeta summarizes one collector run.
type RunMeta struct {
	Source       string   `json:"source"`
	URL          string   `json:"url,omitempty"`
	Keyword      string   `json:"keyword,omitempty"`
	Success      bool     `json:"success"`
	ReviewsCount int      `json:"reviews_count"`
	Timestamp    string   `json:"timestamp"`
	Error        string   `json:"error,omitempty"`
	Failures     []string `json:"failures,omitempty"`
}

// TargetOutcome is one entry in a run's per-target ledger.
type TargetOutcome struct {
	Target  string `json:"target"`
	URL     string `json:"url,omitempty"`
	Reviews int    `json:"reviews"`
	Error   string `json:"error,omitempty"`
}

// RunResult is the collector's output: run metadata, the per-target
// ledger, and the tagged records.
type RunResult struct {
	Meta     RunMeta         `json:"meta"`
	Outcomes []TargetOutcome `json:"outcomes,omitempty"`
	Reviews  []ReviewRecord  `json:"reviews"`
}

// FailedTargets returns the names of targets that produced an error.
func (r *RunResult) FailedTargets() []string {
	var failed []string
	for _, o := range r.Outcomes {
		if o.Error != "" {
			failed = append(failed, o.Target)
		}
	}
	return failed
}

// Package query serves read-only questions over the latest master
// dataset: filtered listing, text search, and aggregate statistics.
//
// Every operation tolerates a missing dataset by returning empty
// results or zeroed stats. Translating "no dataset" into an HTTP
// not-found is the API layer's business, not this package's.
package query

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/reviewkart/reviewkart/internal/dataset"
	"github.com/reviewkart/reviewkart/internal/types"
)

// Pagination and search bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MinSearchLen is the shortest query that searches at all;
	// anything shorter returns no results.
	MinSearchLen = 2

	// DefaultSearchLimit caps search results unless the caller asks
	// for fewer.
	DefaultSearchLimit = 20
)

// Service answers queries against an atomically swappable dataset.
// Reads never block loads: a load builds the new dataset aside and
// publishes it in one pointer swap.
type Service struct {
	logger  *slog.Logger
	dataDir string
	prefix  string
	ds      atomic.Pointer[dataset.Dataset]
}

// NewService creates a Service that loads master artifacts from
// dataDir.
func NewService(dataDir, prefix string, logger *slog.Logger) *Service {
	return &Service{
		logger:  logger.With("component", "query"),
		dataDir: dataDir,
		prefix:  prefix,
	}
}

// Load reads the newest master artifact and swaps it in.
func (s *Service) Load() error {
	ds, err := dataset.LoadLatest(s.dataDir, s.prefix, s.logger)
	if err != nil {
		return err
	}
	s.ds.Store(ds)
	return nil
}

// Preload kicks off a background load so the first request does not
// pay the parse cost. A missing dataset is logged, not fatal: queries
// serve empty results until a merge produces one.
func (s *Service) Preload() {
	go func() {
		if err := s.Load(); err != nil {
			s.logger.Warn("dataset preload failed", "error", err)
		}
	}()
}

// SetDataset swaps in an already-built dataset, e.g. straight after a
// merge.
func (s *Service) SetDataset(ds *dataset.Dataset) {
	s.ds.Store(ds)
}

// Dataset returns the current dataset, or ErrNoDataset before the
// first successful load.
func (s *Service) Dataset() (*dataset.Dataset, error) {
	ds := s.ds.Load()
	if ds == nil {
		return nil, types.ErrNoDataset
	}
	return ds, nil
}

func (s *Service) records() []types.ReviewRecord {
	if ds := s.ds.Load(); ds != nil {
		return ds.Records
	}
	return nil
}

// ReviewFilter selects a subset of the dataset. Zero values mean "no
// constraint"; all present constraints are AND-combined.
type ReviewFilter struct {
	// Category and Product match as case-insensitive substrings.
	Category string
	Product  string

	// MinRating/MaxRating are inclusive bounds; 0 disables a bound.
	MinRating int
	MaxRating int

	Verified *bool

	Page  int
	Limit int
}

// ReviewPage is one page of filtered results.
type ReviewPage struct {
	Reviews []types.ReviewRecord `json:"reviews"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	Pages   int                  `json:"pages"`
}

// Reviews lists records matching the filter, paginated. Pages are
// 1-indexed; the limit is clamped to [1,MaxLimit]. A page past the end
// returns an empty list with the true total.
func (s *Service) Reviews(f ReviewFilter) *ReviewPage {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	records := s.records()
	var matchedAll []types.ReviewRecord
	for i := range records {
		if matches(&records[i], &f) {
			matchedAll = append(matchedAll, records[i])
		}
	}

	total := len(matchedAll)
	pages := (total + limit - 1) / limit

	// Guard before multiplying so an absurd page number cannot overflow
	// into a negative slice offset.
	start := total
	if page <= pages {
		start = (page - 1) * limit
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &ReviewPage{
		Reviews: append([]types.ReviewRecord{}, matchedAll[start:end]...),
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
	}
}

func matches(r *types.ReviewRecord, f *ReviewFilter) bool {
	if f.Category != "" && !containsFold(r.Category, f.Category) {
		return false
	}
	if f.Product != "" && !containsFold(r.ProductName, f.Product) {
		return false
	}
	if f.MinRating > 0 && r.Rating < f.MinRating {
		return false
	}
	if f.MaxRating > 0 && r.Rating > f.MaxRating {
		return false
	}
	if f.Verified != nil && r.IsVerified() != *f.Verified {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ReviewByID looks up one record by its dataset ID. A missing ID is a
// normal empty result.
func (s *Service) ReviewByID(id int) (*types.ReviewRecord, bool) {
	records := s.records()
	for i := range records {
		if records[i].ReviewID == id {
			rec := records[i]
			return &rec, true
		}
	}
	return nil, false
}

// Search matches q case-insensitively against review text, product
// name, category, and reviewer. Queries shorter than MinSearchLen
// after trimming return nothing. Results come back highest-rated
// first, ties broken by dataset ID.
func (s *Service) Search(q string, limit int) []types.ReviewRecord {
	q = strings.TrimSpace(q)
	if len(q) < MinSearchLen {
		return []types.ReviewRecord{}
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	needle := strings.ToLower(q)
	hits := []types.ReviewRecord{}
	for _, r := range s.records() {
		for _, h := range []string{r.ReviewText, r.ProductName, r.Category, r.Reviewer} {
			if strings.Contains(strings.ToLower(h), needle) {
				hits = append(hits, r)
				break
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Rating != hits[j].Rating {
			return hits[i].Rating > hits[j].Rating
		}
		return hits[i].ReviewID < hits[j].ReviewID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Stats is the aggregate view served by the stats endpoint. The rating
// histogram is keyed "1".."5" and always complete, even on an empty
// dataset.
type Stats struct {
	TotalReviews    int            `json:"total_reviews"`
	AverageRating   float64        `json:"average_rating"`
	VerifiedCount   int            `json:"verified_count"`
	RatingHistogram map[string]int `json:"rating_histogram"`
	Categories      map[string]int `json:"categories"`
	Products        int            `json:"products"`
}

// Stats aggregates the current dataset.
func (s *Service) Stats() *Stats {
	ds := s.ds.Load()
	if ds == nil {
		ds = &dataset.Dataset{}
	}
	sum := ds.Summarize()

	hist := make(map[string]int, 5)
	for rating := 1; rating <= 5; rating++ {
		hist[strconv.Itoa(rating)] = sum.Ratings[rating]
	}

	return &Stats{
		TotalReviews:    sum.Total,
		AverageRating:   sum.AverageRating,
		VerifiedCount:   sum.Verified,
		RatingHistogram: hist,
		Categories:      sum.Categories,
		Products:        len(sum.Products),
	}
}

// Categories lists the distinct categories, sorted.
func (s *Service) Categories() []string {
	ds := s.ds.Load()
	if ds == nil {
		return []string{}
	}
	return ds.CategoryNames()
}

// Products lists the distinct product names, sorted.
func (s *Service) Products() []string {
	ds := s.ds.Load()
	if ds == nil {
		return []string{}
	}
	return ds.ProductNames()
}

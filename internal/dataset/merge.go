package dataset

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Merger builds master datasets from run exports.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a Merger.
func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{logger: logger.With("component", "merger")}
}

// MergeFiles reads and merges the given CSV exports. A source that
// fails to load is skipped and reported; the merge continues with the
// rest. The returned error slice holds one MergeError per bad source.
func (m *Merger) MergeFiles(paths []string) (*Dataset, []error) {
	var (
		all      []types.ReviewRecord
		sources  []string
		loadErrs []error
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErrs = append(loadErrs, &types.MergeError{Source: path, Err: err})
			m.logger.Warn("skipping unreadable source", "file", path, "error", err)
			continue
		}
		records, err := ReadSource(path, data, m.logger)
		if err != nil {
			loadErrs = append(loadErrs, err)
			m.logger.Warn("skipping bad source", "file", path, "error", err)
			continue
		}
		all = append(all, records...)
		sources = append(sources, filepath.Base(path))
	}

	return m.Merge(all, sources), loadErrs
}

// MergeDir merges every CSV in dir whose name is not itself a master
// artifact, in sorted name order.
func (m *Merger) MergeDir(dir, masterPrefix string) (*Dataset, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{&types.MergeError{Source: dir, Err: err}}
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".csv" {
			continue
		}
		if masterPrefix != "" && strings.HasPrefix(name, masterPrefix) {
			continue
		}
		if strings.HasPrefix(name, "reviews_CLEAN") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, []error{&types.MergeError{Source: dir, Err: types.ErrNoDataset}}
	}
	m.logger.Info("merging directory", "dir", dir, "sources", len(paths))
	return m.MergeFiles(paths)
}

// Merge normalizes and deduplicates loaded records into a Dataset.
// Input order is preserved, which keeps the output deterministic for a
// given source list. Rules, in order:
//
//   - rows with an empty review body are dropped
//   - ratings are clamped to [1,5]; unknown (0) floors to 1
//   - the verified flag collapses to Yes/No
//   - exact-duplicate bodies keep the first occurrence
//   - review IDs are reassigned 1..N
func (m *Merger) Merge(records []types.ReviewRecord, sources []string) *Dataset {
	seen := make(map[string]struct{}, len(records))
	merged := make([]types.ReviewRecord, 0, len(records))

	var dropped, duplicates int
	for _, rec := range records {
		if rec.ReviewText == "" {
			dropped++
			continue
		}
		if _, dup := seen[rec.ReviewText]; dup {
			duplicates++
			continue
		}
		seen[rec.ReviewText] = struct{}{}

		rec.Rating = clampRating(rec.Rating)
		if rec.IsVerified() {
			rec.Verified = "Yes"
		} else {
			rec.Verified = "No"
		}
		rec.ProvisionalID = ""
		rec.ReviewID = len(merged) + 1
		merged = append(merged, rec)
	}

	m.logger.Info("merge complete",
		"input", len(records),
		"output", len(merged),
		"empty_dropped", dropped,
		"duplicates_dropped", duplicates)

	return &Dataset{
		Records:   merged,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
}

// MergeRun converts a collector run directly into a Dataset, giving
// every record the named source file.
func (m *Merger) MergeRun(result *types.RunResult, sourceName string) *Dataset {
	records := make([]types.ReviewRecord, len(result.Reviews))
	copy(records, result.Reviews)
	for i := range records {
		if records[i].SourceFile == "" {
			records[i].SourceFile = sourceName
		}
		if records[i].ScrapePhase == "" {
			records[i].ScrapePhase = inferPhase(sourceName)
		}
	}
	return m.Merge(records, []string{sourceName})
}

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

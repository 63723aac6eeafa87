package dataset

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reviewkart/reviewkart/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestReadSourceNormalizesHeaders(t *testing.T) {
	csvData := "Review Text,Stars,Product,User\n" +
		"Great phone with a superb camera,5,iPhone 15,Ravi\n"

	records, err := ReadSource("flipkart_reviews_electronics.csv", []byte(csvData), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ReviewText != "Great phone with a superb camera" {
		t.Errorf("review text: %q", r.ReviewText)
	}
	if r.Rating != 5 {
		t.Errorf("rating alias not applied: %d", r.Rating)
	}
	if r.ProductName != "iPhone 15" {
		t.Errorf("product alias not applied: %q", r.ProductName)
	}
	if r.Reviewer != "Ravi" {
		t.Errorf("reviewer alias not applied: %q", r.Reviewer)
	}
}

func TestReadSourceFilenameInference(t *testing.T) {
	csvData := "review_text,rating\nWashes clothes quietly and efficiently every single time,4\n"

	records, err := ReadSource("phase2_home_appliance_reviews.csv", []byte(csvData), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := records[0]
	if r.ScrapePhase != "Phase 2" {
		t.Errorf("expected Phase 2, got %q", r.ScrapePhase)
	}
	if r.Category != "Home Appliances" {
		t.Errorf("expected Home Appliances, got %q", r.Category)
	}
	if r.SourceFile != "phase2_home_appliance_reviews.csv" {
		t.Errorf("source file: %q", r.SourceFile)
	}

	records, err = ReadSource("shoe_reviews.csv", []byte(csvData), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Category != "Shoes" || records[0].ScrapePhase != "Phase 1" {
		t.Errorf("got category %q phase %q", records[0].Category, records[0].ScrapePhase)
	}
}

func TestReadSourceRowCategoryWins(t *testing.T) {
	csvData := "review_text,category\nComfortable for long runs and very light,Sportswear\n"

	records, err := ReadSource("shoe_reviews.csv", []byte(csvData), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Category != "Sportswear" {
		t.Errorf("row-level category must win over filename inference: %q", records[0].Category)
	}
}

func TestReadSourceEncodings(t *testing.T) {
	body := "review_text,rating\nGood quality fabric and stitching,4\n"

	// UTF-8 with BOM.
	withBOM := append(append([]byte{}, utf8BOM...), []byte(body)...)
	records, err := ReadSource("a.csv", withBOM, testLogger)
	if err != nil {
		t.Fatalf("BOM file: %v", err)
	}
	if records[0].ReviewText != "Good quality fabric and stitching" {
		t.Errorf("BOM not stripped: %q", records[0].ReviewText)
	}

	// Latin-1 byte that is invalid UTF-8.
	latin := []byte("review_text,rating\ncaf\xe9 grinder works well for espresso,5\n")
	records, err = ReadSource("b.csv", latin, testLogger)
	if err != nil {
		t.Fatalf("latin-1 file: %v", err)
	}
	if !strings.Contains(records[0].ReviewText, "café") {
		t.Errorf("latin-1 not decoded: %q", records[0].ReviewText)
	}
}

func TestReadSourceMissingTextColumn(t *testing.T) {
	_, err := ReadSource("bad.csv", []byte("rating,product_name\n5,thing\n"), testLogger)
	if err == nil {
		t.Fatal("expected error for file without review_text column")
	}
	var mergeErr *types.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("expected MergeError, got %T", err)
	}
}

func TestMergeNormalization(t *testing.T) {
	records := []types.ReviewRecord{
		{ReviewText: "Excellent build quality", Rating: 0, Verified: "true", ProvisionalID: "x_0_1"},
		{ReviewText: "Battery drains too fast", Rating: 7, Verified: "nope"},
		{ReviewText: "Excellent build quality", Rating: 5, Verified: "yes"},
		{ReviewText: "", Rating: 3},
		{ReviewText: "Decent for the price", Rating: 3, Verified: "1"},
	}

	ds := NewMerger(testLogger).Merge(records, []string{"run.csv"})

	if len(ds.Records) != 3 {
		t.Fatalf("expected 3 records after dedup and empty drop, got %d", len(ds.Records))
	}
	for i, r := range ds.Records {
		if r.ReviewID != i+1 {
			t.Errorf("record %d: expected sequential id %d, got %d", i, i+1, r.ReviewID)
		}
		if r.Rating < 1 || r.Rating > 5 {
			t.Errorf("record %d: rating %d out of range", i, r.Rating)
		}
		if r.Verified != "Yes" && r.Verified != "No" {
			t.Errorf("record %d: verified %q not normalized", i, r.Verified)
		}
		if r.ProvisionalID != "" {
			t.Errorf("record %d: provisional id must be discarded", i)
		}
	}

	// Unknown rating floors to 1, overflow clamps to 5.
	if ds.Records[0].Rating != 1 {
		t.Errorf("zero rating should floor to 1, got %d", ds.Records[0].Rating)
	}
	if ds.Records[1].Rating != 5 {
		t.Errorf("rating 7 should clamp to 5, got %d", ds.Records[1].Rating)
	}

	// Duplicate keeps the first occurrence.
	if ds.Records[0].Verified != "Yes" {
		t.Errorf("first duplicate occurrence must win, got verified %q", ds.Records[0].Verified)
	}
}

func TestMergeIdempotent(t *testing.T) {
	records := []types.ReviewRecord{
		{ReviewText: "Solid product overall", Rating: 4, Verified: "yes"},
		{ReviewText: "Would not recommend", Rating: 2, Verified: "no"},
	}
	m := NewMerger(testLogger)

	once := m.Merge(records, nil)
	twice := m.Merge(once.Records, nil)

	if len(once.Records) != len(twice.Records) {
		t.Fatalf("re-merging changed size: %d vs %d", len(once.Records), len(twice.Records))
	}
	for i := range once.Records {
		if once.Records[i].ReviewID != twice.Records[i].ReviewID {
			t.Errorf("record %d: id changed on re-merge", i)
		}
	}
}

func TestMergeFilesSkipsBadSource(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "flipkart_reviews.csv")
	if err := os.WriteFile(good, []byte("review_text,rating\nWorks as advertised and arrived early,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "notes.csv")
	if err := os.WriteFile(bad, []byte("rating\n5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, errs := NewMerger(testLogger).MergeFiles([]string{good, bad, filepath.Join(dir, "missing.csv")})
	if len(ds.Records) != 1 {
		t.Fatalf("expected 1 record from the good source, got %d", len(ds.Records))
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 source errors, got %d: %v", len(errs), errs)
	}
}

func TestPersistAndLoadLatestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewMerger(testLogger)

	records := []types.ReviewRecord{
		{Category: "Electronics", ProductName: "iPhone 15", Rating: 5,
			ReviewText: "Camera quality is outstanding in low light", Reviewer: "Ravi",
			Verified: "yes", ScrapePhase: "Phase 1", SourceFile: "run.csv"},
		{Category: "Shoes", ProductName: "Nike Revolution", Rating: 3,
			ReviewText: "Sole wore out within two months of daily use", Reviewer: "Customer",
			Verified: "no", ScrapePhase: "Phase 2", SourceFile: "run.csv"},
	}
	ds := m.Merge(records, []string{"run.csv"})

	art, err := m.Persist(ds, dir, "reviews_MASTER_DATASET")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	for _, path := range []string{art.MasterCSV, art.CleanCSV, art.JSON, art.Summary} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", path, err)
		}
	}

	loaded, err := LoadLatest(dir, "reviews_MASTER_DATASET", testLogger)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if len(loaded.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded.Records))
	}
	for i, r := range loaded.Records {
		if r.ReviewID != i+1 {
			t.Errorf("record %d: id %d not preserved", i, r.ReviewID)
		}
	}
	if loaded.Records[0].Category != "Electronics" || loaded.Records[1].ProductName != "Nike Revolution" {
		t.Errorf("fields not preserved: %+v", loaded.Records)
	}

	summary := RenderSummary(loaded)
	if !strings.Contains(summary, "Total reviews:      2") {
		t.Errorf("summary missing total:\n%s", summary)
	}
}

func TestLoadLatestNoDataset(t *testing.T) {
	_, err := LoadLatest(t.TempDir(), "reviews_MASTER_DATASET", testLogger)
	if !errors.Is(err, types.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
}

func TestMergeDirSkipsArtifacts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("run_one.csv", "review_text,rating\nVery happy with this purchase overall,5\n")
	write("run_two.csv", "review_text,rating\nStopped charging after a week of use,1\n")
	write("reviews_MASTER_DATASET_20250101_000000.csv", "review_text,rating\nold merged row that must be ignored,3\n")
	write("reviews_CLEAN_20250101_000000.csv", "review_text,rating\nold clean row that must be ignored,3\n")
	write("notes.txt", "not a csv")

	ds, errs := NewMerger(testLogger).MergeDir(dir, "reviews_MASTER_DATASET")
	if len(errs) != 0 {
		t.Fatalf("unexpected source errors: %v", errs)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("expected 2 records from run exports only, got %d", len(ds.Records))
	}
}

func TestSummarizeHistogramAlwaysComplete(t *testing.T) {
	ds := &Dataset{Records: []types.ReviewRecord{
		{Rating: 5, Category: "Electronics", ProductName: "iPhone 15", ReviewText: "x"},
	}}
	s := ds.Summarize()
	for rating := 1; rating <= 5; rating++ {
		if _, ok := s.Ratings[rating]; !ok {
			t.Errorf("histogram missing key %d", rating)
		}
	}
	if s.Ratings[5] != 1 || s.Ratings[1] != 0 {
		t.Errorf("histogram counts wrong: %v", s.Ratings)
	}
}

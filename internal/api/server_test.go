package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/reviewkart/reviewkart/internal/dataset"
	"github.com/reviewkart/reviewkart/internal/query"
	"github.com/reviewkart/reviewkart/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestServer(records []types.ReviewRecord) *Server {
	svc := query.NewService("", "", testLogger)
	if records != nil {
		svc.SetDataset(&dataset.Dataset{Records: records})
	}
	return NewServer(svc, 0, testLogger)
}

func testRecords() []types.ReviewRecord {
	var records []types.ReviewRecord
	for i := 1; i <= 12; i++ {
		category := "Electronics"
		product := "iPhone 15"
		if i > 8 {
			category = "Shoes"
			product = "Nike Revolution"
		}
		records = append(records, types.ReviewRecord{
			ReviewID:    i,
			Category:    category,
			ProductName: product,
			Rating:      (i % 5) + 1,
			ReviewText:  fmt.Sprintf("Review body %d with some detail", i),
			Reviewer:    "Ravi",
			Verified:    "Yes",
		})
	}
	return records
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: response is not JSON: %v\n%s", path, err, rec.Body.String())
	}
	return rec, body
}

func TestHealthReportsDatasetState(t *testing.T) {
	s := newTestServer(nil)
	rec, body := doGet(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health must always be 200, got %d", rec.Code)
	}
	if body["dataset_loaded"] != false {
		t.Errorf("expected dataset_loaded=false, got %v", body["dataset_loaded"])
	}

	s = newTestServer(testRecords())
	_, body = doGet(t, s, "/health")
	if body["dataset_loaded"] != true {
		t.Errorf("expected dataset_loaded=true, got %v", body["dataset_loaded"])
	}
}

func TestReviewsBeforeLoadIs404(t *testing.T) {
	s := newTestServer(nil)
	for _, path := range []string{"/reviews", "/reviews/1", "/stats", "/categories", "/products", "/search?q=phone"} {
		rec, _ := doGet(t, s, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s before load: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestReviewsPaginationAndFilters(t *testing.T) {
	s := newTestServer(testRecords())

	rec, body := doGet(t, s, "/reviews?page=2&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body["total"].(float64) != 12 || body["page"].(float64) != 2 {
		t.Errorf("pagination meta wrong: %v", body)
	}
	if n := len(body["reviews"].([]any)); n != 2 {
		t.Errorf("page 2 of 12 with limit 10: expected 2, got %d", n)
	}

	_, body = doGet(t, s, "/reviews?category=Shoes&limit=100")
	if body["total"].(float64) != 4 {
		t.Errorf("category filter: %v", body["total"])
	}

	_, body = doGet(t, s, "/reviews?rating=3&limit=100")
	if body["total"].(float64) != 3 {
		t.Errorf("exact rating filter: %v", body["total"])
	}

	_, body = doGet(t, s, "/reviews?min_rating=4&limit=100")
	if body["total"].(float64) != 4 {
		t.Errorf("min rating filter: %v", body["total"])
	}

	_, body = doGet(t, s, "/reviews?verified=yes&limit=100")
	if body["total"].(float64) != 12 {
		t.Errorf("verified filter: %v", body["total"])
	}
}

func TestReviewByID(t *testing.T) {
	s := newTestServer(testRecords())

	rec, body := doGet(t, s, "/reviews/9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body["product_name"] != "Nike Revolution" {
		t.Errorf("wrong record: %v", body)
	}

	rec, _ = doGet(t, s, "/reviews/999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id: expected 404, got %d", rec.Code)
	}

	rec, _ = doGet(t, s, "/reviews/abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-integer id: expected 400, got %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(testRecords())

	// A too-short query is not an error, it just matches nothing.
	rec, body := doGet(t, s, "/search?q=x")
	if rec.Code != http.StatusOK {
		t.Errorf("short query: expected 200, got %d", rec.Code)
	}
	if body["count"].(float64) != 0 {
		t.Errorf("short query must match nothing, got %v", body["count"])
	}

	rec, body = doGet(t, s, "/search?q=nike")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body["count"].(float64) != 4 {
		t.Errorf("expected 4 hits, got %v", body["count"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(testRecords())

	rec, body := doGet(t, s, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	hist := body["rating_histogram"].(map[string]any)
	for _, key := range []string{"1", "2", "3", "4", "5"} {
		if _, ok := hist[key]; !ok {
			t.Errorf("histogram missing key %q: %v", key, hist)
		}
	}
	if body["total_reviews"].(float64) != 12 {
		t.Errorf("total: %v", body["total_reviews"])
	}
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(testRecords())

	_, body := doGet(t, s, "/categories")
	if n := len(body["categories"].([]any)); n != 2 {
		t.Errorf("categories: %v", body["categories"])
	}

	_, body = doGet(t, s, "/products")
	if n := len(body["products"].([]any)); n != 2 {
		t.Errorf("products: %v", body["products"])
	}
}

func TestCORSHeader(t *testing.T) {
	s := newTestServer(testRecords())
	rec, _ := doGet(t, s, "/health")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

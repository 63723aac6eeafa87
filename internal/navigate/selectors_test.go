package navigate

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func makeDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestProductLinkCascade(t *testing.T) {
	// Primary selector generation present.
	doc := makeDoc(t, `<a class="_1fQZEK" href="/apple-iphone-15/p/itm123?pid=MOB1">iPhone 15</a>`)
	href, ok := ProductLink(doc)
	if !ok || !strings.Contains(href, "/p/itm123") {
		t.Fatalf("expected product link, got %q ok=%v", href, ok)
	}

	// Only the generic href pattern matches.
	doc = makeDoc(t, `
		<a class="unknown-gen" href="/some-product/p/itm456">hit</a>
		<a class="unknown-gen" href="/help/contact">miss</a>`)
	href, ok = ProductLink(doc)
	if !ok || !strings.Contains(href, "/p/itm456") {
		t.Fatalf("expected generic fallback link, got %q ok=%v", href, ok)
	}

	// A known class whose href is not a product path must be skipped.
	doc = makeDoc(t, `<a class="s1Q9rs" href="/offers/today">not a product</a>`)
	if _, ok := ProductLink(doc); ok {
		t.Fatal("expected no product link for non-product href")
	}
}

func TestReviewsLinkCascade(t *testing.T) {
	doc := makeDoc(t, `<a href="/apple-iphone-15/product-reviews/itm123">All reviews</a>`)
	href, ok := ReviewsLink(doc)
	if !ok || !strings.Contains(href, "/product-reviews/") {
		t.Fatalf("expected reviews link, got %q ok=%v", href, ok)
	}

	doc = makeDoc(t, `<a class="_3UAT2v" href="/r/itm123">ratings</a>`)
	if _, ok := ReviewsLink(doc); !ok {
		t.Fatal("expected legacy-class reviews link to match")
	}

	doc = makeDoc(t, `<a href="/cart">cart</a>`)
	if _, ok := ReviewsLink(doc); ok {
		t.Fatal("expected no reviews link")
	}
}

func TestSynthesizeReviewsURL(t *testing.T) {
	got, ok := SynthesizeReviewsURL("https://www.flipkart.com/apple-iphone-15/p/itm123?pid=MOB1&lid=x")
	if !ok {
		t.Fatal("expected synthesis to succeed")
	}
	want := "https://www.flipkart.com/apple-iphone-15/product-reviews/itm123"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if _, ok := SynthesizeReviewsURL("https://www.flipkart.com/offers/today"); ok {
		t.Error("expected synthesis to fail without /p/ segment")
	}
}

func TestResolveHref(t *testing.T) {
	got := ResolveHref("https://www.flipkart.com", "/x/p/itm1")
	if got != "https://www.flipkart.com/x/p/itm1" {
		t.Errorf("relative href not resolved: %q", got)
	}

	abs := "https://www.flipkart.com/y/p/itm2"
	if got := ResolveHref("https://www.flipkart.com", abs); got != abs {
		t.Errorf("absolute href changed: %q", got)
	}
}

func TestBlocksFromHTMLContainerStrategy(t *testing.T) {
	html := `
	<div class="_27M-vq">5★ Excellent phone, certified buyer. Battery easily lasts a full day.</div>
	<div class="_27M-vq">1★ Stopped working after a week, very disappointed with this purchase.</div>`

	blocks := BlocksFromHTML(html, 10, testLogger)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !strings.Contains(blocks[0].Text, "Excellent phone") {
		t.Errorf("unexpected first block: %q", blocks[0].Text)
	}
	if blocks[0].HTML == "" {
		t.Error("expected outer HTML captured for block")
	}
}

func TestBlocksFromHTMLXPathStrategy(t *testing.T) {
	// No known container class; the xpath class-substring strategy
	// should pick these up.
	html := `
	<div class="customer-review-card">4★ Good value for money and the display quality is impressive.</div>`

	blocks := BlocksFromHTML(html, 10, testLogger)
	if len(blocks) == 0 {
		t.Fatal("expected xpath strategy to find blocks")
	}
	if !strings.Contains(blocks[0].Text, "Good value") {
		t.Errorf("unexpected block text: %q", blocks[0].Text)
	}
}

func TestBlocksFromHTMLGenericFallback(t *testing.T) {
	long := strings.Repeat("word ", 150) // > 500 chars, excluded
	html := `
	<div class="z9k">` + strings.Repeat("decent product overall ", 4) + `</div>
	<div class="z9k">tiny</div>
	<div class="z9k">` + long + `</div>`

	blocks := BlocksFromHTML(html, 10, testLogger)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 fallback block within [50,500] chars, got %d", len(blocks))
	}
}

func TestBlocksFromHTMLDedupAndCap(t *testing.T) {
	card := `<div class="_27M-vq">3★ Average product, nothing special but does the job fine.</div>`
	html := strings.Repeat(card, 5) +
		`<div class="_27M-vq">5★ Second distinct review body with enough text to stand alone.</div>`

	blocks := BlocksFromHTML(html, 10, testLogger)
	if len(blocks) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 blocks, got %d", len(blocks))
	}

	blocks = BlocksFromHTML(html, 1, testLogger)
	if len(blocks) != 1 {
		t.Fatalf("expected cap of 1, got %d", len(blocks))
	}
}

func TestBlocksFromHTMLEmptyPage(t *testing.T) {
	blocks := BlocksFromHTML("<html><body><p>hi</p></body></html>", 10, testLogger)
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
}

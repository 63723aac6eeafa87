package navigate

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Selector cascades for the markup generations we have seen. Ordered
// newest-first; the first selector producing a usable result wins.
var (
	productLinkSelectors = []string{
		"a._1fQZEK", "a.CGtC98", "a.IRpwTa", "a.s1Q9rs",
		"a._2rpwqI", "a._1UoZlX", "a[href*='/p/']", "a[href*='/itm/']",
	}

	reviewsLinkSelectors = []string{
		"a[href*='/product-reviews/']",
		"a._3UAT2v",
		"div._3v8VuN a",
		"a[class*='review']",
	}

	popupCloseSelector = "button._2KpZ6l._2doB4z"
)

// Bounds for the generic "looks like a review" text-length fallback.
const (
	genericBlockMinLen = 50
	genericBlockMaxLen = 500
)

// ProductLink scans search results for the first link that points at a
// product page (/p/ or /itm/ path), trying each selector in order.
func ProductLink(doc *goquery.Document) (string, bool) {
	for _, sel := range productLinkSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if ok && (strings.Contains(href, "/p/") || strings.Contains(href, "/itm/")) {
				found = href
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// ReviewsLink locates the reviews-page link on a product page.
func ReviewsLink(doc *goquery.Document) (string, bool) {
	for _, sel := range reviewsLinkSelectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if ok && href != "" {
			return href, true
		}
	}
	return "", false
}

// SynthesizeReviewsURL derives the reviews URL from a product URL by
// path substitution: /p/<id> -> /product-reviews/<id>. Query strings
// are dropped first.
func SynthesizeReviewsURL(productURL string) (string, bool) {
	base := productURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	if !strings.Contains(base, "/p/") {
		return "", false
	}
	return strings.Replace(base, "/p/", "/product-reviews/", 1), true
}

// ResolveHref makes a relative link absolute against the storefront.
func ResolveHref(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// blockStrategy is one rule in the block-extraction cascade.
type blockStrategy struct {
	name string
	fn   func(html string, doc *goquery.Document) []types.RawBlock
}

// blockStrategies are tried in order; the first strategy returning a
// non-empty set wins. The generic length heuristic is last because it
// matches almost anything.
var blockStrategies = []blockStrategy{
	{"css_containers", cssContainerBlocks},
	{"xpath_review_class", xpathReviewBlocks},
	{"generic_length", genericLengthBlocks},
}

// reviewContainerSelectors match whole review cards.
var reviewContainerSelectors = []string{
	"div._27M-vq",
	"div._16PBlm",
	"div.col._2wzgFH",
	"div.gtm58k",
	"div.gMdEY7",
	"div[data-id]",
}

func cssContainerBlocks(_ string, doc *goquery.Document) []types.RawBlock {
	for _, sel := range reviewContainerSelectors {
		var blocks []types.RawBlock
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			outer, _ := goquery.OuterHtml(s)
			blocks = append(blocks, types.RawBlock{Text: text, HTML: outer})
		})
		if len(blocks) > 0 {
			return blocks
		}
	}
	return nil
}

// xpathReviewBlocks catches layouts where the card class mentions
// "review" anywhere in its class list.
func xpathReviewBlocks(html string, _ *goquery.Document) []types.RawBlock {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(doc, "//div[contains(@class,'review')]")
	if err != nil {
		return nil
	}
	var blocks []types.RawBlock
	for _, n := range nodes {
		text := strings.TrimSpace(htmlquery.InnerText(n))
		if text == "" {
			continue
		}
		blocks = append(blocks, types.RawBlock{
			Text: text,
			HTML: htmlquery.OutputHTML(n, true),
		})
	}
	return blocks
}

// genericLengthBlocks is the last-resort heuristic: any container whose
// rendered text is plausibly review-sized.
func genericLengthBlocks(_ string, doc *goquery.Document) []types.RawBlock {
	var blocks []types.RawBlock
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) < genericBlockMinLen || len(text) > genericBlockMaxLen {
			return
		}
		outer, _ := goquery.OuterHtml(s)
		blocks = append(blocks, types.RawBlock{Text: text, HTML: outer})
	})
	return blocks
}

// BlocksFromHTML runs the block cascade over a rendered page, dedupes
// on exact text, and caps the result. It is pure DOM work, separated
// from browser I/O so it is testable on static HTML.
func BlocksFromHTML(html string, max int, logger *slog.Logger) []types.RawBlock {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("block extraction: unparseable HTML", "error", err)
		return nil
	}

	var raw []types.RawBlock
	for _, strat := range blockStrategies {
		raw = strat.fn(html, doc)
		if len(raw) > 0 {
			logger.Debug("block strategy matched", "strategy", strat.name, "blocks", len(raw))
			break
		}
		logger.Debug("block strategy empty", "strategy", strat.name)
	}

	seen := make(map[string]struct{}, len(raw))
	blocks := make([]types.RawBlock, 0, len(raw))
	for _, b := range raw {
		if _, dup := seen[b.Text]; dup {
			continue
		}
		seen[b.Text] = struct{}{}
		blocks = append(blocks, b)
		if max > 0 && len(blocks) >= max {
			break
		}
	}
	return blocks
}

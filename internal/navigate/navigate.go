package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/reviewkart/reviewkart/internal/config"
	"github.com/reviewkart/reviewkart/internal/types"
)

// Navigator resolves a target's reviews page and harvests raw blocks
// from it. All failures short of a dead browser degrade to a typed
// error for the current target only.
type Navigator struct {
	session *Session
	cfg     *config.Scraper
	logger  *slog.Logger
}

// New creates a Navigator bound to an existing browser session.
func New(session *Session, cfg *config.Scraper, logger *slog.Logger) *Navigator {
	return &Navigator{
		session: session,
		cfg:     cfg,
		logger:  logger.With("component", "navigator"),
	}
}

// ResolveReviewsURL produces the reviews-page URL for a target.
//
// Direct mode: the target URL already points at a reviews page.
// Product mode: the target URL is a product page; the reviews link is
// located there or synthesized by path substitution.
// Discovery mode: no URL at all; the target name is searched and the
// first product hit is followed.
func (n *Navigator) ResolveReviewsURL(ctx context.Context, target types.ScrapeTarget) (string, error) {
	if strings.Contains(target.URL, "/product-reviews/") {
		return target.URL, nil
	}

	productURL := target.URL
	if productURL == "" {
		found, err := n.discoverProduct(ctx, target.Name)
		if err != nil {
			return "", err
		}
		productURL = found
	}

	return n.reviewsURLFromProduct(ctx, target.Name, productURL)
}

// discoverProduct searches the storefront for the target name and
// returns the first product link.
func (n *Navigator) discoverProduct(ctx context.Context, keyword string) (string, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s", n.cfg.BaseURL, url.QueryEscape(keyword))
	n.logger.Info("searching", "keyword", keyword, "url", searchURL)

	doc, err := n.renderPage(ctx, searchURL, 1)
	if err != nil {
		return "", &types.NavigationError{Target: keyword, Step: "search", Err: err}
	}

	href, ok := ProductLink(doc)
	if !ok {
		return "", &types.NavigationError{Target: keyword, Step: "search", Err: types.ErrNoProductFound}
	}
	return ResolveHref(n.cfg.BaseURL, href), nil
}

// reviewsURLFromProduct loads the product page, looks for a reviews
// link, and falls back to the /p/ -> /product-reviews/ substitution.
func (n *Navigator) reviewsURLFromProduct(ctx context.Context, target, productURL string) (string, error) {
	doc, err := n.renderPage(ctx, productURL, 1)
	if err != nil {
		return "", &types.NavigationError{Target: target, Step: "product", Err: err}
	}

	if href, ok := ReviewsLink(doc); ok {
		return ResolveHref(n.cfg.BaseURL, href), nil
	}

	if synth, ok := SynthesizeReviewsURL(productURL); ok {
		n.logger.Debug("reviews link not found, synthesized", "url", synth)
		return synth, nil
	}

	return "", &types.NavigationError{Target: target, Step: "product", Err: types.ErrNoReviewsFound}
}

// CollectBlocks loads the reviews page, settles, scrolls through the
// lazy-load sections, and runs the block cascade. A page that yields
// zero blocks returns ErrNoReviewsFound.
func (n *Navigator) CollectBlocks(ctx context.Context, target, reviewsURL string) ([]types.RawBlock, error) {
	doc, err := n.renderPage(ctx, reviewsURL, n.cfg.ScrollSteps)
	if err != nil {
		return nil, &types.NavigationError{Target: target, Step: "reviews", Err: err}
	}

	html, err := doc.Html()
	if err != nil {
		return nil, &types.NavigationError{Target: target, Step: "blocks", Err: err}
	}

	blocks := BlocksFromHTML(html, n.cfg.MaxReviewsPerProduct, n.logger)
	if len(blocks) == 0 {
		return nil, &types.NavigationError{Target: target, Step: "blocks", Err: types.ErrNoReviewsFound}
	}

	n.logger.Info("blocks collected", "target", target, "count", len(blocks))
	return blocks, nil
}

// renderPage navigates, waits for the page to settle, dismisses any
// consent popup, performs the scroll loop, and returns the parsed DOM.
func (n *Navigator) renderPage(ctx context.Context, pageURL string, scrolls int) (*goquery.Document, error) {
	page, err := n.session.NewPage()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			n.logger.Debug("page close failed", "error", cerr)
		}
	}()

	page = page.Context(ctx)

	if err := page.Timeout(n.cfg.PageTimeout).Navigate(pageURL); err != nil {
		if ctx.Err() != nil || strings.Contains(err.Error(), "context deadline") {
			return nil, fmt.Errorf("%w: %s", types.ErrNavigationTimeout, pageURL)
		}
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	if err := page.Timeout(n.cfg.PageTimeout).WaitStable(300 * time.Millisecond); err != nil {
		n.logger.Warn("page stability timeout, continuing", "url", pageURL)
	}
	time.Sleep(n.cfg.SettleDelay)

	n.dismissPopup(page)

	for i := 0; i < scrolls; i++ {
		js := fmt.Sprintf("() => window.scrollTo(0, %d)", 800*(i+1))
		if _, err := page.Timeout(n.cfg.ScriptTimeout).Eval(js); err != nil {
			n.logger.Debug("scroll step failed", "step", i, "error", err)
			break
		}
		time.Sleep(n.cfg.ScrollDelay)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// dismissPopup opportunistically closes the login/consent dialog. The
// dialog being absent is the normal case, not an error.
func (n *Navigator) dismissPopup(page *rod.Page) {
	el, err := page.Timeout(n.cfg.PopupWait).Element(popupCloseSelector)
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		n.logger.Debug("popup dismiss click failed", "error", err)
		return
	}
	n.logger.Debug("popup dismissed")
	time.Sleep(time.Second)
}

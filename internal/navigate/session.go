// Package navigate drives a headless browser through the
// search -> product -> reviews page sequence and extracts candidate
// review blocks from the rendered DOM.
package navigate

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/reviewkart/reviewkart/internal/config"
	"github.com/reviewkart/reviewkart/internal/types"
)

// Session owns one browser instance. The collector reuses a session
// across targets and rebuilds it only after a fatal driver failure.
type Session struct {
	browser *rod.Browser
	cfg     *config.Scraper
	logger  *slog.Logger
}

// NewSession launches a Chromium instance and connects to it. Launch or
// connect failure is the one fatal error class in the whole pipeline.
func NewSession(cfg *config.Scraper, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-extensions").
		Set("disable-infobars").
		Set("window-size", "1920,1080").
		Set("disable-blink-features", "AutomationControlled")

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", types.ErrDriverFatal, err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect: %v", types.ErrDriverFatal, err)
	}

	s := &Session{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_session"),
	}
	s.logger.Info("browser session ready", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return s, nil
}

// NewPage opens a fresh page, with stealth patches when configured.
func (s *Session) NewPage() (*rod.Page, error) {
	var page *rod.Page
	var err error

	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %v", types.ErrDriverFatal, err)
	}

	if s.cfg.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent})
		if err != nil {
			s.logger.Warn("failed to set user agent", "error", err)
		}
	}
	return page, nil
}

// Close shuts down the browser.
func (s *Session) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

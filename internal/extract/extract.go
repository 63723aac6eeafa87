// Package extract derives structured review fields from raw page blocks.
//
// Every field is resolved by an ordered list of strategies; the first
// strategy that produces a value wins and later ones are not tried.
// Extraction never fails: a block whose fields all miss still yields a
// record with documented defaults.
package extract

import (
	"log/slog"
	"strings"

	"github.com/reviewkart/reviewkart/internal/types"
)

// Defaults used when no strategy matches.
const (
	// RatingUnknown marks a rating that could not be parsed. It is a
	// sentinel, not a valid score; the merger clamps it into [1,5].
	RatingUnknown = 0

	DefaultReviewer = "Customer"
	DefaultVerified = "No"
)

// Extractor turns RawBlocks into ReviewRecord fields.
type Extractor struct {
	logger    *slog.Logger
	textLimit int
}

// New creates an Extractor. textLimit caps the review body length.
func New(logger *slog.Logger, textLimit int) *Extractor {
	if textLimit <= 0 {
		textLimit = 500
	}
	return &Extractor{
		logger:    logger.With("component", "extractor"),
		textLimit: textLimit,
	}
}

// Extract derives best-effort review fields from one block. It never
// returns an error: unparseable fields fall back to their defaults and
// the record is emitted regardless.
func (e *Extractor) Extract(block types.RawBlock) types.ReviewRecord {
	text := strings.TrimSpace(block.Text)

	rec := types.ReviewRecord{
		Rating:   e.extractRating(text),
		Reviewer: e.extractReviewer(text),
		Date:     e.extractDate(text),
		Verified: extractVerified(text),
	}
	rec.ReviewText = e.extractBody(block, text)
	return rec
}

func (e *Extractor) extractRating(text string) int {
	for _, s := range ratingStrategies {
		if rating, ok := s.fn(text); ok {
			e.logger.Debug("rating strategy matched", "strategy", s.name, "rating", rating)
			return rating
		}
	}
	e.logger.Debug("no rating strategy matched")
	return RatingUnknown
}

func (e *Extractor) extractReviewer(text string) string {
	for _, s := range reviewerStrategies {
		if name, ok := s.fn(text); ok {
			e.logger.Debug("reviewer strategy matched", "strategy", s.name)
			return truncate(name, 100)
		}
	}
	return DefaultReviewer
}

func (e *Extractor) extractDate(text string) string {
	for _, line := range splitLines(text) {
		if lineHasDateCue(line) {
			return truncate(line, 50)
		}
	}
	return ""
}

// extractVerified checks for textual certification cues anywhere in the
// block. This is a heuristic, not a structured signal.
func extractVerified(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "certified") || strings.Contains(lower, "verified") {
		return "Yes"
	}
	return DefaultVerified
}

func (e *Extractor) extractBody(block types.RawBlock, text string) string {
	// Structurally identified content node beats text heuristics.
	if body, ok := bodyFromHTML(block.HTML); ok {
		return e.clean(body)
	}

	// Longest paragraph, blocks split on blank lines.
	if p := longestParagraph(text); p != "" {
		return e.clean(p)
	}

	return e.clean(text)
}

// clean flattens newlines, collapses runs of whitespace, and truncates
// to the configured cap.
func (e *Extractor) clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, e.textLimit)
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func longestParagraph(text string) string {
	var longest string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if len(p) > len(longest) {
			longest = p
		}
	}
	return longest
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up so a multi-byte rune is not cut in half.
	for limit > 0 && (s[limit]&0xC0) == 0x80 {
		limit--
	}
	return s[:limit]
}

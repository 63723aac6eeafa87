package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ratingStrategy is one rule in the rating cascade. ok=false means the
// rule found nothing and the next rule should be tried.
type ratingStrategy struct {
	name string
	fn   func(text string) (int, bool)
}

var (
	digitStarRe  = regexp.MustCompile(`([1-5])\s*★`)
	starRunRe    = regexp.MustCompile(`★+`)
	wordStarRe   = regexp.MustCompile(`(?i)\b([1-5])\s*star`)
	uppercaseRe  = regexp.MustCompile(`^[A-Z]`)
	yearRe       = regexp.MustCompile(`\b(2023|2024|2025|2026)\b`)
	readMoreRe   = regexp.MustCompile(`(?i)read more`)
)

// ratingStrategies in priority order: an explicit "<n>★" marker beats a
// bare glyph run, which beats the textual "<n> star" form.
var ratingStrategies = []ratingStrategy{
	{"digit_star", func(text string) (int, bool) {
		if m := digitStarRe.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n, true
		}
		return 0, false
	}},
	{"star_run", func(text string) (int, bool) {
		longest := 0
		for _, run := range starRunRe.FindAllString(text, -1) {
			if n := strings.Count(run, "★"); n > longest {
				longest = n
			}
		}
		if longest >= 1 && longest <= 5 {
			return longest, true
		}
		return 0, false
	}},
	{"word_star", func(text string) (int, bool) {
		if m := wordStarRe.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n, true
		}
		return 0, false
	}},
}

// reviewerStrategy is one rule in the reviewer cascade.
type reviewerStrategy struct {
	name string
	fn   func(text string) (string, bool)
}

// reviewerKeywords mark lines that are review content or chrome rather
// than a name.
var reviewerKeywords = []string{"star", "review", "rating", "helpful", "report"}

var reviewerStrategies = []reviewerStrategy{
	// The "certified buyer" line carries the reviewer on most layouts,
	// so it wins when present.
	{"certified_line", func(text string) (string, bool) {
		for _, line := range splitLines(text) {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "certified") || strings.Contains(lower, "buyer") {
				line = readMoreRe.ReplaceAllString(line, "")
				line = strings.TrimSpace(strings.ReplaceAll(line, "...", ""))
				if line != "" {
					return line, true
				}
			}
		}
		return "", false
	}},
	{"short_name_line", func(text string) (string, bool) {
		for _, line := range splitLines(text) {
			if len(line) >= 30 || !uppercaseRe.MatchString(line) {
				continue
			}
			lower := strings.ToLower(line)
			keyword := false
			for _, kw := range reviewerKeywords {
				if strings.Contains(lower, kw) {
					keyword = true
					break
				}
			}
			if !keyword && !strings.Contains(line, "★") {
				return line, true
			}
		}
		return "", false
	}},
}

// monthRe is word-anchored so "Decent" or "Maybe" do not read as month
// abbreviations.
var monthRe = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`)

var relativeDateCues = []string{"days ago", "month ago", "months ago", "year ago", "years ago"}

// lineHasDateCue reports whether a line looks like a review date: a
// month abbreviation, a recent year, or a relative-time phrase.
func lineHasDateCue(line string) bool {
	if monthRe.MatchString(line) {
		return true
	}
	if yearRe.MatchString(line) {
		return true
	}
	lower := strings.ToLower(line)
	for _, cue := range relativeDateCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// contentSelectors identify the review body node across known layout
// generations, newest first.
var contentSelectors = []string{
	"div.t-ZTKy",
	"div[data-test='review-content']",
	"div._6K-7Co",
	"div.review-text",
	"div._2wLlW0",
}

// bodyFromHTML extracts the review body from a structurally identified
// content node, when the block carries DOM structure.
func bodyFromHTML(html string) (string, bool) {
	if html == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

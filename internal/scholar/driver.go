// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar drives Google Scholar result pages: it issues a
// search for a citation, scans the results for a PDF-style link, and
// triggers the download through the browser collaborator.
package scholar

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/scholar-fetch/internal/browser"
	"github.com/pdiddy/scholar-fetch/pkg/types"
)

// BaseURL is the Scholar search endpoint. Declared as a var so tests
// can substitute a fixture address.
var BaseURL = "https://scholar.google.com/scholar?q="

const (
	// resultsSelector matches the container Scholar renders one search
	// result into.
	resultsSelector = ".gs_r"

	// pdfGroupSelector matches anchors inside the sidebar grouping
	// Scholar uses for full-text links.
	pdfGroupSelector = "div.gs_or_ggsm a"

	// pdfMarker is the label Scholar puts on full-text PDF links.
	pdfMarker = "[PDF]"

	// searchesPerMinute caps the navigation rate independently of the
	// random delays layered on top.
	searchesPerMinute = 6
)

// Outcome classifies a fetch attempt.
type Outcome int

const (
	// OutcomeNotFound means no qualifying link was found or the
	// download did not materialize.
	OutcomeNotFound Outcome = iota

	// OutcomeDownloaded means the reconciler confirmed a new file.
	OutcomeDownloaded

	// OutcomeBlocked means the page looked like a bot challenge; the
	// caller should impose an extended cooldown, not retry.
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "not found"
	}
}

// Confirmer reconciles the download directory after a click. Snapshot
// is taken just before the click so Confirm can reject files that were
// already present.
type Confirmer interface {
	Snapshot() (map[string]bool, error)
	Confirm(cite string, ordinal int, snapshot map[string]bool, sourceURL string) bool
}

// Driver performs one search-and-fetch attempt per citation against
// the Scholar results page.
type Driver struct {
	browser browser.Browser
	confirm Confirmer
	limiter *rate.Limiter
	cfg     types.FetchConfig
	log     zerolog.Logger
	lastURL string
}

// New creates a Driver over the given browser and reconciler.
func New(b browser.Browser, confirm Confirmer, cfg types.FetchConfig, log zerolog.Logger) *Driver {
	return &Driver{
		browser: b,
		confirm: confirm,
		limiter: rate.NewLimiter(rate.Limit(searchesPerMinute)/60, 1),
		cfg:     cfg,
		log:     log,
	}
}

// QueryURL builds the Scholar search URL for a citation. The raw text
// is URL-escaped with no punctuation normalization.
func QueryURL(cite string) string {
	return BaseURL + url.QueryEscape(cite)
}

// LastURL reports the most recent result-page address, for manual
// follow-up notes.
func (d *Driver) LastURL() string {
	return d.lastURL
}

// Attempt searches for a citation and tries to download the first
// PDF-style result link. A challenge page yields OutcomeBlocked with no
// error. Unexpected interaction failures return an error; the caller
// records them without aborting the batch.
func (d *Driver) Attempt(ctx context.Context, cite string, ordinal int) (Outcome, error) {
	query := QueryURL(cite)
	d.log.Debug().Int("ordinal", ordinal).Str("url", query).Msg("searching")

	if err := d.limiter.Wait(ctx); err != nil {
		return OutcomeNotFound, err
	}
	if err := d.browser.Navigate(ctx, query); err != nil {
		return OutcomeNotFound, fmt.Errorf("loading results: %w", err)
	}
	sleepRange(d.cfg.SettleDelay)

	loc, err := d.browser.Location(ctx)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("reading page URL: %w", err)
	}
	d.lastURL = loc
	title, err := d.browser.Title(ctx)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("reading page title: %w", err)
	}
	if isChallenge(loc, title) {
		d.log.Warn().Int("ordinal", ordinal).Str("url", loc).Msg("challenge page detected")
		return OutcomeBlocked, nil
	}

	// A missing results container usually means an empty result page;
	// the scan below then finds nothing.
	if err := d.browser.WaitReady(ctx, resultsSelector, d.cfg.ResultTimeout); err != nil {
		d.log.Warn().Int("ordinal", ordinal).Err(err).Msg("results container did not appear")
	}

	pageHTML, err := d.browser.HTML(ctx)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("reading result page: %w", err)
	}

	href, ok := findPDFLink(pageHTML)
	if !ok {
		return OutcomeNotFound, nil
	}
	d.log.Debug().Int("ordinal", ordinal).Str("href", href).Msg("pdf link selected")

	snapshot, err := d.confirm.Snapshot()
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("snapshotting download dir: %w", err)
	}
	if err := d.browser.ClickMatching(ctx, href); err != nil {
		return OutcomeNotFound, fmt.Errorf("clicking pdf link: %w", err)
	}
	sleepRange(d.cfg.SettleDelay)
	time.Sleep(d.cfg.PostClickWait)

	if d.confirm.Confirm(cite, ordinal, snapshot, href) {
		return OutcomeDownloaded, nil
	}
	return OutcomeNotFound, nil
}

// isChallenge reports whether the page looks like a bot-challenge
// interstitial rather than a results page.
func isChallenge(pageURL, title string) bool {
	u := strings.ToLower(pageURL)
	return strings.Contains(u, "captcha") ||
		strings.Contains(u, "/sorry") ||
		strings.Contains(strings.ToLower(title), "sorry")
}

// findPDFLink scans result-page markup for the first PDF-style link.
// Pass one: anchors in the full-text sidebar grouping whose label
// carries the PDF marker or whose target path ends in .pdf. Pass two,
// only when pass one finds nothing: any anchor labeled with the PDF
// marker. First qualifying link wins; there is no ranking.
func findPDFLink(pageHTML string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find(pdfGroupSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		if strings.Contains(s.Text(), pdfMarker) || hasPDFPath(href) {
			found = href
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		if strings.Contains(s.Text(), pdfMarker) {
			found = href
			return false
		}
		return true
	})
	return found, found != ""
}

// hasPDFPath reports whether the link target's path ends in .pdf.
func hasPDFPath(href string) bool {
	if u, err := url.Parse(href); err == nil {
		return strings.HasSuffix(u.Path, ".pdf")
	}
	return strings.HasSuffix(href, ".pdf")
}

// sleepRange blocks for a random duration drawn from r.
func sleepRange(r types.DelayRange) {
	if r.Max <= 0 {
		return
	}
	d := r.Min
	if r.Max > r.Min {
		d += time.Duration(rand.Int64N(int64(r.Max - r.Min)))
	}
	time.Sleep(d)
}

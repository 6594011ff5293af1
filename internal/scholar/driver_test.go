// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-fetch/pkg/types"
)

// fakeBrowser is an in-memory Browser for driver tests.
type fakeBrowser struct {
	html     string
	location string
	title    string

	navigated []string
	clicked   []string

	navErr   error
	clickErr error
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.location == "" {
		f.location = url
	}
	return f.navErr
}

func (f *fakeBrowser) WaitReady(context.Context, string, time.Duration) error { return nil }

func (f *fakeBrowser) HTML(context.Context) (string, error) { return f.html, nil }

func (f *fakeBrowser) ClickMatching(_ context.Context, href string) error {
	f.clicked = append(f.clicked, href)
	return f.clickErr
}

func (f *fakeBrowser) Location(context.Context) (string, error) { return f.location, nil }

func (f *fakeBrowser) Title(context.Context) (string, error) { return f.title, nil }

func (f *fakeBrowser) Close() error { return nil }

// fakeConfirmer reports a fixed reconciliation verdict.
type fakeConfirmer struct {
	confirmed bool
	calls     int
	sourceURL string
}

func (f *fakeConfirmer) Snapshot() (map[string]bool, error) { return map[string]bool{}, nil }

func (f *fakeConfirmer) Confirm(_ string, _ int, _ map[string]bool, sourceURL string) bool {
	f.calls++
	f.sourceURL = sourceURL
	return f.confirmed
}

func newTestDriver(b *fakeBrowser, c Confirmer) *Driver {
	return New(b, c, types.FetchConfig{ResultTimeout: time.Millisecond}, zerolog.Nop())
}

const resultsWithSidebarPDF = `<html><body>
<div class="gs_r"><h3><a href="https://pub.example.org/abstract/1">A paper</a></h3></div>
<div class="gs_or_ggsm"><a href="https://pub.example.org/files/paper1.pdf">[PDF] example.org</a></div>
</body></html>`

const resultsWithPathOnlyPDF = `<html><body>
<div class="gs_or_ggsm"><a href="https://pub.example.org/files/paper2.pdf">example.org</a></div>
</body></html>`

const resultsWithFallbackPDF = `<html><body>
<div class="gs_r"><a href="https://mirror.example.org/p3">[PDF] mirror copy</a></div>
</body></html>`

const resultsWithoutPDF = `<html><body>
<div class="gs_r"><h3><a href="https://pub.example.org/abstract/4">Another paper</a></h3></div>
</body></html>`

func TestQueryURL(t *testing.T) {
	got := QueryURL("Livet F. 2007. Diffraction & imaging")
	want := BaseURL + "Livet+F.+2007.+Diffraction+%26+imaging"
	if got != want {
		t.Errorf("QueryURL = %q, want %q", got, want)
	}
}

func TestFindPDFLinkSidebarLabel(t *testing.T) {
	href, ok := findPDFLink(resultsWithSidebarPDF)
	if !ok || href != "https://pub.example.org/files/paper1.pdf" {
		t.Errorf("findPDFLink = %q, %v", href, ok)
	}
}

func TestFindPDFLinkSidebarPath(t *testing.T) {
	href, ok := findPDFLink(resultsWithPathOnlyPDF)
	if !ok || href != "https://pub.example.org/files/paper2.pdf" {
		t.Errorf("findPDFLink = %q, %v", href, ok)
	}
}

func TestFindPDFLinkFallbackPass(t *testing.T) {
	href, ok := findPDFLink(resultsWithFallbackPDF)
	if !ok || href != "https://mirror.example.org/p3" {
		t.Errorf("findPDFLink = %q, %v", href, ok)
	}
}

func TestFindPDFLinkNone(t *testing.T) {
	if href, ok := findPDFLink(resultsWithoutPDF); ok {
		t.Errorf("findPDFLink = %q, want none", href)
	}
}

func TestFindPDFLinkFirstWins(t *testing.T) {
	page := `<html><body>
<div class="gs_or_ggsm"><a href="https://a.example.org/1.pdf">[PDF] first</a></div>
<div class="gs_or_ggsm"><a href="https://b.example.org/2.pdf">[PDF] second</a></div>
</body></html>`
	href, ok := findPDFLink(page)
	if !ok || href != "https://a.example.org/1.pdf" {
		t.Errorf("findPDFLink = %q, %v; first qualifying link must win", href, ok)
	}
}

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		url, title string
		want       bool
	}{
		{"https://scholar.google.com/scholar?q=x", "results", false},
		{"https://www.google.com/sorry/index?continue=x", "", true},
		{"https://scholar.google.com/captcha?x=1", "", true},
		{"https://scholar.google.com/scholar?q=x", "Sorry...", true},
	}
	for _, tt := range tests {
		if got := isChallenge(tt.url, tt.title); got != tt.want {
			t.Errorf("isChallenge(%q, %q) = %v, want %v", tt.url, tt.title, got, tt.want)
		}
	}
}

func TestAttemptDownloaded(t *testing.T) {
	b := &fakeBrowser{html: resultsWithSidebarPDF}
	c := &fakeConfirmer{confirmed: true}
	d := newTestDriver(b, c)

	outcome, err := d.Attempt(context.Background(), "Livet F. 2007.", 1)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if outcome != OutcomeDownloaded {
		t.Errorf("outcome = %v, want downloaded", outcome)
	}
	if len(b.clicked) != 1 || b.clicked[0] != "https://pub.example.org/files/paper1.pdf" {
		t.Errorf("clicked = %v", b.clicked)
	}
	if c.sourceURL != "https://pub.example.org/files/paper1.pdf" {
		t.Errorf("confirm source URL = %q", c.sourceURL)
	}
	if d.LastURL() == "" {
		t.Error("LastURL should be set after an attempt")
	}
}

func TestAttemptNotFoundNoLinks(t *testing.T) {
	b := &fakeBrowser{html: resultsWithoutPDF}
	c := &fakeConfirmer{}
	d := newTestDriver(b, c)

	outcome, err := d.Attempt(context.Background(), "Sutton M. 2008.", 2)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Errorf("outcome = %v, want not found", outcome)
	}
	if len(b.clicked) != 0 {
		t.Errorf("no link should be clicked, got %v", b.clicked)
	}
	if c.calls != 0 {
		t.Errorf("confirm should not run without a click, got %d calls", c.calls)
	}
}

func TestAttemptNotFoundUnconfirmed(t *testing.T) {
	b := &fakeBrowser{html: resultsWithSidebarPDF}
	c := &fakeConfirmer{confirmed: false}
	d := newTestDriver(b, c)

	outcome, err := d.Attempt(context.Background(), "Livet F. 2007.", 1)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Errorf("outcome = %v, want not found when the download never appears", outcome)
	}
	if c.calls != 1 {
		t.Errorf("confirm calls = %d, want 1", c.calls)
	}
}

func TestAttemptBlocked(t *testing.T) {
	b := &fakeBrowser{
		html:     resultsWithSidebarPDF,
		location: "https://www.google.com/sorry/index",
	}
	c := &fakeConfirmer{}
	d := newTestDriver(b, c)

	outcome, err := d.Attempt(context.Background(), "Livet F. 2007.", 1)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if outcome != OutcomeBlocked {
		t.Errorf("outcome = %v, want blocked", outcome)
	}
	if len(b.clicked) != 0 {
		t.Error("nothing should be clicked on a challenge page")
	}
	if d.LastURL() != "https://www.google.com/sorry/index" {
		t.Errorf("LastURL = %q", d.LastURL())
	}
}

func TestAttemptNavigationError(t *testing.T) {
	b := &fakeBrowser{navErr: errors.New("tab crashed")}
	d := newTestDriver(b, &fakeConfirmer{})

	if _, err := d.Attempt(context.Background(), "Livet F. 2007.", 1); err == nil {
		t.Error("navigation failure should surface as an error")
	}
}

func TestAttemptClickError(t *testing.T) {
	b := &fakeBrowser{html: resultsWithSidebarPDF, clickErr: errors.New("stale element")}
	d := newTestDriver(b, &fakeConfirmer{})

	if _, err := d.Attempt(context.Background(), "Livet F. 2007.", 1); err == nil {
		t.Error("click failure should surface as an error")
	}
}

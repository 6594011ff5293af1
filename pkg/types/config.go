// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DelayRange describes a bounded random wait. Sleeps are drawn uniformly
// from [Min, Max] to avoid a recognizable request cadence.
type DelayRange struct {
	Min time.Duration `json:"min" yaml:"min"`
	Max time.Duration `json:"max" yaml:"max"`
}

// BrowserConfig holds settings for the Chrome session used to drive
// result pages.
type BrowserConfig struct {
	// DownloadDir is the directory Chrome saves downloads into. Prompts
	// are suppressed and PDFs are saved instead of previewed.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// UserAgent is the User-Agent string presented by the browser.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Headless controls whether Chrome runs without a visible window.
	Headless bool `json:"headless" yaml:"headless"`
}

// FetchConfig holds settings for the search-and-fetch driver.
type FetchConfig struct {
	// ResultTimeout bounds the wait for the results container to appear.
	ResultTimeout time.Duration `json:"result_timeout" yaml:"result_timeout"`

	// SettleDelay is the random wait after navigation and after a click,
	// giving the page (and a same-origin download) time to settle.
	SettleDelay DelayRange `json:"settle_delay" yaml:"settle_delay"`

	// PostClickWait is the fixed wait after clicking a PDF link before
	// the download directory is inspected.
	PostClickWait time.Duration `json:"post_click_wait" yaml:"post_click_wait"`
}

// BatchConfig holds settings for a batch run over a citation list.
type BatchConfig struct {
	// OutputDir receives downloaded PDFs, the batch log, manual
	// follow-up notes, and the attempt history database.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// StartOrdinal is the ordinal assigned to the first citation in the
	// batch; subsequent citations increment by one.
	StartOrdinal int `json:"start_ordinal" yaml:"start_ordinal"`

	// AttemptDelay is the random wait between consecutive attempts.
	AttemptDelay DelayRange `json:"attempt_delay" yaml:"attempt_delay"`

	// ChallengeCooldown is the extended wait imposed after a
	// bot-challenge page before the next citation is attempted.
	ChallengeCooldown DelayRange `json:"challenge_cooldown" yaml:"challenge_cooldown"`

	// UseHistory controls whether previously succeeded citations are
	// skipped using the attempt history database.
	UseHistory bool `json:"use_history" yaml:"use_history"`
}

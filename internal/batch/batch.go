// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs the sequential fetch pipeline over a citation
// list: search, reconcile, record, manual follow-up, delay. Everything
// is single-threaded; the waits exist to throttle the request rate.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-fetch/internal/citation"
	"github.com/pdiddy/scholar-fetch/internal/scholar"
	"github.com/pdiddy/scholar-fetch/pkg/types"
)

const (
	reasonNotFound = "No PDF found or download failed"
	reasonBlocked  = "Blocked by challenge page"
)

// sleepFn is stubbed in tests to avoid real waits.
var sleepFn = time.Sleep

// now is stubbed in tests to pin the log file name.
var now = time.Now

// Driver is the per-citation search-and-fetch collaborator.
type Driver interface {
	Attempt(ctx context.Context, cite string, ordinal int) (scholar.Outcome, error)
	LastURL() string
}

// History records attempts across batches and answers whether a
// citation already succeeded. May be nil when history is disabled.
type History interface {
	Record(rec types.DownloadRecord, batchStart int) error
	Succeeded(cite string) (bool, error)
}

// Result summarizes a batch run. Records holds one entry per attempted
// citation, in processing order.
type Result struct {
	Records    []types.DownloadRecord
	Downloaded int
	Failed     int
	Errors     int
	Skipped    int
	LogPath    string
}

// Total returns the number of citations processed, skips included.
func (r Result) Total() int {
	return r.Downloaded + r.Failed + r.Errors + r.Skipped
}

// HasFailures reports whether any attempt did not produce a PDF.
func (r Result) HasFailures() bool {
	return r.Failed > 0 || r.Errors > 0
}

// Runner drives the pipeline for one batch.
type Runner struct {
	driver  Driver
	history History
	cfg     types.BatchConfig
	log     zerolog.Logger
}

// NewRunner creates a Runner. history may be nil.
func NewRunner(driver Driver, history History, cfg types.BatchConfig, log zerolog.Logger) *Runner {
	return &Runner{driver: driver, history: history, cfg: cfg, log: log}
}

// Run processes the citations sequentially, printing per-item progress
// to w. Per-citation failures are recorded and never abort the batch;
// Run itself fails only on setup problems (output directory, log
// write) or context cancellation.
func (r *Runner) Run(ctx context.Context, citations []string, w io.Writer) (Result, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries := citation.Iterate(citations, r.cfg.StartOrdinal)
	fmt.Fprintf(w, "Processing %d citations starting from #%d\n", len(entries), r.cfg.StartOrdinal)

	result := Result{Records: make([]types.DownloadRecord, 0, len(entries))}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if r.skipSucceeded(entry, w, &result) {
			continue
		}

		fmt.Fprintf(w, "citation #%d: %s\n", entry.Ordinal, truncate(entry.Text, 80))
		rec, cooldown := r.attempt(ctx, entry)
		result.Records = append(result.Records, rec)

		switch rec.Status {
		case types.StatusSuccess:
			result.Downloaded++
			fmt.Fprintf(w, "  downloaded: %s\n", citation.Filename(entry.Ordinal, entry.Text))
		case types.StatusFailed:
			result.Failed++
			fmt.Fprintf(w, "  failed: %s\n", rec.Reason)
			r.writeManualNote(entry)
		default:
			result.Errors++
			fmt.Fprintf(w, "  error: %s\n", rec.Error)
			r.writeManualNote(entry)
		}

		if r.history != nil {
			if err := r.history.Record(rec, r.cfg.StartOrdinal); err != nil {
				r.log.Warn().Int("ordinal", entry.Ordinal).Err(err).Msg("history record failed")
			}
		}

		if i < len(entries)-1 {
			if cooldown {
				fmt.Fprintln(w, "  challenge page hit, cooling down before next search")
				sleepRange(r.cfg.ChallengeCooldown)
			}
			sleepRange(r.cfg.AttemptDelay)
		}
	}

	logPath, err := r.writeLog(result.Records)
	if err != nil {
		return result, err
	}
	result.LogPath = logPath

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d failed, %d errors, %d skipped (total: %d)\n",
		result.Downloaded, result.Failed, result.Errors, result.Skipped, result.Total())
	fmt.Fprintf(w, "Log saved as: %s\n", logPath)
	return result, nil
}

// attempt runs the driver for one citation and translates the outcome
// into a log record. The second return value requests an extended
// cooldown before the next citation.
func (r *Runner) attempt(ctx context.Context, entry citation.Entry) (types.DownloadRecord, bool) {
	outcome, err := r.driver.Attempt(ctx, entry.Text, entry.Ordinal)
	if err != nil {
		r.log.Error().Int("ordinal", entry.Ordinal).Err(err).Msg("attempt error")
		return types.DownloadRecord{
			Status:   types.StatusError,
			Citation: entry.Text,
			Error:    err.Error(),
		}, false
	}

	switch outcome {
	case scholar.OutcomeDownloaded:
		return types.DownloadRecord{
			Status:   types.StatusSuccess,
			Citation: entry.Text,
			Ordinal:  entry.Ordinal,
		}, false
	case scholar.OutcomeBlocked:
		return types.DownloadRecord{
			Status:   types.StatusFailed,
			Citation: entry.Text,
			Reason:   reasonBlocked,
		}, true
	default:
		return types.DownloadRecord{
			Status:   types.StatusFailed,
			Citation: entry.Text,
			Reason:   reasonNotFound,
		}, false
	}
}

// skipSucceeded consults the history store and skips citations that
// already have a success record. Skips produce no batch record.
func (r *Runner) skipSucceeded(entry citation.Entry, w io.Writer, result *Result) bool {
	if r.history == nil || !r.cfg.UseHistory {
		return false
	}
	done, err := r.history.Succeeded(entry.Text)
	if err != nil {
		r.log.Warn().Int("ordinal", entry.Ordinal).Err(err).Msg("history lookup failed")
		return false
	}
	if !done {
		return false
	}
	fmt.Fprintf(w, "skipped: #%d (already downloaded)\n", entry.Ordinal)
	result.Skipped++
	return true
}

// writeManualNote saves the citation and the last result-page URL so a
// human can finish the download. Overwritten when the ordinal is
// reprocessed.
func (r *Runner) writeManualNote(entry citation.Entry) {
	path := filepath.Join(r.cfg.OutputDir, fmt.Sprintf("%03d_manual_download.txt", entry.Ordinal))
	content := fmt.Sprintf("Citation: %s\n\nGoogle Scholar URL: %s\n\nThis paper needs to be downloaded manually.\n",
		entry.Text, r.driver.LastURL())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.log.Warn().Int("ordinal", entry.Ordinal).Err(err).Msg("writing manual note failed")
	}
}

// writeLog persists the ordered record sequence as a timestamped JSON
// file, one log per batch.
func (r *Runner) writeLog(records []types.DownloadRecord) (string, error) {
	name := fmt.Sprintf("download_log_batch_%d_%s.json",
		r.cfg.StartOrdinal, now().Format("20060102_150405"))
	path := filepath.Join(r.cfg.OutputDir, name)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling batch log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing batch log: %w", err)
	}
	return path, nil
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
	sleepFn(d)
}

// truncate shortens s for progress output without splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

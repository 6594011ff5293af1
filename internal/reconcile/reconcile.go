// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile matches freshly downloaded PDF files to the
// citation that caused them and renames them to the canonical
// {ordinal}_{author}_{year}.pdf scheme.
package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-fetch/internal/citation"
	"github.com/pdiddy/scholar-fetch/pkg/types"
)

const (
	// DefaultWindow is how recently a PDF must have been created to be
	// attributed to the current attempt.
	DefaultWindow = 10 * time.Second

	metadataDir = "metadata"
)

// now is stubbed in tests.
var now = time.Now

// Reconciler inspects the download directory after a fetch attempt.
type Reconciler struct {
	outputDir string
	window    time.Duration
	log       zerolog.Logger
}

// New creates a Reconciler over outputDir using DefaultWindow.
func New(outputDir string, log zerolog.Logger) *Reconciler {
	return &Reconciler{outputDir: outputDir, window: DefaultWindow, log: log}
}

// Snapshot lists the .pdf file names currently in the download
// directory, taken before a click so Confirm can reject files that
// predate the attempt. A missing directory yields an empty snapshot.
func (r *Reconciler) Snapshot() (map[string]bool, error) {
	names := make(map[string]bool)
	entries, err := os.ReadDir(r.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, fmt.Errorf("reading output directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pdf") {
			names[e.Name()] = true
		}
	}
	return names, nil
}

// Confirm implements the driver's post-click check. It reports whether
// a new PDF appeared and was renamed; failures are logged, never fatal.
func (r *Reconciler) Confirm(cite string, ordinal int, snapshot map[string]bool, sourceURL string) bool {
	ok, err := r.Reconcile(cite, ordinal, snapshot, sourceURL)
	if err != nil {
		r.log.Warn().Int("ordinal", ordinal).Err(err).Msg("reconciliation failed")
		return false
	}
	return ok
}

// Reconcile looks for a PDF created by the current attempt and renames
// it to the canonical name for (ordinal, cite).
//
// Candidates are .pdf files absent from the pre-click snapshot; with a
// nil snapshot it falls back to the newest .pdf in the directory. The
// chosen file is accepted only if it was modified within the recency
// window, so a stale file never gets claimed. Renaming a file onto its
// own name is a no-op.
func (r *Reconciler) Reconcile(cite string, ordinal int, snapshot map[string]bool, sourceURL string) (bool, error) {
	entries, err := os.ReadDir(r.outputDir)
	if err != nil {
		return false, fmt.Errorf("reading output directory: %w", err)
	}

	var (
		newest    string
		newestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		if snapshot != nil && snapshot[e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return false, nil
	}
	if now().Sub(newestMod) > r.window {
		r.log.Debug().Str("file", newest).Time("mod_time", newestMod).
			Msg("newest pdf outside recency window")
		return false, nil
	}

	target := citation.Filename(ordinal, cite)
	if newest != target {
		oldPath := filepath.Join(r.outputDir, newest)
		newPath := filepath.Join(r.outputDir, target)
		if err := os.Rename(oldPath, newPath); err != nil {
			return false, fmt.Errorf("renaming %s to %s: %w", newest, target, err)
		}
	}
	r.log.Info().Int("ordinal", ordinal).Str("file", target).Msg("download reconciled")

	if err := r.writeMeta(cite, ordinal, target, sourceURL); err != nil {
		r.log.Warn().Int("ordinal", ordinal).Err(err).Msg("writing metadata sidecar failed")
	}
	return true, nil
}

// writeMeta records a YAML sidecar for a reconciled download under
// outputDir/metadata/.
func (r *Reconciler) writeMeta(cite string, ordinal int, filename, sourceURL string) error {
	meta := types.DownloadMeta{
		Citation:   cite,
		Ordinal:    ordinal,
		Filename:   filename,
		SourceURL:  sourceURL,
		Downloaded: now(),
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	dir := filepath.Join(r.outputDir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}
	name := strings.TrimSuffix(filename, ".pdf") + ".yaml"
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-fetch/internal/batch"
	"github.com/pdiddy/scholar-fetch/internal/browser"
	"github.com/pdiddy/scholar-fetch/internal/citation"
	"github.com/pdiddy/scholar-fetch/internal/history"
	"github.com/pdiddy/scholar-fetch/internal/reconcile"
	"github.com/pdiddy/scholar-fetch/internal/scholar"
	"github.com/pdiddy/scholar-fetch/pkg/types"
)

const (
	defaultOutputDir = "xpcs_publications"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultResultTimeout = 10 * time.Second
	defaultPostClickWait = 5 * time.Second
	defaultSettleMin     = 2 * time.Second
	defaultSettleMax     = 5 * time.Second
	defaultDelayMin      = 10 * time.Second
	defaultDelayMax      = 20 * time.Second
	defaultCooldownMin   = 30 * time.Second
	defaultCooldownMax   = 60 * time.Second
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search and download PDFs for a batch of citations",
	Long: `Fetch runs the sequential pipeline over a citation list: search Google
Scholar, click the first PDF-style result link, reconcile the download
directory, and record the attempt. Citations come from the built-in
bibliography or from a text file (one citation per line).

Use --from/--to to process a numbered slice of the list; ordinals in
filenames and logs continue the list numbering unless --start overrides
it.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("citations", "", "citation list file (default: built-in bibliography)")
	fetchCmd.Flags().Int("from", 0, "index of the first citation to process (0-based, inclusive)")
	fetchCmd.Flags().Int("to", 0, "index past the last citation to process (0 = end of list)")
	fetchCmd.Flags().Int("start", 0, "ordinal of the first citation (default: from+1)")
	fetchCmd.Flags().String("output-dir", "", "directory for PDFs, logs, and notes")
	fetchCmd.Flags().Bool("headless", false, "run Chrome without a visible window")
	fetchCmd.Flags().Duration("timeout", defaultResultTimeout, "wait for the results container")
	fetchCmd.Flags().Duration("min-delay", defaultDelayMin, "minimum wait between attempts")
	fetchCmd.Flags().Duration("max-delay", defaultDelayMax, "maximum wait between attempts")
	fetchCmd.Flags().Duration("cooldown-min", defaultCooldownMin, "minimum wait after a challenge page")
	fetchCmd.Flags().Duration("cooldown-max", defaultCooldownMax, "maximum wait after a challenge page")
	fetchCmd.Flags().Bool("no-history", false, "do not consult or record the attempt history database")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	citationsFile, _ := cmd.Flags().GetString("citations")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	start, _ := cmd.Flags().GetInt("start")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	headless, _ := cmd.Flags().GetBool("headless")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	minDelay, _ := cmd.Flags().GetDuration("min-delay")
	maxDelay, _ := cmd.Flags().GetDuration("max-delay")
	cooldownMin, _ := cmd.Flags().GetDuration("cooldown-min")
	cooldownMax, _ := cmd.Flags().GetDuration("cooldown-max")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	if outputDir == "" {
		outputDir = viper.GetString("output_dir")
	}

	citations := citation.Builtin()
	if citationsFile != "" {
		loaded, err := citation.LoadFile(citationsFile)
		if err != nil {
			return err
		}
		citations = loaded
	}
	citations = citation.Slice(citations, from, to)
	if len(citations) == 0 {
		return fmt.Errorf("no citations to process (list length and --from/--to do not overlap)")
	}
	if start == 0 {
		start = from + 1
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	chrome, err := browser.NewChrome(cmd.Context(), types.BrowserConfig{
		DownloadDir: outputDir,
		UserAgent:   viper.GetString("user_agent"),
		Headless:    headless,
	}, logger)
	if err != nil {
		return err
	}
	defer chrome.Close()

	reconciler := reconcile.New(outputDir, logger)
	driver := scholar.New(chrome, reconciler, types.FetchConfig{
		ResultTimeout: timeout,
		SettleDelay:   types.DelayRange{Min: defaultSettleMin, Max: defaultSettleMax},
		PostClickWait: defaultPostClickWait,
	}, logger)

	var store batch.History
	if !noHistory {
		s, err := history.Open(outputDir)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	runner := batch.NewRunner(driver, store, types.BatchConfig{
		OutputDir:         outputDir,
		StartOrdinal:      start,
		AttemptDelay:      types.DelayRange{Min: minDelay, Max: maxDelay},
		ChallengeCooldown: types.DelayRange{Min: cooldownMin, Max: cooldownMax},
		UseHistory:        !noHistory,
	}, logger)

	result, err := runner.Run(cmd.Context(), citations, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d citation(s) without a downloaded PDF", result.Failed+result.Errors)
	}
	return nil
}

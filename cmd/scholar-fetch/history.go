// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-fetch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded download attempts",
	Long: `History prints attempts recorded in the output directory's history
database, most recent first.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("output-dir", "", "directory holding the history database")
	historyCmd.Flags().Int("limit", 50, "maximum attempts to list (0 = all)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	limit, _ := cmd.Flags().GetInt("limit")

	if outputDir == "" {
		outputDir = viper.GetString("output_dir")
	}

	store, err := history.Open(outputDir)
	if err != nil {
		return err
	}
	defer store.Close()

	attempts, err := store.List(limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDINAL\tSTATUS\tRECORDED\tCITATION")
	for _, a := range attempts {
		cite := a.Citation
		if len([]rune(cite)) > 60 {
			cite = string([]rune(cite)[:60]) + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			a.Ordinal, a.Status, a.RecordedAt.Format("2006-01-02 15:04"), cite)
	}
	return w.Flush()
}

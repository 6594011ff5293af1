// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scholar-fetch CLI: a
// batch downloader that drives Google Scholar result pages, grabs PDF
// result links, and names the files by citation ordinal.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is the process-wide structured logger, configured in the root
// command before any subcommand runs.
var logger zerolog.Logger

// rootCmd is the base command for the scholar-fetch CLI.
var rootCmd = &cobra.Command{
	Use:   "scholar-fetch",
	Short: "Batch-download academic PDFs from Google Scholar result pages",
	Long: `scholar-fetch drives a Chrome session against Google Scholar: for each
citation in a batch it issues a search, picks the first PDF-style result
link, downloads it, and renames the file to {ordinal}_{author}_{year}.pdf.

Attempts that find no PDF leave a manual follow-up note; every attempt is
recorded in a per-batch JSON log and in a local history database used to
skip citations that already succeeded.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		level := zerolog.InfoLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scholar-fetch.yaml or ~/.config/scholar-fetch/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scholar-fetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scholar-fetch"))
		}
	}

	viper.SetEnvPrefix("SCHOLAR_FETCH")
	viper.AutomaticEnv()

	viper.SetDefault("output_dir", defaultOutputDir)
	viper.SetDefault("user_agent", defaultUserAgent)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

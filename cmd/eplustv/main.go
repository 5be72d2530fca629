// SPDX-License-Identifier: MIT

// Command eplustv ingests a sports streaming schedule and compiles a rolling
// M3U playlist + XMLTV guide from it.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chasut/eplustv-ah4c/internal/config"
	xlog "github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/chasut/eplustv-ah4c/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eplustv",
	Short: "Schedule-driven playlist and guide generator",
	Long: `eplustv polls a sports streaming provider's airing schedule, stores it
locally, and compiles a rolling M3U playlist plus XMLTV guide with one
deep-link channel per event.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	cobra.OnInitialize(initRun)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
}

func initRun() {
	// .env is a local-dev convenience; a missing file is not an error
	_ = godotenv.Load()

	xlog.Configure(xlog.Config{
		Level:   os.Getenv("EPLUSTV_LOG_LEVEL"),
		Service: "eplustv",
		Version: version.Version,
	})
}

// loadConfig builds the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

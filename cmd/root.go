package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-triage",
	Short: "A personal photo and video triage tool",
	Long: `Photo Triage scans a directory of media files, groups them by capture
date, runs face recognition over the catalog and finds every group that
contains a tracked person via embedding similarity search. A web API
serves the reviewer UI.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/config"
	"github.com/tomasmach/photo-triage/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Ingest the media root into the catalog",
	Long: `Walk the media root, read EXIF and file-name metadata for every photo
and video, and upsert the items and their date bucket groups into the
catalog. Already cataloged items keep their recognition status.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("root", "", "Media root to scan (overrides MEDIA_ROOT)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	root := cfg.Scan.Root
	if v := mustGetString(cmd, "root"); v != "" {
		root = v
	}
	if root == "" {
		return errors.New("media root is required (--root or MEDIA_ROOT)")
	}

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	scanner := scan.New(b.media, b.groups, root)

	total, err := scanner.CountMedia()
	if err != nil {
		return fmt.Errorf("counting media files: %w", err)
	}
	fmt.Printf("Found %d media files under %s\n", total, root)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Scanning media"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
	scanner.OnFile = func(path string) {
		_ = bar.Add(1)
	}

	result, err := scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scanning media root: %w", err)
	}

	fmt.Printf("\nScan complete: %d items (%d new, %d updated) in %d groups\n",
		result.Items, result.Added, result.Updated, result.Groups)
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/config"
	"github.com/tomasmach/photo-triage/internal/similarity"
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Flag groups that contain the tracked subject",
	Long: `Search the vector index for faces similar to the ones the reviewer
confirmed as the tracked subject, and flag every media group where a
match is found. Groups already flagged are skipped, so re-running is
cheap and never unsets a flag.`,
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Float64("threshold", 0, "Cosine distance cutoff, lower is stricter (defaults to the embedded tuning value)")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	threshold := cfg.Defaults.Similarity.Threshold
	if v := mustGetFloat64(cmd, "threshold"); v != 0 {
		threshold = v
	}
	if threshold <= 0 || threshold >= 2 {
		return fmt.Errorf("threshold must be a cosine distance between 0 and 2, got %f", threshold)
	}

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	engine := similarity.New(b.faces, b.groups, b.vectors)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Checking groups"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("groups"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
	engine.OnProgress = func(checked, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(checked)
	}

	fmt.Printf("Searching for subject matches with threshold %.2f\n", threshold)

	flagged, err := engine.FlagGroupsWithSubject(ctx, threshold)
	if err != nil {
		return fmt.Errorf("flagging groups: %w", err)
	}
	_ = bar.Finish()

	fmt.Printf("\nFlagged %d groups containing the subject\n", flagged)
	return nil
}

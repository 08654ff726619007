package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print catalog and recognition counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	engine := b.newRecognitionEngine(cfg)
	status, err := engine.Status(ctx)
	if err != nil {
		return fmt.Errorf("computing recognition status: %w", err)
	}

	fmt.Printf("Images:    %d\n", status.Images)
	fmt.Printf("  pending: %d\n", status.Pending)
	fmt.Printf("  retry:   %d\n", status.Retrying)
	fmt.Printf("  done:    %d\n", status.Done)
	fmt.Printf("  failed:  %d\n", status.Failed)
	fmt.Printf("Progress:  %.0f%%\n", status.Progress*100)

	groups, err := b.groups.Count(ctx, catalog.NewQuery())
	if err != nil {
		return fmt.Errorf("counting groups: %w", err)
	}
	flagged, err := b.groups.Count(ctx, catalog.NewQuery().Eq(catalog.FieldHasSubject, true))
	if err != nil {
		return fmt.Errorf("counting flagged groups: %w", err)
	}
	faces, err := b.faces.Count(ctx, catalog.NewQuery())
	if err != nil {
		return fmt.Errorf("counting faces: %w", err)
	}
	vectors, err := b.vectors.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting vectors: %w", err)
	}

	fmt.Printf("Faces:     %d (%d embeddings indexed)\n", faces, vectors)
	fmt.Printf("Groups:    %d (%d with subject)\n", groups, flagged)
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/ai"
	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/config"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Suggest classification labels with a vision model",
	Long: `Run a vision model over every unclassified photo and write the
best label into the catalog when the model is confident enough.
Low-confidence suggestions are skipped, not written.`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().String("provider", "", "AI provider: openai, gemini or ollama (default: first configured)")
	classifyCmd.Flags().Float64("min-confidence", 0, "Confidence cutoff (defaults to the embedded tuning value)")
	classifyCmd.Flags().Int("limit", 0, "Classify at most this many photos (0 = all)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	minConfidence := cfg.Defaults.Classify.MinConfidence
	if v := mustGetFloat64(cmd, "min-confidence"); v != 0 {
		minConfidence = v
	}

	ctx := context.Background()

	provider, err := newAIProvider(ctx, cfg, mustGetString(cmd, "provider"))
	if err != nil {
		return err
	}
	if provider == nil {
		return errors.New("no AI provider configured: set OPENAI_TOKEN or GEMINI_API_KEY, or pass --provider ollama")
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	q := catalog.NewQuery().
		Eq(catalog.FieldType, catalog.TypePhoto).
		Eq(catalog.FieldClassification, catalog.NoClassification).
		OrderBy(catalog.FieldPath, false)
	if limit := mustGetInt(cmd, "limit"); limit > 0 {
		q = q.WithLimit(limit)
	}

	items, err := b.media.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("listing unclassified photos: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("Nothing to do: no unclassified photos in the catalog")
		return nil
	}

	fmt.Printf("Classifying %d photos with %s (confidence >= %.2f)\n",
		len(items), provider.Name(), minConfidence)

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Classifying photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var classified, skipped, failed int
	for _, item := range items {
		label, err := suggestLabel(ctx, provider, cfg.Defaults.Classify.Labels, item, minConfidence)
		if err != nil {
			failed++
			_ = bar.Add(1)
			continue
		}
		if label == "" {
			skipped++
			_ = bar.Add(1)
			continue
		}

		item.Classification = label
		if err := b.media.Upsert(ctx, item); err != nil {
			return fmt.Errorf("saving classification for %s: %w", item.Path, err)
		}
		classified++
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	usage := provider.GetUsage()
	fmt.Printf("\nClassified %d photos (%d below confidence, %d failed)\n", classified, skipped, failed)
	fmt.Printf("Token usage: %d input, %d output\n", usage.InputTokens, usage.OutputTokens)
	return nil
}

// suggestLabel asks the provider for labels and returns the best one at or
// above the cutoff, or "" when the model is not confident enough.
func suggestLabel(ctx context.Context, provider ai.Provider, labels []string, item catalog.MediaItem, minConfidence float64) (string, error) {
	data, err := os.ReadFile(item.Path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	suggestion, err := provider.SuggestLabels(ctx, data, &ai.ItemContext{
		Name:      item.Name,
		TakenAt:   item.TakenAt,
		Camera:    item.Camera,
		GroupName: item.GroupName,
	}, labels)
	if err != nil {
		return "", err
	}

	label, ok := suggestion.Best(minConfidence)
	if !ok {
		return "", nil
	}
	return label, nil
}

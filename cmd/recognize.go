package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/config"
	"github.com/tomasmach/photo-triage/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run face recognition over the catalog",
	Long: `Start the recognition worker and block until the queue of pending
images drains. Every image is sent to the recognition service; detected
faces are stored with their embeddings for similarity search.`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("retry", false, "Re-queue previously failed images first")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx := context.Background()
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	engine := b.newRecognitionEngine(cfg)

	if mustGetBool(cmd, "retry") {
		err = engine.Retry(ctx)
	} else {
		err = engine.Start(ctx)
	}
	if err != nil {
		return fmt.Errorf("starting recognition: %w", err)
	}

	status, err := engine.Status(ctx)
	if err != nil {
		return fmt.Errorf("computing status: %w", err)
	}
	queued := status.Pending + status.Retrying
	if queued == 0 {
		fmt.Println("Nothing to do: no pending images in the catalog")
		return nil
	}
	fmt.Printf("Processing %d queued images (%d total in catalog)\n", queued, status.Images)

	bar := progressbar.NewOptions(status.Images,
		progressbar.OptionSetDescription("Recognizing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
	_ = bar.Set(status.Processed)

	// The worker runs in the background; poll the catalog for progress
	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-done:
			break poll
		case <-ticker.C:
			s, err := engine.Status(ctx)
			if err != nil {
				continue
			}
			_ = bar.Set(s.Processed)
		}
	}

	final, err := engine.Status(ctx)
	if err != nil {
		return fmt.Errorf("computing final status: %w", err)
	}
	_ = bar.Set(final.Processed)
	_ = bar.Finish()

	fmt.Printf("\nRecognition %s: %d done, %d failed out of %d images\n",
		final.State, final.Done, final.Failed, final.Images)
	if final.State == recognition.StateCrashed {
		return fmt.Errorf("recognition run crashed: %s", final.LastError)
	}
	return nil
}

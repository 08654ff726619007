package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasmach/photo-triage/internal/config"
	"github.com/tomasmach/photo-triage/internal/scan"
	"github.com/tomasmach/photo-triage/internal/similarity"
	"github.com/tomasmach/photo-triage/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Triage web server.
The server exposes the JSON API the reviewer UI talks to: media groups,
faces, recognition engine control and similarity search.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Scan.Root == "" {
		return errors.New("MEDIA_ROOT environment variable is required")
	}

	host := cfg.Server.Host
	port := cfg.Server.Port
	if v := mustGetString(cmd, "host"); v != "" {
		host = v
	}
	if v := mustGetInt(cmd, "port"); v != 0 {
		port = v
	}

	ctx := context.Background()

	fmt.Printf("Connecting to catalog database...\n")
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	engine := b.newRecognitionEngine(cfg)
	simEngine := similarity.New(b.faces, b.groups, b.vectors)
	scanner := scan.New(b.media, b.groups, cfg.Scan.Root)

	provider, err := newAIProvider(ctx, cfg, "")
	if err != nil {
		return err
	}
	if provider != nil {
		fmt.Printf("Classification suggestions enabled (%s)\n", provider.Name())
	}

	server := web.NewServer(host, port, web.Deps{
		Media:               b.media,
		Faces:               b.faces,
		Groups:              b.groups,
		Vectors:             b.vectors,
		Recognition:         engine,
		Similarity:          simEngine,
		Scanner:             scanner,
		AIProvider:          provider,
		Labels:              cfg.Defaults.Classify.Labels,
		SimilarityThreshold: cfg.Defaults.Similarity.Threshold,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Let the in-flight image finish before the index is saved
		engine.Stop()
		engine.Wait()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Triage API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

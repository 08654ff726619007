package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomasmach/photo-triage/internal/ai"
	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/config"
	"github.com/tomasmach/photo-triage/internal/recognition"
	"github.com/tomasmach/photo-triage/internal/recognizer"
	"github.com/tomasmach/photo-triage/internal/sqlstore"
	"github.com/tomasmach/photo-triage/internal/vecindex"
)

// backends bundles the persistent collaborators every command wires up:
// the SQL catalog stores and the vector index.
type backends struct {
	store   *sqlstore.Store
	media   *sqlstore.MediaRepository
	faces   *sqlstore.FaceRepository
	groups  *sqlstore.GroupRepository
	vectors catalog.VectorIndex
}

// openBackends connects to the catalog database, runs migrations and
// builds the configured vector index.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	store, err := sqlstore.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to catalog database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating catalog database: %w", err)
	}

	vectors, err := openVectorIndex(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &backends{
		store:   store,
		media:   sqlstore.NewMediaRepository(store),
		faces:   sqlstore.NewFaceRepository(store),
		groups:  sqlstore.NewGroupRepository(store),
		vectors: vectors,
	}, nil
}

func openVectorIndex(ctx context.Context, cfg *config.Config, store *sqlstore.Store) (catalog.VectorIndex, error) {
	switch cfg.Index.Backend {
	case "hnsw":
		index := vecindex.NewHNSW(cfg.Recognizer.Dim, cfg.Index.Path)
		if err := index.Load(); err != nil {
			return nil, fmt.Errorf("loading HNSW index: %w", err)
		}
		return index, nil
	case "pgvector":
		if store.Dialect() != "postgres" {
			return nil, fmt.Errorf("pgvector index requires a PostgreSQL catalog, got %s", store.Dialect())
		}
		index := vecindex.NewPGVector(store.DB(), cfg.Recognizer.Dim)
		if err := index.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("preparing pgvector schema: %w", err)
		}
		return index, nil
	default:
		return nil, fmt.Errorf("unknown vector index backend %q", cfg.Index.Backend)
	}
}

// Close saves the vector index when it is file-backed and closes the
// database pool.
func (b *backends) Close() {
	if index, ok := b.vectors.(*vecindex.HNSW); ok {
		if err := index.Save(); err != nil {
			fmt.Printf("Warning: failed to save vector index: %v\n", err)
		}
	}
	if err := b.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

// newRecognitionEngine builds the engine with a dial function that
// creates a fresh client against the configured recognizer service.
func (b *backends) newRecognitionEngine(cfg *config.Config) *recognition.Engine {
	return recognition.New(b.media, b.faces, b.vectors, func() recognition.Recognizer {
		return recognizer.NewClient(cfg.Recognizer.URL)
	})
}

// newAIProvider picks a label suggestion provider. An explicit name wins;
// otherwise the first provider with credentials is used. Returns nil when
// nothing is configured.
func newAIProvider(ctx context.Context, cfg *config.Config, name string) (ai.Provider, error) {
	switch name {
	case "openai":
		if cfg.AI.OpenAIToken == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required for the openai provider")
		}
		return ai.NewOpenAIProvider(cfg.AI.OpenAIToken), nil
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required for the gemini provider")
		}
		return ai.NewGeminiProvider(ctx, cfg.AI.GeminiAPIKey)
	case "ollama":
		return ai.NewOllamaProvider(cfg.AI.OllamaURL, cfg.AI.OllamaModel), nil
	case "":
		if cfg.AI.OpenAIToken != "" {
			return ai.NewOpenAIProvider(cfg.AI.OpenAIToken), nil
		}
		if cfg.AI.GeminiAPIKey != "" {
			return ai.NewGeminiProvider(ctx, cfg.AI.GeminiAPIKey)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", name)
	}
}

package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Recognizer RecognizerConfig
	Index      IndexConfig
	Server     ServerConfig
	AI         AIConfig
	Scan       ScanConfig
	Defaults   DefaultsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL URL or MySQL DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RecognizerConfig struct {
	URL string // face recognition service base URL (default http://localhost:8081)
	Dim int    // embedding dimension of the recognition model (default 512)
}

type IndexConfig struct {
	Backend string // "hnsw" (default) or "pgvector"
	Path    string // file to persist the HNSW index (optional, rebuilt when empty)
}

type ServerConfig struct {
	Host string
	Port int
}

type AIConfig struct {
	OpenAIToken  string
	GeminiAPIKey string
	OllamaURL    string // defaults to http://localhost:11434
	OllamaModel  string // defaults to llama3.2-vision:11b
}

type ScanConfig struct {
	Root string // media root directory to ingest
}

// DefaultsConfig carries tuning values that are data rather than
// deployment, loaded from the embedded defaults.yaml.
type DefaultsConfig struct {
	Similarity SimilarityDefaults `yaml:"similarity"`
	Classify   ClassifyDefaults   `yaml:"classify"`
}

type SimilarityDefaults struct {
	Threshold float64 `yaml:"threshold"` // cosine distance cutoff, lower is stricter
}

type ClassifyDefaults struct {
	MinConfidence float64  `yaml:"min_confidence"`
	Labels        []string `yaml:"labels"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envStr reads an environment variable, falling back to a default when unset.
func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var defaults DefaultsConfig
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, so this can only fail on a bad build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognizer: RecognizerConfig{
			URL: envStr("RECOGNIZER_URL", "http://localhost:8081"),
			Dim: envInt("RECOGNIZER_DIM", 512),
		},
		Index: IndexConfig{
			Backend: envStr("VECTOR_INDEX_BACKEND", "hnsw"),
			Path:    os.Getenv("VECTOR_INDEX_PATH"),
		},
		Server: ServerConfig{
			Host: envStr("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
		AI: AIConfig{
			OpenAIToken:  os.Getenv("OPENAI_TOKEN"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			OllamaURL:    os.Getenv("OLLAMA_URL"),
			OllamaModel:  os.Getenv("OLLAMA_MODEL"),
		},
		Scan: ScanConfig{
			Root: os.Getenv("MEDIA_ROOT"),
		},
		Defaults: defaults,
	}
}

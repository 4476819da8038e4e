// Package config loads runtime configuration from the environment, with an
// optional .env file picked up from the working directory.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// ProviderOpenAI selects the OpenAI embeddings API.
	ProviderOpenAI = "openai"
	// ProviderOllama selects a local Ollama instance.
	ProviderOllama = "ollama"
)

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaHost    string

	Embeddings EmbeddingConfig

	// BraveAPIKey authorizes the keyword web-search API. Empty means the web
	// tool reports a missing-credential message instead of searching.
	BraveAPIKey string

	// PostgresDSN, when set, switches the document index from the in-memory
	// store to the pgvector-backed store.
	PostgresDSN string

	Neo4jURI  string
	Neo4jUser string
	Neo4jPass string

	// KnowledgeBaseURL is the fixed page indexed at startup for the
	// knowledge-base tool.
	KnowledgeBaseURL string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		BraveAPIKey:      getEnv("BRAVE_SEARCH_API_KEY", ""),
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		Neo4jURI:         getEnv("NEO4J_URI", ""),
		Neo4jUser:        getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:        getEnv("NEO4J_PASSWORD", "password"),
		KnowledgeBaseURL: getEnv("KNOWLEDGE_BASE_URL", "https://docs.smith.langchain.com/"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

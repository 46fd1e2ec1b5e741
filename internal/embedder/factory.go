package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	BaseURL   string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. KBGRAPH_EMBEDDING_PROVIDER (hash, remote)
//  2. OPENAI_API_KEY present → remote
//  3. Default to the deterministic hash provider
func NewFromEnv() (Embedder, error) {
	provider := strings.ToLower(os.Getenv(EnvProvider))
	cache := NewCache(10000)

	switch provider {
	case ProviderHash:
		return NewHashProvider(cache), nil
	case ProviderRemote:
		return NewRemoteProvider(os.Getenv(EnvRemoteURL), "", cache)
	case "":
		// Fall through to auto-detection
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	if os.Getenv(EnvAPIKey) != "" {
		return NewRemoteProvider(os.Getenv(EnvRemoteURL), "", cache)
	}

	return NewHashProvider(cache), nil
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderHash, "":
		return NewHashProvider(cache), nil
	case ProviderRemote:
		return NewRemoteProvider(cfg.BaseURL, cfg.APIKey, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

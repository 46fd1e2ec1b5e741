package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Provider configuration
const (
	ProviderHash   = "hash"
	ProviderRemote = "remote"

	// HashDimension is the fixed length of the placeholder vectorizer.
	HashDimension = 384

	// DefaultRemoteModel is used when no model override is configured.
	DefaultRemoteModel = "text-embedding-3-small"
	RemoteDimension    = 1536

	// Environment variables recognized by the factory
	EnvProvider  = "KBGRAPH_EMBEDDING_PROVIDER"
	EnvRemoteURL = "KBGRAPH_EMBEDDING_URL"
	EnvAPIKey    = "OPENAI_API_KEY"
)

// HashProvider is the reference vectorizer: deterministic but semantically
// meaningless. The input is folded into a base-36 digest which is spread
// cyclically over the vector as printable-character offsets.
type HashProvider struct {
	cache *Cache
}

// NewHashProvider creates the deterministic hash-spread vectorizer.
func NewHashProvider(cache *Cache) *HashProvider {
	return &HashProvider{cache: cache}
}

func (h *HashProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	// Empty content is legal for this provider: an empty file still gets
	// a deterministic (all-zero digest) embedding.
	hash := ComputeHash(req.Text)
	if h.cache != nil {
		if emb, ok := h.cache.Get(hash); ok {
			return emb, nil
		}
	}

	digest := foldHash(req.Text)
	vector := make([]float32, HashDimension)
	for i := range vector {
		c := digest[i%len(digest)]
		vector[i] = float32(c-32) / 95.0
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: HashDimension,
		Provider:  ProviderHash,
		Model:     "hash-spread",
		Hash:      hash,
	}

	if h.cache != nil {
		h.cache.Set(hash, emb)
	}

	return emb, nil
}

func (h *HashProvider) Dimension() int {
	return HashDimension
}

func (h *HashProvider) Provider() string {
	return ProviderHash
}

func (h *HashProvider) Model() string {
	return "hash-spread"
}

func (h *HashProvider) Close() error {
	return nil
}

// foldHash reduces text to a short base-36 digest using the djb2-style
// shift-and-subtract fold. Never returns an empty string.
func foldHash(text string) string {
	var hash int32
	for _, r := range text {
		hash = (hash << 5) - hash + int32(r)
	}
	if hash < 0 {
		hash = -hash
	}
	return strconv.FormatInt(int64(hash), 36)
}

// RemoteProvider calls an OpenAI-compatible embeddings endpoint.
type RemoteProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewRemoteProvider creates a remote embedder against an OpenAI-compatible
// API. The base URL must include the scheme and host; the standard
// /v1/embeddings path is appended.
func NewRemoteProvider(baseURL, apiKey string, cache *Cache) (*RemoteProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAPIKey)
	}

	return &RemoteProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   DefaultRemoteModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (r *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if r.cache != nil {
		if emb, ok := r.cache.Get(hash); ok {
			return emb, nil
		}
	}

	config := DefaultRetryConfig()
	emb, err := retryWithBackoff(ctx, config, func() (*Embedding, error) {
		return r.callAPI(ctx, req.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	emb.Hash = hash
	if r.cache != nil {
		r.cache.Set(hash, emb)
	}

	return emb, nil
}

func (r *RemoteProvider) callAPI(ctx context.Context, text string) (*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": []string{text},
		"model": r.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return &Embedding{
		Vector:    apiResp.Data[0].Embedding,
		Dimension: len(apiResp.Data[0].Embedding),
		Provider:  ProviderRemote,
		Model:     apiResp.Model,
	}, nil
}

func (r *RemoteProvider) Dimension() int {
	return RemoteDimension
}

func (r *RemoteProvider) Provider() string {
	return ProviderRemote
}

func (r *RemoteProvider) Model() string {
	return r.model
}

func (r *RemoteProvider) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaEncoder calls an Ollama-compatible /api/embeddings endpoint.
type OllamaEncoder struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

// NewOllamaEncoder creates an encoder against baseURL (e.g.
// http://localhost:11434) using the named model. dim must match the model's
// output dimensionality; responses of any other length are rejected.
func NewOllamaEncoder(baseURL, model string, dim int, timeout time.Duration) *OllamaEncoder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEncoder{
		baseURL: baseURL,
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ Encoder = (*OllamaEncoder)(nil)

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Encode requests an embedding for text. Transport failures map to
// ErrUnavailable so callers can tell an unreachable service from a bad
// response.
func (e *OllamaEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embedding) != e.dim {
		return nil, fmt.Errorf("embedding dimension %d, configured %d", len(parsed.Embedding), e.dim)
	}

	vec := make([]float32, e.dim)
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dim returns the configured dimensionality.
func (e *OllamaEncoder) Dim() int { return e.dim }

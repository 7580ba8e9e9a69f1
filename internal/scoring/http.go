package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultEmbeddingModel = "all-MiniLM-L6-v2"

// HTTPEncoder calls an OpenAI-compatible /embeddings endpoint.
type HTTPEncoder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      RetryConfig
	logger     *zap.Logger
}

type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:  2,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     5 * time.Second,
}

func NewHTTPEncoder(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *HTTPEncoder {
	if model == "" {
		model = defaultEmbeddingModel
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPEncoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryConfig,
		logger:     logger,
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// errBadResponse marks a 200 reply that carries no usable embedding.
// It is not retried.
var errBadResponse = errors.New("bad embeddings response")

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embeddings API returned status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func (c *HTTPEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		vec, err := c.encodeOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		var se *statusError
		if ctx.Err() != nil || errors.Is(err, errBadResponse) || (errors.As(err, &se) && !se.retryable()) {
			return nil, err
		}
		if attempt == c.retry.MaxRetries {
			break
		}
		wait := time.Duration(float64(c.retry.InitialWait) * math.Pow(2, float64(attempt)))
		if wait > c.retry.MaxWait {
			wait = c.retry.MaxWait
		}
		c.logger.Debug("retrying embeddings request", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *HTTPEncoder) encodeOnce(ctx context.Context, text string) ([]float64, error) {
	jsonData, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var out embeddingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errBadResponse, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: API error: %s", errBadResponse, out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", errBadResponse)
	}
	return out.Data[0].Embedding, nil
}

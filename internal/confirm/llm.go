package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"ReversalSentinel/internal/model"
)

const systemPrompt = "You are a technical analyst reviewing candlestick reversal signals. " +
	"Judge whether the detected pattern is a credible reversal given the preceding price action " +
	"and volume. Answer with a single JSON object and nothing else."

// Config configures an LLMClient.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Proxy      string
}

// LLMClient confirms signals through an OpenAI-compatible chat completions API.
type LLMClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
	log        zerolog.Logger
	backoff    func(attempt int) time.Duration
}

// NewLLMClient creates a client with optional proxy support.
func NewLLMClient(cfg Config, log zerolog.Logger) *LLMClient {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMClient{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		Client:     &http.Client{Timeout: timeout, Transport: transport},
		log:        log,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// statusError is a non-200 reply from the API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm API error: status %d, body: %s", e.code, e.body)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// Confirm sends the request with exponential backoff retry.
func (c *LLMClient) Confirm(ctx context.Context, req Request) (*model.Confirmation, error) {
	var lastErr error
	for i := 0; i <= c.MaxRetries; i++ {
		conf, err := c.once(ctx, req)
		if err == nil {
			return conf, nil
		}
		lastErr = err
		if !retryable(err) || i == c.MaxRetries {
			break
		}
		backoff := c.backoff(i)
		c.log.Warn().Err(err).Int("attempt", i+1).Int("max", c.MaxRetries+1).
			Dur("backoff", backoff).Str("symbol", req.Symbol).Msg("confirmation failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("confirm %s %s: %w", req.Symbol, req.Kind, lastErr)
}

func (c *LLMClient) once(ctx context.Context, req Request) (*model.Confirmation, error) {
	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(respBody), 200)}
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("%w: reply has no message content", ErrBadVerdict)
	}
	return ParseVerdict(content.String())
}

package brief

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

const (
	systemPrompt = "You are a concise hotel revenue manager."
	userPrompt   = "You are a hotel revenue manager. Given JSON of the next 7 days with keys: " +
		"stay_date, room_type, demand_forecast, rec_adr, comp_median (optional). " +
		"Write a concise daily brief (<= 250 words) explaining why prices were set based on occupancy outlook, " +
		"day of week, and competitor medians. End with 3 bullet action items.\nData: "
)

// OpenAIWriter phrases the brief with the chat completions API.
type OpenAIWriter struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client
	backoff     time.Duration
}

// NewOpenAIWriter returns nil when no API key is configured.
func NewOpenAIWriter(cfg config.OpenAIConfig) *OpenAIWriter {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIWriter{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: timeout},
		backoff:     time.Second,
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

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Write implements Writer.
func (w *OpenAIWriter) Write(ctx context.Context, items []Item) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	req := chatRequest{
		Model: w.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt + string(data)},
		},
		Temperature: w.temperature,
	}

	var resp chatResponse
	if err := w.do(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("openai returned no message content")
	}
	logger.Infof("Brief generated by %s", w.model)
	return resp.Choices[0].Message.Content, nil
}

func (w *OpenAIWriter) do(ctx context.Context, path string, body, out any) error {
	backoff := w.backoff
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := w.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		var httpErr *openAIHTTPError
		if !errors.As(err, &httpErr) || !httpErr.retryable() || attempt >= w.maxRetries {
			return err
		}
		logger.Warnf("OpenAI request retrying (attempt %d/%d, sleep %s): %v", attempt+1, w.maxRetries, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (w *OpenAIWriter) doOnce(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

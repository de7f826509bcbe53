package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

// HTTPClient talks to a sentiment/entity detection service over JSON HTTP.
type HTTPClient struct {
	sentimentURL string
	entityURL    string
	apiKey       string
	c            *http.Client
}

// NewHTTPClient builds a client for the given service endpoints. Either URL
// may be empty when that capability is not deployed.
func NewHTTPClient(sentimentURL, entityURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		sentimentURL: sentimentURL,
		entityURL:    entityURL,
		apiKey:       apiKey,
		c:            &http.Client{Timeout: 30 * time.Second},
	}
}

type detectRequest struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
}

type entitiesResponse struct {
	Entities []segment.Entity `json:"Entities"`
}

func (h *HTTPClient) DetectSentiment(ctx context.Context, text, languageCode string) (segment.SentimentScores, error) {
	var out segment.SentimentScores
	if h.sentimentURL == "" {
		return out, fmt.Errorf("sentiment service not configured")
	}

	body, err := h.post(ctx, h.sentimentURL+"/sentiment", detectRequest{Text: text, LanguageCode: languageCode})
	if err != nil {
		return out, fmt.Errorf("sentiment: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("sentiment decode: %w", err)
	}
	return out, nil
}

func (h *HTTPClient) DetectEntities(ctx context.Context, text, languageCode string) ([]segment.Entity, error) {
	if h.entityURL == "" {
		return nil, fmt.Errorf("entity service not configured")
	}

	body, err := h.post(ctx, h.entityURL+"/entities", detectRequest{Text: text, LanguageCode: languageCode})
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}

	var out entitiesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("entities decode: %w", err)
	}
	return out.Entities, nil
}

func (h *HTTPClient) DetectCustomEntities(ctx context.Context, text, endpoint string) ([]segment.Entity, error) {
	if h.entityURL == "" {
		return nil, fmt.Errorf("entity service not configured")
	}

	body, err := h.post(ctx, h.entityURL+"/entities", detectRequest{Text: text, Endpoint: endpoint})
	if err != nil {
		return nil, fmt.Errorf("custom entities: %w", err)
	}

	var out entitiesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("custom entities decode: %w", err)
	}
	return out.Entities, nil
}

func (h *HTTPClient) post(ctx context.Context, url string, payload detectRequest) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", resp.Status, ErrThrottled)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: %s", resp.Status, string(body))
	}

	return body, nil
}

package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"schoolportal/internal/cache"
	"schoolportal/internal/crypto"
)

// Client wraps the external chat completion provider. Replies are cached per
// prompt so a provider outage can fall back to the last known answer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
}

func NewClient(baseURL, apiKey string, timeout time.Duration, c cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Reply string `json:"reply"`
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	cacheKey := "chat:" + crypto.HashToken(prompt)

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		if c.cache != nil {
			if cached, ok := c.cache.Get(ctx, cacheKey); ok {
				return string(cached), nil
			}
		}
		return "", err
	}

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, []byte(reply), c.cacheTTL)
	}
	return reply, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("chatbot: provider not configured")
	}

	body, err := json.Marshal(completionRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chatbot: provider returned %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", err
	}
	return completion.Reply, nil
}

package zep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client wraps the external conversational-memory service. One thread is
// created per agreement at upload time; chat turns are appended to it and
// the accumulated context is retrieved before every RAG query.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateThread(ctx context.Context, userID string) (string, error) {
	threadID := uuid.NewString()
	payload := map[string]string{
		"thread_id": threadID,
		"user_id":   userID,
	}
	if err := c.send(ctx, http.MethodPost, "/api/v2/threads", payload, nil, "create thread"); err != nil {
		return "", err
	}
	return threadID, nil
}

func (c *Client) ThreadContext(ctx context.Context, threadID string) (string, error) {
	var response struct {
		Context string `json:"context"`
	}
	path := fmt.Sprintf("/api/v2/threads/%s/context?mode=basic", threadID)
	if err := c.send(ctx, http.MethodGet, path, nil, &response, "thread context"); err != nil {
		return "", err
	}
	return response.Context, nil
}

func (c *Client) AppendUserMessage(ctx context.Context, threadID, content string) error {
	return c.appendMessage(ctx, threadID, "user", content)
}

func (c *Client) AppendAssistantMessage(ctx context.Context, threadID, content string) error {
	return c.appendMessage(ctx, threadID, "assistant", content)
}

func (c *Client) appendMessage(ctx context.Context, threadID, role, content string) error {
	payload := map[string]any{
		"messages": []map[string]string{
			{"role": role, "content": content},
		},
	}
	path := fmt.Sprintf("/api/v2/threads/%s/messages", threadID)
	return c.send(ctx, http.MethodPost, path, payload, nil, "append message")
}

func (c *Client) send(ctx context.Context, method, path string, payload, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("memory %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("memory %s status: %s", operation, resp.Status)
		}
		return fmt.Errorf("memory %s status: %s: %s", operation, resp.Status, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

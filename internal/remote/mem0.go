package remote

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
)

// Mem0Backend talks to the Mem0 v1 REST API.
type Mem0Backend struct {
	baseURL string
	apiKey  string
	userID  string
	client  *http.Client
}

// StatusError is a non-2xx response from the remote service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mem0 error %d: %s", e.StatusCode, e.Body)
}

type mem0Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mem0AddRequest struct {
	Messages []mem0Message `json:"messages"`
	UserID   string        `json:"user_id"`
	Metadata any           `json:"metadata,omitempty"`
	Infer    *bool         `json:"infer,omitempty"`
}

type mem0SearchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type mem0AddResult struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
}

// NewMem0Backend creates a backend for the given account. userID partitions
// the remote log; timeout bounds every request.
func NewMem0Backend(baseURL, apiKey, userID string, timeout time.Duration) *Mem0Backend {
	if baseURL == "" {
		baseURL = "https://api.mem0.ai"
	}
	if userID == "" {
		userID = "default"
	}
	return &Mem0Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		userID:  userID,
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *Mem0Backend) Add(ctx context.Context, req AddRequest) (string, error) {
	body := mem0AddRequest{
		Messages: []mem0Message{{Role: "user", Content: req.Content}},
		UserID:   b.userID,
		Metadata: req.Metadata,
	}
	if req.Raw {
		infer := false
		body.Infer = &infer
	}

	raw, err := b.do(ctx, http.MethodPost, "/v1/memories/", body)
	if err != nil {
		return "", err
	}

	// responses come back as a bare array, {results: [...]}, or a single object
	var results []mem0AddResult
	if err := decodeList(raw, &results); err == nil && len(results) > 0 {
		if results[0].ID != "" {
			return results[0].ID, nil
		}
		return results[0].EventID, nil
	}
	var single mem0AddResult
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("decode add response: %w", err)
	}
	if single.ID != "" {
		return single.ID, nil
	}
	return single.EventID, nil
}

func (b *Mem0Backend) Search(ctx context.Context, query string, limit int) ([]RawEntry, error) {
	raw, err := b.do(ctx, http.MethodPost, "/v1/memories/search/", mem0SearchRequest{
		Query: query, UserID: b.userID, Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	var entries []RawEntry
	if err := decodeList(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return entries, nil
}

func (b *Mem0Backend) GetAll(ctx context.Context) ([]RawEntry, error) {
	raw, err := b.do(ctx, http.MethodGet, "/v1/memories/?user_id="+url.QueryEscape(b.userID), nil)
	if err != nil {
		return nil, err
	}
	var entries []RawEntry
	if err := decodeList(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return entries, nil
}

func (b *Mem0Backend) Delete(ctx context.Context, id string) (bool, error) {
	_, err := b.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *Mem0Backend) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+b.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mem0 request failed: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(out))}
	}
	return out, nil
}

// decodeList accepts either a JSON array or an object wrapping it in "results".
func decodeList(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty response")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var wrapped struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	if len(wrapped.Results) == 0 {
		return fmt.Errorf("response has no results field")
	}
	return json.Unmarshal(wrapped.Results, out)
}

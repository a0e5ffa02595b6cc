package editsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPAuthority talks to the gradebook server over its JSON endpoints. It is
// the production Authority; tests substitute fakes.
type HTTPAuthority struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthority(baseURL string, client *http.Client) *HTTPAuthority {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthority{baseURL: baseURL, client: client}
}

type saveScoreRequest struct {
	Alias      string `json:"alias"`
	Assignment string `json:"assignment"`
	Value      string `json:"value"`
}

type createChildRequest struct {
	QualifiedName string `json:"qualified_name"`
	WeightSpec    string `json:"weight_str"`
}

func (a *HTTPAuthority) SaveScore(ctx context.Context, subject, item, value string) (Cascade, error) {
	payload := saveScoreRequest{Alias: subject, Assignment: item, Value: value}
	resp, err := a.post(ctx, "/save_score", payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("editsync: save_score returned %s", resp.Status)
	}
	var cascade Cascade
	if err := json.NewDecoder(resp.Body).Decode(&cascade); err != nil {
		return nil, fmt.Errorf("editsync: decoding cascade: %w", err)
	}
	return cascade, nil
}

func (a *HTTPAuthority) CreateChild(ctx context.Context, qualifiedName, weightSpec string) error {
	payload := createChildRequest{QualifiedName: qualifiedName, WeightSpec: weightSpec}
	resp, err := a.post(ctx, "/create-child", payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// The response body is unused; the caller reloads the whole table.
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("editsync: create-child returned %s", resp.Status)
	}
	return nil
}

func (a *HTTPAuthority) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.client.Do(req)
}

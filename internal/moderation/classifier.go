package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ContentKind selects the classification path for a payload.
type ContentKind string

const (
	KindImage ContentKind = "image"
	KindText  ContentKind = "text"
)

// Severity scale used by the safety classifier. 0 is clean, 4 is the
// highest violation bucket.
const (
	severityMedium = 2
	severityHigh   = 4
)

// expectedCategories is the category set requested on every analyze call.
var expectedCategories = []string{"sexual", "violence", "hate", "harassment", "self_harm"}

// ClassifierClient calls the external content-safety API.
type ClassifierClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClassifierClient creates a classifier client. An empty endpoint or key
// yields an unconfigured client; callers are expected to check Configured
// and use the local fallback instead.
func NewClassifierClient(endpoint, apiKey string, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the external classifier can be called at all.
func (c *ClassifierClient) Configured() bool {
	return c != nil && c.endpoint != "" && c.apiKey != ""
}

type analyzeRequest struct {
	Payload    string   `json:"payload"`
	Categories []string `json:"categories"`
}

// analyzeResponse carries one optional severity per category. A missing
// field means the category was not evaluated, which is not the same as a
// zero severity.
type analyzeResponse struct {
	Sexual     *int `json:"sexual"`
	Violence   *int `json:"violence"`
	Hate       *int `json:"hate"`
	Harassment *int `json:"harassment"`
	SelfHarm   *int `json:"self_harm"`
}

// scores returns the evaluated categories only.
func (r *analyzeResponse) scores() map[string]int {
	out := make(map[string]int)
	for name, sev := range map[string]*int{
		"sexual":     r.Sexual,
		"violence":   r.Violence,
		"hate":       r.Hate,
		"harassment": r.Harassment,
		"self_harm":  r.SelfHarm,
	} {
		if sev != nil {
			out[name] = *sev
		}
	}
	return out
}

// Analyze submits a payload for classification and returns per-category
// severities. A single attempt: transport-level retries are an infra
// concern, not built into this call.
func (c *ClassifierClient) Analyze(ctx context.Context, payload string) (map[string]int, error) {
	body, err := json.Marshal(analyzeRequest{
		Payload:    payload,
		Categories: expectedCategories,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return parsed.scores(), nil
}

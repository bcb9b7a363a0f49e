package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TranscriptionClient calls the external speech-to-text service.
type TranscriptionClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewTranscriptionClient creates a transcription client.
func NewTranscriptionClient(endpoint, apiKey string, timeout time.Duration) *TranscriptionClient {
	return &TranscriptionClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the service can be called.
func (c *TranscriptionClient) Configured() bool {
	return c != nil && c.endpoint != ""
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe submits an audio URL and returns the transcript.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcribeRequest{AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription service returned status %d", resp.StatusCode)
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return parsed.Text, nil
}

package attempt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPSubmitter posts attempts to the backend's submission endpoint.
// 5xx and transport errors are returned as-is (the caller queues the
// attempt offline); 4xx becomes a *RejectedError.
type HTTPSubmitter struct {
	baseURL string
	token   func() string
	client  *http.Client
}

// NewHTTPSubmitter creates a submitter for the API at baseURL. token is
// called per request so a refreshed credential is picked up automatically.
func NewHTTPSubmitter(baseURL string, token func() string, client *http.Client) *HTTPSubmitter {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSubmitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// submitEnvelope mirrors the server's response envelope.
type submitEnvelope struct {
	Data  *SubmitResult `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *HTTPSubmitter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/tests/submit", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != nil {
		if t := s.token(); t != "" {
			httpReq.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope submitEnvelope
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		message := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			message = envelope.Error.Message
		}
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("response missing result payload")
	}
	return envelope.Data, nil
}

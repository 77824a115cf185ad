package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RenderError is a non-2xx response from the render service.
type RenderError struct {
	StatusCode int
	Body       string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether the failure was on the server side.
func (e *RenderError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPRenderer submits jobs to a remote render service.
type HTTPRenderer struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPRenderer(baseURL, token string, logger *slog.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type renderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

func (r *HTTPRenderer) Render(ctx context.Context, job Job) (*Artifact, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal render job: %w", err)
	}

	url := r.baseURL + "/api/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Heimdex-Request-Id", uuid.NewString())
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	r.logger.Info("submitting render job",
		"url", url,
		"project_id", job.ProjectID,
		"elements", len(job.Elements),
		"duration", job.Duration,
		"body_bytes", len(body),
	)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RenderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result renderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if result.Status == "" {
		result.Status = "queued"
	}

	r.logger.Info("render job accepted", "remote_id", result.ID, "status", result.Status)
	return &Artifact{
		Format:   FormatRemote,
		Status:   result.Status,
		RemoteID: result.ID,
		URL:      result.URL,
	}, nil
}

package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 4096

// HTTPClient talks JSON over HTTP to a transcription service exposing a
// start/status job API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient constructs a collaborator client for the given base URL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type startJobRequest struct {
	Name         string `json:"name"`
	MediaURI     string `json:"media_uri"`
	MediaFormat  string `json:"media_format"`
	LanguageCode string `json:"language_code"`
	OutputBucket string `json:"output_bucket"`
}

type jobResponse struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	TranscriptKey string `json:"transcript_key,omitempty"`
	TranscriptURI string `json:"transcript_uri,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// StartJob implements Client.
func (c *HTTPClient) StartJob(ctx context.Context, input StartJobInput) error {
	body, err := json.Marshal(startJobRequest{
		Name:         input.Name,
		MediaURI:     input.AudioURI,
		MediaFormat:  input.MediaFormat,
		LanguageCode: input.LanguageCode,
		OutputBucket: input.OutputBucket,
	})
	if err != nil {
		return fmt.Errorf("encode start request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("start job %s: %s", resp.Status, readErrorBody(resp.Body))
	}
	return nil
}

// GetJob implements Client.
func (c *HTTPClient) GetJob(ctx context.Context, name string) (Job, error) {
	endpoint := c.baseURL + "/jobs/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Job{}, err
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Job{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Job{}, fmt.Errorf("get job %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	var out jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Job{}, fmt.Errorf("decode job status: %w", err)
	}
	return Job{
		Name:          out.Name,
		Status:        NormalizeStatus(out.Status),
		TranscriptKey: out.TranscriptKey,
		TranscriptURI: out.TranscriptURI,
		FailureReason: out.FailureReason,
	}, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(body))
}

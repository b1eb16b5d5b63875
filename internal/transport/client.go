package transport

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

// SpectraPath is the ingest endpoint for signed spectrum envelopes.
const SpectraPath = "/api/spectra"

// Client sends signed requests to an rfscope server.
type Client struct {
	baseURL string
	signer  *Signer
	http    *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets a 30 second
// timeout.
func NewClient(baseURL string, signer *Signer, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), signer: signer, http: httpClient}
}

// Do sends a signed request. extra headers are added after signing.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.signer.Sign(req, body); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.http.Do(req)
}

// IngestResult is the server's reply to PostSpectrum.
type IngestResult struct {
	ID       string  `json:"id" yaml:"id"`
	KeyID    string  `json:"key_id" yaml:"key_id"`
	NBins    int     `json:"n_bins" yaml:"n_bins"`
	RBWHz    float64 `json:"rbw_hz" yaml:"rbw_hz"`
	FStartHz float64 `json:"f_start_hz" yaml:"f_start_hz"`
}

// PostSpectrum uploads an encoded spectrum envelope.
func (c *Client) PostSpectrum(ctx context.Context, envelope string) (*IngestResult, error) {
	resp, err := c.Do(ctx, http.MethodPost, SpectraPath, []byte(envelope), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to post spectrum: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("spectrum upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out IngestResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

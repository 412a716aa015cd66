package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxAssetBytes bounds a fetched asset.
const DefaultMaxAssetBytes = 16 << 20

// AssetClient downloads binary resources over HTTP.
type AssetClient struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewAssetClient creates a new [AssetClient]. A nil client uses [http.DefaultClient].
func NewAssetClient(client *http.Client) *AssetClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &AssetClient{httpClient: client, maxBytes: DefaultMaxAssetBytes}
}

// AssetResponse is a fetched resource.
type AssetResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetch performs a GET request and returns the body of a 2xx response.
func (a *AssetClient) Fetch(ctx context.Context, url string) (*AssetResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > a.maxBytes {
		return nil, fmt.Errorf("asset at %s exceeds %d bytes", url, a.maxBytes)
	}

	return &AssetResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Package walrus is a client for the Walrus blob-storage HTTP API:
// content-addressable, epoch-bounded storage of raw binary blobs.
package walrus

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

const defaultEpochs = 1

// StoreResult is the normalized outcome of a successful store call,
// whichever of the two success shapes the service answered with.
type StoreResult struct {
	BlobID   string
	EndEpoch int64
	// Reused is true when the service already held an identical blob
	// (alreadyCertified) instead of creating a new one.
	Reused bool
}

// Client stores blobs against a single Walrus publisher endpoint.
type Client struct {
	endpoint string
	epochs   int
	httpc    *http.Client
}

// New creates a Client for the given publisher endpoint. Blobs are
// retained for epochs storage epochs (minimum 1).
func New(endpoint string, epochs int) *Client {
	if epochs <= 0 {
		epochs = defaultEpochs
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		epochs:   epochs,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// storeResponse covers both success shapes of PUT /v1/store.
type storeResponse struct {
	AlreadyCertified *struct {
		BlobID   string `json:"blobId"`
		EndEpoch int64  `json:"endEpoch"`
	} `json:"alreadyCertified"`
	NewlyCreated *struct {
		BlobObject struct {
			BlobID  string `json:"blobId"`
			Storage struct {
				EndEpoch int64 `json:"endEpoch"`
			} `json:"storage"`
		} `json:"blobObject"`
	} `json:"newlyCreated"`
}

// Store uploads data and returns its blob id and retention end epoch.
// Any non-200 status or unrecognized response shape is an error.
func (c *Client) Store(ctx context.Context, data []byte) (StoreResult, error) {
	url := fmt.Sprintf("%s/v1/store?epochs=%d", c.endpoint, c.epochs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return StoreResult{}, fmt.Errorf("building store request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return StoreResult{}, fmt.Errorf("storing blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return StoreResult{}, fmt.Errorf("store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return StoreResult{}, fmt.Errorf("decoding store response: %w", err)
	}

	switch {
	case parsed.AlreadyCertified != nil:
		return StoreResult{
			BlobID:   parsed.AlreadyCertified.BlobID,
			EndEpoch: parsed.AlreadyCertified.EndEpoch,
			Reused:   true,
		}, nil
	case parsed.NewlyCreated != nil:
		return StoreResult{
			BlobID:   parsed.NewlyCreated.BlobObject.BlobID,
			EndEpoch: parsed.NewlyCreated.BlobObject.Storage.EndEpoch,
		}, nil
	}
	return StoreResult{}, fmt.Errorf("unexpected store response shape")
}

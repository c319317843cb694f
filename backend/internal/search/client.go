// Package search is the HTTP adapter to the external visual-search
// service. The engine never talks to it directly; the server combines its
// results with the graph before answering.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"artlink/backend/pkg/logger"
)

// Client calls the visual-search service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a search client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Get(),
	}
}

// Box is a normalized region of an image, coordinates in [0, 1].
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SimilarQuery asks for images close to the positive examples and far
// from the negative ones.
type SimilarQuery struct {
	PositiveUIDs []string `json:"positive"`
	NegativeUIDs []string `json:"negative,omitempty"`
	NbResults    int      `json:"nb_results"`
	Index        string   `json:"index,omitempty"`
}

// RegionQuery asks for images similar to a region of one image.
type RegionQuery struct {
	ImageUID  string `json:"image"`
	Box       Box    `json:"box"`
	NbResults int    `json:"nb_results"`
	Index     string `json:"index,omitempty"`
}

// Result is one scored match.
type Result struct {
	ImageUID string  `json:"image"`
	Score    float64 `json:"score"`
}

type similarResponse struct {
	Results []Result `json:"results"`
}

type matrixResponse struct {
	Distances [][]float64 `json:"distances"`
}

// Similar returns the closest matches for the query.
func (c *Client) Similar(ctx context.Context, q SimilarQuery) ([]Result, error) {
	if len(q.PositiveUIDs) == 0 {
		return nil, fmt.Errorf("similar: at least one positive image is required")
	}
	var resp similarResponse
	if err := c.post(ctx, "/retrieval/similar", q, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("similarity search completed",
		zap.Int("positives", len(q.PositiveUIDs)),
		zap.Int("results", len(resp.Results)),
	)
	return resp.Results, nil
}

// SimilarRegion returns the closest matches for a region of one image.
func (c *Client) SimilarRegion(ctx context.Context, q RegionQuery) ([]Result, error) {
	if q.ImageUID == "" {
		return nil, fmt.Errorf("similar region: an image is required")
	}
	var resp similarResponse
	if err := c.post(ctx, "/retrieval/similar_region", q, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// DistanceMatrix returns the pairwise feature distances between the given
// images, in input order.
func (c *Client) DistanceMatrix(ctx context.Context, imageUIDs []string) ([][]float64, error) {
	if len(imageUIDs) == 0 {
		return [][]float64{}, nil
	}
	payload := map[string]interface{}{"images": imageUIDs}
	var resp matrixResponse
	if err := c.post(ctx, "/retrieval/distance_matrix", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Distances) != len(imageUIDs) {
		return nil, fmt.Errorf("distance matrix: got %d rows for %d images", len(resp.Distances), len(imageUIDs))
	}
	return resp.Distances, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("search request encoding failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("search request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("search service unreachable",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("search service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("search service error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("search service returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("search response decoding failed: %w", err)
	}
	return nil
}

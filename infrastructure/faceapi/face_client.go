package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"eventfaces/domain/services"
	"eventfaces/pkg/logger"
)

// FaceClient communicates with the face detection service (InsightFace style HTTP API)
type FaceClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// DetectedFace represents a detected face from the API
type DetectedFace struct {
	// Bounding box (normalized 0-1)
	BboxX      float64 `json:"bbox_x"`
	BboxY      float64 `json:"bbox_y"`
	BboxWidth  float64 `json:"bbox_width"`
	BboxHeight float64 `json:"bbox_height"`

	// Face embedding (512 dimensions for InsightFace)
	Embedding []float32 `json:"embedding"`

	// Detection confidence
	Confidence float64 `json:"confidence"`

	Landmarks json.RawMessage `json:"landmarks,omitempty"`
}

// ExtractRequest is the request to extract faces from an image
type ExtractRequest struct {
	ImageURL string `json:"image_url"`
}

// ExtractResponse is the response from face extraction
type ExtractResponse struct {
	Success bool           `json:"success"`
	Faces   []DetectedFace `json:"faces"`
	Error   string         `json:"error,omitempty"`

	// Processing info
	ProcessingTimeMs int `json:"processing_time_ms"`
}

// HealthResponse is the response from health check
type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

// NewFaceClient creates a new face API client. Every call is bounded by timeout.
func NewFaceClient(baseURL, apiKey string, timeout time.Duration) *FaceClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FaceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout + 5*time.Second, // context deadline fires first
		},
	}
}

// DetectFaces extracts faces from an image URL
func (c *FaceClient) DetectFaces(ctx context.Context, imageURL string) ([]services.DetectedFace, error) {
	jsonBody, err := json.Marshal(ExtractRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.extract(ctx, "/extract", "application/json", jsonBody)
}

// DetectFacesFromBytes extracts faces from image bytes
func (c *FaceClient) DetectFacesFromBytes(ctx context.Context, imageData []byte, mimeType string) ([]services.DetectedFace, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.extract(ctx, "/extract-bytes", mimeType, imageData)
}

func (c *FaceClient) extract(ctx context.Context, path, contentType string, payload []byte) ([]services.DetectedFace, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", services.ErrProviderError, err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", services.ErrProviderError, resp.StatusCode, truncate(body, 200))
	}

	var result ExtractResponse
	if err := json.Unmarshal(body, &result); err != nil {
		logger.FaceWarn("malformed_response", "Face API returned an unparseable body, treating as no faces", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return []services.DetectedFace{}, nil
	}

	if !result.Success {
		if result.Error == "" {
			return []services.DetectedFace{}, nil
		}
		return nil, fmt.Errorf("%w: %s", services.ErrProviderError, result.Error)
	}

	faces := make([]services.DetectedFace, 0, len(result.Faces))
	for _, f := range result.Faces {
		if len(f.Embedding) == 0 {
			continue
		}
		faces = append(faces, services.DetectedFace{
			BboxX:      f.BboxX,
			BboxY:      f.BboxY,
			BboxWidth:  f.BboxWidth,
			BboxHeight: f.BboxHeight,
			Confidence: f.Confidence,
			Embedding:  f.Embedding,
			Landmarks:  f.Landmarks,
		})
	}
	return faces, nil
}

// Health checks if the face API is healthy
func (c *FaceClient) Health(ctx context.Context) error {
	_, err := c.HealthInfo(ctx)
	return err
}

// HealthInfo returns the model details reported by the face API
func (c *FaceClient) HealthInfo(ctx context.Context) (*HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", services.ErrProviderError, err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: health check failed with status %d", services.ErrProviderError, resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse health response: %v", services.ErrProviderError, err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", services.ErrProviderError, result.Status)
	}

	return &result, nil
}

// IsAvailable checks if the face API is available
func (c *FaceClient) IsAvailable(ctx context.Context) bool {
	return c.Health(ctx) == nil
}

func (c *FaceClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// classify maps transport failures onto the provider error taxonomy
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", services.ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", services.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", services.ErrProviderError, err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:18081"
	detectEndpoint = "/face/insight-recognize"
)

// Client computes face insights using the recognition server. The server
// wraps an InsightFace model and is the slow, flaky part of the pipeline,
// so every failure mode surfaces as an error and the caller decides
// whether to retry with a fresh client.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new recognition client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// insightResponse represents the response from the recognition server.
// Insights is a pointer so a missing key can be told apart from an image
// with no faces.
type insightResponse struct {
	Insights *[]wireInsight `json:"insights"`
}

type wireInsight struct {
	BBox      []float64 `json:"bbox"`
	Embedding []float32 `json:"embedding"`
}

// Detect uploads the image and returns one insight per detected face.
// An image with no faces returns an empty slice and no error. A transport
// failure, a non-2xx status, an unparsable body and a body without the
// insights key are all reported as errors.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Insight, error) {
	body, err := c.postMultipartImage(ctx, detectEndpoint, imageData)
	if err != nil {
		return nil, err
	}

	var resp insightResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Insights == nil {
		return nil, errors.New("response is missing insights")
	}

	insights := make([]Insight, 0, len(*resp.Insights))
	for _, w := range *resp.Insights {
		box := make([]int, len(w.BBox))
		for i, v := range w.BBox {
			box[i] = int(math.Round(v))
		}
		insights = append(insights, Insight{BBox: box, Embedding: w.Embedding})
	}
	return insights, nil
}

// Close releases connections held by the client. The engine discards a
// client after a failed attempt and dials a fresh one.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// header based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

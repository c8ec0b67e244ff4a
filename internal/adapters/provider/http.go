package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultBaseURL = "http://localhost:8000"
	facePath       = "/embed/face"
	maxErrorBody   = 512
)

// Option applies a configuration option to the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// HTTPClient is an Encoder backed by the embedding server's /embed/face endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Encoder = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the embedding server at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	h := &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// DetectAndEncode posts image to the server and converts the detections.
func (h *HTTPClient) DetectAndEncode(ctx context.Context, image []byte) ([]model.Face, error) {
	start := time.Now()
	faces, err := h.detect(ctx, image)
	metrics.RecordProviderLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordProviderError()
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return faces, nil
}

func (h *HTTPClient) detect(ctx context.Context, image []byte) ([]model.Face, error) {
	body, err := h.postImage(ctx, facePath, image)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	faces := make([]model.Face, 0, len(resp.Faces))
	for _, d := range resp.Faces {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding", d.FaceIndex)
		}
		region, err := regionFromBBox(d.BBox)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", d.FaceIndex, err)
		}
		faces = append(faces, model.Face{Region: region, Embedding: d.Embedding})
	}
	return faces, nil
}

// regionFromBBox converts [x1, y1, x2, y2] to top, right, bottom, left.
func regionFromBBox(bbox []float64) (model.Region, error) {
	if len(bbox) != 4 {
		return model.Region{}, fmt.Errorf("bbox has %d values, want 4", len(bbox))
	}
	return model.Region{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}, nil
}

func (h *HTTPClient) postImage(ctx context.Context, endpoint string, image []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	hdr.Set("Content-Type", http.DetectContentType(image))
	part, err := writer.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/httpx"
	"github.com/jonathan/content-curator/internal/types"
)

const (
	// DefaultEndpoint is the Stable Image Ultra generation endpoint.
	DefaultEndpoint = "https://api.stability.ai/v2beta/stable-image/generate/ultra"
	// DefaultTimeout bounds one render call.
	DefaultTimeout = 60 * time.Second
)

// Renderer is the image-synthesis capability.
type Renderer interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

// RenderRecorder counts image renders.
type RenderRecorder interface {
	RecordImage(ctx context.Context)
}

// StabilityRenderer renders PNGs through the Stability AI REST API.
type StabilityRenderer struct {
	endpoint string
	apiKey   string
	executor *httpx.Executor
	recorder RenderRecorder
}

// NewStabilityRenderer returns a renderer with a single attempt per call.
func NewStabilityRenderer(endpoint, apiKey string, timeout time.Duration, recorder RenderRecorder) (*StabilityRenderer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stability API key is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := httpx.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = timeout
	return &StabilityRenderer{
		endpoint: endpoint,
		apiKey:   apiKey,
		executor: httpx.NewExecutor(&http.Client{Timeout: timeout + 5*time.Second}, cfg),
		recorder: recorder,
	}, nil
}

// Render implements Renderer.
func (s *StabilityRenderer) Render(ctx context.Context, prompt string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for k, v := range map[string]string{"prompt": prompt, "output_format": "png"} {
		if err := form.WriteField(k, v); err != nil {
			return nil, &RenderError{Message: "failed to build form", Cause: err}
		}
	}
	if err := form.Close(); err != nil {
		return nil, &RenderError{Message: "failed to build form", Cause: err}
	}
	payload := body.Bytes()

	if s.recorder != nil {
		s.recorder.RecordImage(ctx)
	}
	resp, err := s.executor.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Accept", "image/*")
		req.Header.Set("Content-Type", form.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return nil, &RenderError{Message: "request failed", Cause: err}
	}

	data, err := httpx.ReadBody(resp)
	if err != nil {
		return nil, &RenderError{Message: "failed to read image", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RenderError{StatusCode: resp.StatusCode, Message: types.TruncateRunes(strings.TrimSpace(string(data)), 200)}
	}
	if len(data) == 0 {
		return nil, &RenderError{Message: "empty image"}
	}
	return data, nil
}

// Illustrator renders a prompt and stores the PNG next to the run's artifacts.
type Illustrator struct {
	renderer Renderer
	logger   *logrus.Logger
	now      func() time.Time
}

// NewIllustrator returns an Illustrator. A nil renderer disables images.
func NewIllustrator(r Renderer, logger *logrus.Logger) *Illustrator {
	return &Illustrator{renderer: r, logger: logger, now: time.Now}
}

// Enabled reports whether a renderer is configured.
func (i *Illustrator) Enabled() bool {
	return i != nil && i.renderer != nil
}

// Illustrate renders prompt into dir/generated_image_<unix>.png and returns
// the path. Any failure returns a Fallback with an empty path.
func (i *Illustrator) Illustrate(ctx context.Context, prompt, dir string) types.Outcome[string] {
	if !i.Enabled() {
		return types.Fallback("", fmt.Errorf("image rendering disabled"))
	}
	log := i.logger.WithField("stage", "image")

	data, err := i.renderer.Render(ctx, prompt)
	if err != nil {
		log.WithError(err).Warn("Continuing without image")
		return types.Fallback("", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).Warn("Continuing without image")
		return types.Fallback("", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("generated_image_%d.png", i.now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.WithError(err).Warn("Continuing without image")
		return types.Fallback("", err)
	}
	log.WithField("path", path).Info("Image saved")
	return types.Ok(path)
}

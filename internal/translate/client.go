package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fmueller/subgen/internal/version"
	"go.uber.org/zap"
)

// ErrEngineUnreachable wraps transport failures talking to the engine.
var ErrEngineUnreachable = errors.New("translation engine unreachable")

// Response is an upstream reply kept byte for byte.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client talks to a LibreTranslate compatible server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("translation engine URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}, nil
}

// Languages fetches the engine's language list.
func (c *Client) Languages(ctx context.Context) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/languages", nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

type Request struct {
	Text   string
	Source string
	Target string
	Format string
}

// Translate posts a form-encoded translation request. A non-200 answer is
// returned as a Response, not an error.
func (c *Client) Translate(ctx context.Context, r Request) (Response, error) {
	format := r.Format
	if format == "" {
		format = "text"
	}
	form := url.Values{
		"q":      {r.Text},
		"source": {r.Source},
		"target": {r.Target},
		"format": {format},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (Response, error) {
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrEngineUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read translation engine response: %w", err)
	}

	c.log().Debug("translation engine replied",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

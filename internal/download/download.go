// Package download fetches model weights with retries and checksum checks.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fmueller/subgen/internal/version"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type Options struct {
	URL         string
	Destination string
	// ExpectedSHA256 wins over ChecksumURL when both are set.
	ExpectedSHA256 string
	ChecksumURL    string
	Retries        int
	NoProgress     bool
	// ProgressWriter receives the progress bar; it defaults to stderr and
	// is only drawn when that is a terminal.
	ProgressWriter io.Writer
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// StatusError is a non-200 answer from the download server.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// DownloadFile fetches opts.URL into opts.Destination. The body lands in a
// .part file next to the destination and is renamed into place only after
// the checksum matches.
func DownloadFile(ctx context.Context, opts Options) error {
	if opts.URL == "" {
		return errors.New("download URL is required")
	}
	if opts.Destination == "" {
		return errors.New("destination path is required")
	}
	opts = withDefaults(opts)

	expected := normalizeChecksum(opts.ExpectedSHA256)
	if expected == "" && opts.ChecksumURL != "" {
		sum, err := ResolveExpectedChecksum(ctx, opts.ChecksumURL, filepath.Base(opts.Destination), opts.HTTPClient)
		if err != nil {
			return fmt.Errorf("fetch checksum: %w", err)
		}
		expected = sum
	}

	if err := os.MkdirAll(filepath.Dir(opts.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, retryable(ctx, fetch(ctx, opts, expected))
	},
		backoff.WithBackOff(retryBackOff()),
		backoff.WithMaxTries(uint(opts.Retries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			opts.Logger.Warn("retrying download",
				zap.Int("attempt", attempt+1),
				zap.Int("max", opts.Retries),
				zap.Duration("wait", wait),
				zap.String("url", opts.URL),
				zap.Error(err),
			)
		}),
	)
	return err
}

func withDefaults(opts Options) Options {
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProgressWriter == nil {
		opts.ProgressWriter = os.Stderr
	}
	return opts
}

// retryable classifies err for backoff. Client errors and a cancelled
// context end the loop right away.
func retryable(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}

	var status *StatusError
	if errors.As(err, &status) && !status.Temporary() {
		return backoff.Permanent(err)
	}

	var wait *retryAfterError
	if errors.As(err, &wait) {
		return backoff.RetryAfter(wait.seconds)
	}
	return err
}

type retryAfterError struct {
	*StatusError
	seconds int
}

func (e *retryAfterError) Unwrap() error { return e.StatusError }

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 300 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

func fetch(ctx context.Context, opts Options, expected string) (err error) {
	partPath := opts.Destination + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(partPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status := &StatusError{URL: opts.URL, Code: resp.StatusCode}
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 && status.Temporary() {
			return &retryAfterError{StatusError: status, seconds: secs}
		}
		return status
	}

	hash := sha256.New()
	sink := io.MultiWriter(out, hash)
	bar := newProgressBar(opts, resp.ContentLength)
	if bar != nil {
		sink = io.MultiWriter(out, hash, bar)
	}

	if _, err := io.Copy(sink, resp.Body); err != nil {
		return fmt.Errorf("download body: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := compareChecksum(expected, hex.EncodeToString(hash.Sum(nil))); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(partPath, opts.Destination); err != nil {
		return fmt.Errorf("move temp file into destination: %w", err)
	}
	return nil
}

// newProgressBar returns nil unless a byte count is known and the progress
// writer is a terminal.
func newProgressBar(opts Options, size int64) *progressbar.ProgressBar {
	if opts.NoProgress || size <= 0 {
		return nil
	}
	f, ok := opts.ProgressWriter.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("downloading "+filepath.Base(opts.Destination)),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(f),
		progressbar.OptionClearOnFinish(),
	)
}

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
	"regexp"
	"strings"
	"time"

	"github.com/fmueller/subgen/internal/version"
)

// ErrChecksumMismatch is returned when content does not hash to the
// expected SHA-256.
var ErrChecksumMismatch = errors.New("checksum mismatch")

var checksumPattern = regexp.MustCompile(`(?i)\b([a-f0-9]{64})\b`)

func normalizeChecksum(sum string) string {
	return strings.ToLower(strings.TrimSpace(sum))
}

func compareChecksum(expected, actual string) error {
	if expected == "" || expected == actual {
		return nil
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
}

// ParseChecksum picks a SHA-256 out of a checksum listing. Lines naming
// fileName win; otherwise the first digest in the file is used.
func ParseChecksum(content []byte, fileName string) (string, error) {
	var fallback string
	for _, line := range strings.Split(string(content), "\n") {
		match := checksumPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		sum := strings.ToLower(match[1])
		if fileName != "" && strings.Contains(line, fileName) {
			return sum, nil
		}
		if fallback == "" {
			fallback = sum
		}
	}
	if fallback == "" {
		return "", errors.New("sha256 checksum not found")
	}
	return fallback, nil
}

// VerifyFileChecksum hashes path and compares it with expectedSHA256. An
// empty expectation always passes.
func VerifyFileChecksum(path, expectedSHA256 string) error {
	expected := normalizeChecksum(expectedSHA256)
	if expected == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}
	return compareChecksum(expected, hex.EncodeToString(h.Sum(nil)))
}

// ResolveExpectedChecksum fetches checksumURL and returns the digest listed
// for fileName.
func ResolveExpectedChecksum(ctx context.Context, checksumURL, fileName string, client *http.Client) (string, error) {
	if strings.TrimSpace(checksumURL) == "" {
		return "", errors.New("checksum URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checksumURL, nil)
	if err != nil {
		return "", fmt.Errorf("create checksum request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch checksum: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: checksumURL, Code: resp.StatusCode}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read checksum: %w", err)
	}
	return ParseChecksum(content, fileName)
}

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Normalizer converts arbitrary audio containers into the 16 kHz mono PCM
// WAV layout whisper.cpp expects.
type Normalizer struct {
	FFmpegPath string
	Logger     *zap.Logger
}

// NewNormalizer resolves ffmpeg on PATH (or at an explicit path). It returns
// nil without an error when ffmpeg is unavailable and was not requested
// explicitly, so callers can fall back to passing uploads through untouched.
func NewNormalizer(ffmpegPath string, logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	explicit := strings.TrimSpace(ffmpegPath) != ""
	name := "ffmpeg"
	if explicit {
		name = strings.TrimSpace(ffmpegPath)
	}

	resolved, err := exec.LookPath(name)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("ffmpeg not found at %s: %w", name, err)
		}
		logger.Warn("ffmpeg not found on PATH; uploads are passed to whisper unconverted")
		return nil, nil
	}

	return &Normalizer{FFmpegPath: resolved, Logger: logger}, nil
}

// Normalize writes a whisper-ready copy of inputPath into outDir and returns
// its path. Inputs already in the target layout are returned unchanged.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outDir string) (string, error) {
	if HasWAVExtension(inputPath) {
		if info, err := ProbeWAV(inputPath); err == nil && info.IsWhisperReady() {
			return inputPath, nil
		}
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(outDir, base+"_16k.wav")
	if out == inputPath {
		out = filepath.Join(outDir, base+"_16k_mono.wav")
	}

	cmd := exec.CommandContext(ctx, n.FFmpegPath,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	n.log().Debug("normalizing audio", zap.String("input", inputPath), zap.String("output", out))
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		return "", fmt.Errorf("ffmpeg: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (n *Normalizer) log() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}

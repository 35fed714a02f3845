// Package transcribe turns an uploaded audio file into subtitle segments.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/subgen/internal/audio"
	"github.com/fmueller/subgen/internal/subtitle"
	"github.com/fmueller/subgen/internal/whisper"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Models hands out ready model handles by name.
type Models interface {
	Get(ctx context.Context, name string) (*whisper.Handle, error)
}

// Normalizer rewrites an input file into something whisper can read.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outDir string) (string, error)
}

type Options struct {
	Models     Models
	ScratchDir string
	// Normalizer is optional; without it uploads reach the engine as-is.
	Normalizer  Normalizer
	SilenceGate bool
	SilenceDBFS float64
	// Language is reported for clips the silence gate skips.
	Language string
	Logger   *zap.Logger
}

type Service struct {
	opts Options
}

func NewService(opts Options) (*Service, error) {
	if opts.Models == nil {
		return nil, errors.New("transcribe service needs a model source")
	}
	if strings.TrimSpace(opts.ScratchDir) == "" {
		return nil, errors.New("transcribe service needs a scratch directory")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SilenceDBFS == 0 {
		opts.SilenceDBFS = audio.DefaultSilenceDBFS
	}
	return &Service{opts: opts}, nil
}

// Upload is the audio file to transcribe.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Transcribe runs model over the upload. Every file written for the request
// lives in its own scratch directory, which is removed before returning.
func (s *Service) Transcribe(ctx context.Context, model string, upload Upload) (subtitle.Transcript, error) {
	if upload.Body == nil {
		return subtitle.Transcript{}, errors.New("upload body is required")
	}

	handle, err := s.opts.Models.Get(ctx, model)
	if err != nil {
		return subtitle.Transcript{}, err
	}

	workDir := filepath.Join(s.opts.ScratchDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return subtitle.Transcript{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			s.opts.Logger.Warn("failed to remove scratch directory", zap.String("path", workDir), zap.Error(err))
		}
	}()

	audioPath := filepath.Join(workDir, uploadName(upload.Filename))
	if err := writeUpload(audioPath, upload.Body); err != nil {
		return subtitle.Transcript{}, err
	}

	if s.opts.Normalizer != nil {
		audioPath, err = s.opts.Normalizer.Normalize(ctx, audioPath, workDir)
		if err != nil {
			return subtitle.Transcript{}, fmt.Errorf("normalize audio: %w", err)
		}
	}

	if s.isSilent(audioPath) {
		return subtitle.Transcript{Segments: []subtitle.Segment{}, Language: s.silentLanguage()}, nil
	}

	started := time.Now()
	s.opts.Logger.Info("transcribing", zap.String("model", handle.Name), zap.String("audio", filepath.Base(audioPath)))
	transcript, err := handle.Transcribe(ctx, audioPath)
	if err != nil {
		s.opts.Logger.Warn("transcription failed", zap.String("model", handle.Name), zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return subtitle.Transcript{}, err
	}
	s.opts.Logger.Info("transcription finished",
		zap.String("model", handle.Name),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("segments", len(transcript.Segments)),
		zap.String("language", transcript.Language),
	)

	if transcript.Segments == nil {
		transcript.Segments = []subtitle.Segment{}
	}
	return transcript, nil
}

func (s *Service) isSilent(audioPath string) bool {
	if !s.opts.SilenceGate || !audio.HasWAVExtension(audioPath) {
		return false
	}

	silent, level, err := audio.IsSilentWAV(audioPath, s.opts.SilenceDBFS)
	if err != nil {
		s.opts.Logger.Warn("silence gate analysis failed; continuing transcription", zap.Error(err))
		return false
	}
	if silent {
		s.opts.Logger.Info("audio considered silent; skipping transcription",
			zap.Float64("rms_dbfs", level.RMSdBFS),
			zap.Float64("peak_dbfs", level.PeakdBFS),
			zap.Float64("threshold_dbfs", s.opts.SilenceDBFS),
		)
	}
	return silent
}

func (s *Service) silentLanguage() string {
	if s.opts.Language == "" || s.opts.Language == "auto" {
		return ""
	}
	return s.opts.Language
}

// uploadName keeps only the base name of a client supplied file name.
func uploadName(name string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == "" {
		return "upload.bin"
	}
	return base
}

func writeUpload(path string, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close upload file: %w", err)
	}
	return nil
}

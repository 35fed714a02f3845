// Package translate forwards subtitle files to an external translation engine.
package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/subgen/internal/subtitle"
	"go.uber.org/zap"
)

var ErrInvalidLanguage = errors.New("invalid language code")

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Engine is the upstream translation API.
type Engine interface {
	Languages(ctx context.Context) (Response, error)
	Translate(ctx context.Context, r Request) (Response, error)
}

// Outcome is the result of one translation round trip.
type Outcome struct {
	Status string
	// File is set on success.
	File string
	// Details carries the engine's raw reply on failure.
	Details string
}

type Service struct {
	engine     Engine
	scratchDir string
	source     string
	logger     *zap.Logger
}

func NewService(engine Engine, scratchDir, sourceLang string, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, errors.New("translate service needs an engine")
	}
	if strings.TrimSpace(scratchDir) == "" {
		return nil, errors.New("translate service needs a scratch directory")
	}
	if sourceLang == "" {
		sourceLang = "en"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, scratchDir: scratchDir, source: sourceLang, logger: logger}, nil
}

func (s *Service) Languages(ctx context.Context) (Response, error) {
	return s.engine.Languages(ctx)
}

// Translate reads subtitles_<source>.srt from the scratch directory, sends it
// upstream and, on HTTP 200, writes the raw reply to subtitles_<target>.srt.
// An empty source selects the service default.
func (s *Service) Translate(ctx context.Context, target, source string) (Outcome, error) {
	if source == "" {
		source = s.source
	}
	if err := checkLanguage(target); err != nil {
		return Outcome{}, err
	}
	if err := checkLanguage(source); err != nil {
		return Outcome{}, err
	}

	sourcePath := filepath.Join(s.scratchDir, subtitle.FileName(source))
	text, err := os.ReadFile(sourcePath)
	if err != nil {
		return Outcome{}, fmt.Errorf("read source subtitles: %w", err)
	}

	resp, err := s.engine.Translate(ctx, Request{
		Text:   string(text),
		Source: source,
		Target: target,
		Format: "text",
	})
	if err != nil {
		return Outcome{}, err
	}

	if !resp.OK() {
		s.logger.Warn("translation engine rejected request",
			zap.String("source", source),
			zap.String("target", target),
			zap.Int("status", resp.StatusCode),
		)
		return Outcome{Status: StatusFailed, Details: string(resp.Body)}, nil
	}

	name := subtitle.FileName(target)
	if err := os.WriteFile(filepath.Join(s.scratchDir, name), resp.Body, 0o644); err != nil {
		return Outcome{}, fmt.Errorf("write translated subtitles: %w", err)
	}

	s.logger.Info("subtitles translated", zap.String("source", source), zap.String("target", target), zap.String("file", name))
	return Outcome{Status: StatusSuccess, File: name}, nil
}

// checkLanguage only rejects codes that cannot be used in a file name; the
// engine decides whether a code is supported.
func checkLanguage(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLanguage)
	}
	if strings.ContainsAny(code, `/\`) || code == "." || code == ".." || strings.ContainsRune(code, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
	}
	return nil
}

package whisper

import (
	"context"

	"github.com/fmueller/subgen/internal/subtitle"
)

const DefaultBeamSize = 5

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
	BeamSize  int
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (subtitle.Transcript, error)
}

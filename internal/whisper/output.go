package whisper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fmueller/subgen/internal/subtitle"
)

// cliOutput mirrors the parts of whisper-cli's -oj document that we read.
type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Params struct {
		Language string `json:"language"`
	} `json:"params"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseCLIOutput(content []byte) (subtitle.Transcript, error) {
	var out cliOutput
	if err := json.Unmarshal(content, &out); err != nil {
		return subtitle.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}

	language := strings.TrimSpace(out.Result.Language)
	if language == "" {
		language = strings.TrimSpace(out.Params.Language)
	}

	segments := make([]subtitle.Segment, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		if isBlankAudioMarker(text) {
			continue
		}
		segments = append(segments, subtitle.Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  text,
		})
	}

	return subtitle.Transcript{Segments: segments, Language: language}, nil
}

const blankAudioToken = "[BLANK_AUDIO]"

func isBlankAudioMarker(text string) bool {
	return strings.EqualFold(text, blankAudioToken)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fmueller/subgen/internal/subtitle"
)

const (
	formatSRT  = "srt"
	formatJSON = "json"
)

func writeTranscript(w io.Writer, t subtitle.Transcript, format string) error {
	switch format {
	case formatSRT, "":
		_, err := io.WriteString(w, subtitle.FormatSRT(t.Segments))
		return err
	case formatJSON:
		if t.Segments == nil {
			t.Segments = []subtitle.Segment{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return fmt.Errorf("unsupported output format %q (want %s or %s)", format, formatSRT, formatJSON)
	}
}

func noSpeechHint() string {
	return "No speech detected. Check that the file contains audible speech, or lower --silence-threshold-dbfs."
}

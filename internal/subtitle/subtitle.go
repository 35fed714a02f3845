package subtitle

import (
	"fmt"
	"math"
	"strings"
)

// Segment is one timed utterance. Offsets are seconds from the start of the audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the ordered segment list plus the language the engine detected.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// FileName returns the scratch file name used for a language's subtitles.
func FileName(lang string) string {
	return fmt.Sprintf("subtitles_%s.srt", lang)
}

// FormatSRT renders segments as a SubRip document.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, formatTimestamp(seg.Start), formatTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

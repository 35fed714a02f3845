package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fmueller/subgen/internal/transcribe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file into subtitles",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if format != formatSRT && format != formatJSON {
				return usageErrorf("unsupported output format %q (want %s or %s)", format, formatSRT, formatJSON)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			audioPath := filepath.Clean(args[0])
			f, err := os.Open(audioPath)
			if err != nil {
				return fmt.Errorf("audio file not found: %w", err)
			}
			defer f.Close()

			stack, err := app.buildWhisperStack()
			if err != nil {
				return err
			}

			model := app.cfg.Whisper.DefaultModel
			app.log().Info("transcribing...", zap.String("audio", audioPath), zap.String("model", model), zap.String("language", app.cfg.Whisper.Language))
			spin := startSpinner(cmd.Context(), cmd.ErrOrStderr(), app.progressEnabled(), "Transcribing")
			started := time.Now()

			transcript, err := stack.service.Transcribe(cmd.Context(), model, transcribe.Upload{
				Filename: filepath.Base(audioPath),
				Body:     f,
			})
			spin.Stop()
			if err != nil {
				return err
			}
			app.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("segments", len(transcript.Segments)))

			if len(transcript.Segments) == 0 {
				app.log().Warn(noSpeechHint())
			}

			out := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer file.Close()
				out = file
			}
			return writeTranscript(out, transcript, format)
		},
	}

	bindWhisperModelFlags(cmd, app)
	bindWhisperEngineFlags(cmd, app)
	w := &app.cfg.Whisper
	cmd.Flags().StringVar(&w.ScratchDir, "scratch-dir", w.ScratchDir, "Directory for temporary files")
	cmd.Flags().StringVar(&format, "format", formatSRT, "Output format: srt|json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write subtitles to this file instead of stdout")
	return cmd
}

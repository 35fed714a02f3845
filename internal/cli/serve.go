package cli

import (
	"github.com/fmueller/subgen/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one of the HTTP services",
	}

	cmd.PersistentFlags().DurationVar(&app.cfg.ShutdownTimeout, "shutdown-timeout", app.cfg.ShutdownTimeout, "How long to wait for in-flight requests on shutdown")

	cmd.AddCommand(newServeWhisperCmd(app))
	cmd.AddCommand(newServeTranslateCmd(app))
	return cmd
}

func newServeWhisperCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whisper",
		Short: "Serve transcription and model management over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := app.whisperHandler()
			if err != nil {
				return err
			}
			return server.New(app.cfg.Whisper.ListenAddr, handler, app.cfg.ShutdownTimeout, app.log()).Run(cmd.Context())
		},
	}

	w := &app.cfg.Whisper
	cmd.Flags().StringVar(&w.ListenAddr, "listen", w.ListenAddr, "Address to listen on")
	cmd.Flags().StringVar(&w.ScratchDir, "scratch-dir", w.ScratchDir, "Directory for per-request upload files")
	cmd.Flags().Int64Var(&w.MaxUploadBytes, "max-upload-bytes", w.MaxUploadBytes, "Largest accepted upload")
	bindWhisperModelFlags(cmd, app)
	bindWhisperEngineFlags(cmd, app)
	return cmd
}

func newServeTranslateCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Serve subtitle translation backed by a LibreTranslate engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := app.translateHandler()
			if err != nil {
				return err
			}
			return server.New(app.cfg.Translate.ListenAddr, handler, app.cfg.ShutdownTimeout, app.log()).Run(cmd.Context())
		},
	}

	t := &app.cfg.Translate
	cmd.Flags().StringVar(&t.ListenAddr, "listen", t.ListenAddr, "Address to listen on")
	bindTranslateFlags(cmd, app)
	return cmd
}

func bindTranslateFlags(cmd *cobra.Command, app *appState) {
	t := &app.cfg.Translate
	cmd.Flags().StringVar(&t.UpstreamURL, "translate-url", t.UpstreamURL, "Base URL of the LibreTranslate engine")
	cmd.Flags().StringVar(&t.ScratchDir, "scratch-dir", t.ScratchDir, "Directory holding subtitles_<lang>.srt files")
	cmd.Flags().StringVar(&t.SourceLanguage, "source", t.SourceLanguage, "Default source language")
	cmd.Flags().DurationVar(&t.Timeout, "timeout", t.Timeout, "Timeout for one engine round trip")
}

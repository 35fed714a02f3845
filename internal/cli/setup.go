package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fmueller/subgen/internal/download"
	"github.com/fmueller/subgen/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupCmd(app *appState) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download and verify speech model assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			names := []string{app.cfg.Whisper.DefaultModel}
			if all {
				names = whisper.ModelNames()
			}

			for _, name := range names {
				resolved, err := whisper.ResolveModel(name, modelDir)
				if err != nil {
					return err
				}
				if err := app.setupModel(cmd.Context(), cmd.OutOrStdout(), resolved); err != nil {
					return err
				}
			}
			return nil
		},
	}

	bindWhisperModelFlags(cmd, app)
	cmd.Flags().BoolVar(&all, "all", false, "Install every supported model size")
	return cmd
}

// setupModel makes sure resolved is on disk with a matching checksum. A
// present file that fails verification is replaced.
func (a *appState) setupModel(ctx context.Context, out io.Writer, resolved whisper.ResolvedModel) error {
	checksum := resolved.SHA256
	if checksum == "" && resolved.SHA256URL != "" {
		sum, err := download.ResolveExpectedChecksum(ctx, resolved.SHA256URL, filepath.Base(resolved.Path), nil)
		if err != nil {
			return fmt.Errorf("resolve checksum for model %s: %w", resolved.Name, err)
		}
		checksum = sum
	}

	if !resolved.NeedsDownload && checksum != "" {
		if err := download.VerifyFileChecksum(resolved.Path, checksum); err != nil {
			a.log().Warn("model failed verification, fetching again", zap.String("model", resolved.Name), zap.Error(err))
			resolved.NeedsDownload = true
		}
	}

	if !resolved.NeedsDownload {
		fmt.Fprintf(out, "Model %s already present at %s\n", resolved.Name, resolved.Path)
		return nil
	}

	if err := a.fetchModel(ctx, resolved, checksum); err != nil {
		return err
	}
	fmt.Fprintf(out, "Model %s installed at %s\n", resolved.Name, resolved.Path)
	return nil
}

// fetchModel downloads the weights for resolved. An empty checksum falls
// back to the model's published checksum file.
func (a *appState) fetchModel(ctx context.Context, resolved whisper.ResolvedModel, checksum string) error {
	a.log().Info("downloading model", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: checksum,
		ChecksumURL:    resolved.SHA256URL,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	})
	if err != nil {
		return fmt.Errorf("download model %s: %w", resolved.Name, err)
	}
	return nil
}

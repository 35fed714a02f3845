package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fmueller/subgen/internal/whisper"
	"github.com/spf13/cobra"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the supported model sizes and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range whisper.ModelNames() {
				resolved, err := whisper.ResolveModel(name, modelDir)
				if err != nil {
					return err
				}
				status := "installed"
				if resolved.NeedsDownload {
					status = "missing"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, resolved.Path)
			}
			return w.Flush()
		},
	}

	bindWhisperModelFlags(cmd, app)
	return cmd
}

// ensureModelAvailable resolves name inside the model directory and
// downloads the weights when they are missing and auto-download is on.
func (a *appState) ensureModelAvailable(ctx context.Context, name string) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(name, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.cfg.Whisper.AutoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `subgen setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	if err := a.fetchModel(ctx, resolved, resolved.SHA256); err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

func joinedModelNames() string {
	return strings.Join(whisper.ModelNames(), "|")
}

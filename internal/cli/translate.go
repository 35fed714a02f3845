package cli

import (
	"fmt"
	"strings"

	"github.com/fmueller/subgen/internal/translate"
	"github.com/spf13/cobra"
)

func newTranslateCmd(app *appState) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate subtitles_<source>.srt in the scratch directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(lang) == "" {
				return usageErrorf("missing required flag --lang")
			}

			service, err := app.buildTranslateService()
			if err != nil {
				return err
			}

			outcome, err := service.Translate(cmd.Context(), strings.TrimSpace(lang), "")
			if err != nil {
				return err
			}
			if outcome.Status != translate.StatusSuccess {
				return fmt.Errorf("translation engine rejected the request: %s", strings.TrimSpace(outcome.Details))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outcome.File)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Target language code")
	bindTranslateFlags(cmd, app)

	cmd.AddCommand(newTranslateLanguagesCmd(app))
	return cmd
}

func newTranslateLanguagesCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Print the languages the translation engine supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := app.buildTranslateService()
			if err != nil {
				return err
			}

			resp, err := service.Languages(cmd.Context())
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("translation engine answered %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body)))
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(resp.Body)))
			return err
		},
	}

	bindTranslateFlags(cmd, app)
	return cmd
}

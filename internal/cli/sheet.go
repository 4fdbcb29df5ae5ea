package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/pipeline"
)

func newSheetCmd(a *app) *cobra.Command {
	var hlPath, source, out string
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Render the execution sheet for a highlights file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := pipeline.LoadHighlights(hlPath)
			if err != nil {
				return err
			}
			if source == "" {
				source = filepath.Base(hlPath)
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			text := p.Sheet(hs, source)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write sheet: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Execution sheet: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&hlPath, "highlights", "", "highlights.json written by analyze")
	cmd.Flags().StringVar(&source, "source", "", "Source label printed in the sheet")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to a file instead of stdout")
	_ = cmd.MarkFlagRequired("highlights")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Store a file in the upload directory and print its handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			h, err := p.Upload(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

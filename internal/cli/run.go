package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		af         analyzeFlags
		pf         processFlags
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "run <video|handle> <subtitles.srt|handle>",
		Short: "Analyze, select and process in one go",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, subs := args[0], args[1]
			req, err := af.request(cmd, a, subs)
			if err != nil {
				return err
			}
			pf.apply(a)
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			ctx, cancel := a.runContext()
			defer cancel()

			ar, err := p.Analyze(ctx, req)
			if err != nil {
				return err
			}
			hs := ar.Analysis.Highlights
			printHighlights(cmd.OutOrStdout(), hs)
			if len(hs) == 0 {
				return errors.New("no highlights to cut")
			}

			sel, err := pf.selected(a, hs)
			if err != nil {
				return err
			}
			preq := pipeline.ProcessRequest{
				Source:     video,
				Highlights: hs,
				Selected:   sel,
				Entries:    ar.Analysis.Entries,
				BaseName:   pf.name,
				RunDir:     ar.RunDir,
			}
			if !noProgress {
				preq.OnProgress = progressPrinter(cmd.ErrOrStderr())
			}
			res, err := p.Process(ctx, preq)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	af.register(cmd)
	pf.register(cmd)
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not print progress lines")
	return cmd
}

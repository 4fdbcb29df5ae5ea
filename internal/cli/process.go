package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/usecase"
)

// processFlags are shared by process and run.
type processFlags struct {
	selection string
	all       bool
	name      string
	burn      bool
}

func (f *processFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.selection, "select", "", `Highlights to cut, 1-based (e.g. "1,3-4")`)
	cmd.Flags().BoolVar(&f.all, "all", false, "Cut every highlight")
	cmd.Flags().StringVar(&f.name, "name", "", "Base name for output files (default: source file name)")
	cmd.Flags().BoolVar(&f.burn, "burn-subtitles", false, "Burn per-clip subtitles into the video")
	cmd.MarkFlagsMutuallyExclusive("select", "all")
}

// selected resolves the selection. With neither --select nor --all it asks
// interactively when possible and otherwise takes everything.
func (f *processFlags) selected(a *app, hs []highlights.Spec) ([]int, error) {
	switch {
	case f.selection != "":
		return timeline.ParseSelection(f.selection, len(hs))
	case f.all || len(hs) == 0 || !a.interactive():
		return timeline.All(len(hs)), nil
	}
	picked, err := a.prompter.MultiSelect("Select highlights to cut:", highlightOptions(hs))
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	return picked, nil
}

func (f *processFlags) apply(a *app) {
	if f.burn {
		a.cfg.Media.BurnSubtitles = true
	}
}

func newProcessCmd(a *app) *cobra.Command {
	var (
		f          processFlags
		hlPath     string
		subtitles  string
		out        string
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "process <video|handle>",
		Short: "Cut selected highlights and build the compilation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := pipeline.LoadHighlights(hlPath)
			if err != nil {
				return err
			}
			if len(hs) == 0 {
				return errors.New("highlights file is empty")
			}
			sel, err := f.selected(a, hs)
			if err != nil {
				return err
			}
			if out != "" {
				a.cfg.Paths.OutputDir = out
			}
			f.apply(a)

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			ctx, cancel := a.runContext()
			defer cancel()

			req := pipeline.ProcessRequest{
				Source:     args[0],
				Highlights: hs,
				Selected:   sel,
				Subtitles:  subtitles,
				BaseName:   f.name,
			}
			if !noProgress {
				req.OnProgress = progressPrinter(cmd.ErrOrStderr())
			}
			res, err := p.Process(ctx, req)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&hlPath, "highlights", "", "highlights.json written by analyze")
	cmd.Flags().StringVar(&subtitles, "subtitles", "", "Subtitle file for per-clip subtitle tracks")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not print progress lines")
	_ = cmd.MarkFlagRequired("highlights")
	return cmd
}

func progressPrinter(w io.Writer) func(usecase.Progress) {
	return func(p usecase.Progress) {
		switch p.Stage {
		case usecase.StageCut:
			fmt.Fprintf(w, "[%3d%%] cut clip %d\n", p.Percent(), p.Ordinal)
		default:
			fmt.Fprintf(w, "[%3d%%] %s\n", p.Percent(), p.Stage)
		}
	}
}

func printResult(w io.Writer, res pipeline.ProcessResult) {
	fmt.Fprintf(w, "Clips (%d):\n", len(res.Clips))
	for _, c := range res.Clips {
		fmt.Fprintf(w, "  %s\n", c)
	}
	fmt.Fprintf(w, "Compilation: %s\n", res.Compilation)
	fmt.Fprintf(w, "Execution sheet: %s\n", res.Sheet)
	fmt.Fprintf(w, "Manifest: %s\n", res.Manifest)
}

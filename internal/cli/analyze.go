package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/usecase"
)

// analyzeFlags are shared by analyze and run.
type analyzeFlags struct {
	synopsis     string
	synopsisFile string
	maxHL        int
	minSec       float64
	maxSec       float64
	strict       bool
	out          string
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.synopsis, "synopsis", "", "Short synopsis of the source")
	cmd.Flags().StringVar(&f.synopsisFile, "synopsis-file", "", "Read the synopsis from a file")
	cmd.Flags().IntVar(&f.maxHL, "max-highlights", 0, "Maximum number of highlights, 1-20 (default from config)")
	cmd.Flags().Float64Var(&f.minSec, "min", 0, "Minimum highlight length in seconds (default from config)")
	cmd.Flags().Float64Var(&f.maxSec, "max", 0, "Maximum highlight length in seconds (default from config)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on malformed subtitle blocks instead of skipping them")
	cmd.Flags().StringVar(&f.out, "out", "", "Output directory (default from config)")
	cmd.MarkFlagsMutuallyExclusive("synopsis", "synopsis-file")
}

// constraints starts from the config and applies only the flags the user set.
func (f *analyzeFlags) constraints(cmd *cobra.Command, a *app) usecase.Constraints {
	c := a.cfg.Constraints()
	if cmd.Flags().Changed("max-highlights") {
		c.MaxHighlights = f.maxHL
	}
	if cmd.Flags().Changed("min") {
		c.MinDuration = seconds(f.minSec)
	}
	if cmd.Flags().Changed("max") {
		c.MaxDuration = seconds(f.maxSec)
	}
	return c
}

func (f *analyzeFlags) readSynopsis() (string, error) {
	if f.synopsisFile == "" {
		return f.synopsis, nil
	}
	b, err := os.ReadFile(f.synopsisFile)
	if err != nil {
		return "", fmt.Errorf("read synopsis: %w", err)
	}
	return string(b), nil
}

func (f *analyzeFlags) request(cmd *cobra.Command, a *app, subtitles string) (pipeline.AnalyzeRequest, error) {
	if f.out != "" {
		a.cfg.Paths.OutputDir = f.out
	}
	synopsis, err := f.readSynopsis()
	if err != nil {
		return pipeline.AnalyzeRequest{}, err
	}
	return pipeline.AnalyzeRequest{
		Subtitles:   subtitles,
		Synopsis:    synopsis,
		Constraints: f.constraints(cmd, a),
		Strict:      f.strict,
	}, nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <subtitles.srt|handle>",
		Short: "Pick highlights from a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, a, args[0])
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			ctx, cancel := a.runContext()
			defer cancel()

			res, err := p.Analyze(ctx, req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printHighlights(out, res.Analysis.Highlights)
			fmt.Fprintf(out, "\nHighlights: %s\nPreview sheet: %s\n", res.Highlights, res.PreviewSheet)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// runContext bounds a command by run_timeout and cancels on interrupt.
func (a *app) runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printHighlights(w io.Writer, hs []highlights.Spec) {
	if len(hs) == 0 {
		fmt.Fprintln(w, "No highlights returned.")
		return
	}
	for i, h := range hs {
		fmt.Fprintf(w, "%2d. %s [%s - %s, %.1fs]\n", i+1, h.Title, h.Start, h.End, h.Duration().Seconds())
	}
}

func highlightOptions(hs []highlights.Spec) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = fmt.Sprintf("%s (%s - %s)", h.Title, h.Start, h.End)
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/usecase"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd(newApp())
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", usecase.Explain(err))
		os.Exit(1)
	}
}

// app carries what every command needs. Tests replace the factories.
type app struct {
	configPath string
	verbose    bool
	quiet      bool

	cfg config.Config
	log *slog.Logger

	prompter    Prompter
	interactive func() bool
	newPipeline func(config.Config, *slog.Logger) (*pipeline.Pipeline, error)
	logOut      io.Writer
}

func newApp() *app {
	return &app{
		prompter:    DefaultPrompter,
		interactive: stdinIsTerminal,
		newPipeline: pipeline.New,
		logOut:      os.Stderr,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "reelcut",
		Short: "Turn subtitles and a source video into short highlight reels",
		Long: `reelcut asks a language model to pick highlight segments from an SRT file,
cuts those segments out of the source video with ffmpeg, joins them into a
compilation and writes an execution sheet describing each reel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setupLogging()
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Config file (YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")

	root.AddCommand(
		newAnalyzeCmd(a),
		newProcessCmd(a),
		newRunCmd(a),
		newSheetCmd(a),
		newUploadCmd(a),
		newSetupCmd(a),
	)
	return root
}

func (a *app) setupLogging() {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	if a.quiet {
		level = slog.LevelError
	}
	a.log = slog.New(slog.NewTextHandler(a.logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	// The default path is optional; an explicit one must exist unless setup
	// is about to create it.
	optional := !cmd.Flags().Changed("config") || cmd.Name() == "setup"
	cfg, err := config.Load(a.configPath, optional)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	return a.newPipeline(a.cfg, a.log)
}

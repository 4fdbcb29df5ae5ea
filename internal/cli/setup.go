package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
)

func newSetupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the configuration file interactively",
		Long: `Prompts for the most common settings and writes them to the file named by
--config. API keys are read from the environment and never stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSetup(a.prompter, a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", a.configPath)
			return nil
		},
	}
}

// runSetup asks for settings starting from the existing file (or defaults)
// and saves the result.
func runSetup(p Prompter, path string) error {
	if _, err := os.Stat(path); err == nil {
		overwrite, err := p.Confirm(fmt.Sprintf("%s exists. Overwrite?", path), false)
		if err != nil {
			return err
		}
		if !overwrite {
			return fmt.Errorf("setup cancelled: %s left unchanged", path)
		}
	}

	cfg, err := config.Load(path, true)
	if err != nil {
		return err
	}

	if cfg.Paths.OutputDir, err = p.Input("Output directory:", cfg.Paths.OutputDir); err != nil {
		return err
	}
	if cfg.Paths.UploadsDir, err = p.Input("Uploads directory:", cfg.Paths.UploadsDir); err != nil {
		return err
	}
	if cfg.Oracle.Provider, err = p.Select("Highlight provider:", []string{config.ProviderOpenRouter, config.ProviderOpenAI}, cfg.Oracle.Provider); err != nil {
		return err
	}
	if cfg.Oracle.Model, err = p.Input("Model (empty for the provider default):", cfg.Oracle.Model); err != nil {
		return err
	}
	if err := promptInt(p, "Maximum highlights (1-20):", &cfg.Resolver.MaxHighlights); err != nil {
		return err
	}
	if err := promptSeconds(p, "Minimum highlight length (seconds):", &cfg.Resolver.MinDuration); err != nil {
		return err
	}
	if err := promptSeconds(p, "Maximum highlight length (seconds):", &cfg.Resolver.MaxDuration); err != nil {
		return err
	}
	if cfg.Media.Subtitles, err = p.Confirm("Write per-clip subtitle files?", cfg.Media.Subtitles); err != nil {
		return err
	}
	if cfg.Media.Subtitles {
		if cfg.Media.BurnSubtitles, err = p.Confirm("Burn subtitles into clips?", cfg.Media.BurnSubtitles); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(cfg, path)
}

func promptInt(p Prompter, msg string, dst *int) error {
	s, err := p.Input(msg, strconv.Itoa(*dst))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s %q is not a number", msg, s)
	}
	*dst = n
	return nil
}

func promptSeconds(p Prompter, msg string, dst *time.Duration) error {
	s, err := p.Input(msg, strconv.FormatFloat(dst.Seconds(), 'f', -1, 64))
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%s %q is not a number", msg, s)
	}
	*dst = seconds(f)
	return nil
}

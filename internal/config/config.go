// Package config loads reelcut settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/reelcut/internal/usecase"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"

	// DefaultPath is read when --config is not given. A missing file is fine.
	DefaultPath = "reelcut.yaml"
)

type Config struct {
	Paths      PathsConfig    `yaml:"paths"`
	Oracle     OracleConfig   `yaml:"oracle"`
	Resolver   ResolverConfig `yaml:"resolver"`
	Media      MediaConfig    `yaml:"media"`
	RunTimeout time.Duration  `yaml:"run_timeout"`
}

type PathsConfig struct {
	UploadsDir string `yaml:"uploads_dir"`
	OutputDir  string `yaml:"output_dir"`
}

type OracleConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	AllowedHosts      []string      `yaml:"allowed_hosts"`
	Temperature       float64       `yaml:"temperature"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`

	// Keys come from the environment only and are never written back.
	APIKey string `yaml:"-"`
}

type ResolverConfig struct {
	MaxHighlights  int           `yaml:"max_highlights"`
	MinDuration    time.Duration `yaml:"min_duration"`
	MaxDuration    time.Duration `yaml:"max_duration"`
	DurationPolicy string        `yaml:"duration_policy"`
}

type MediaConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	VideoCodec    string        `yaml:"video_codec"`
	AudioCodec    string        `yaml:"audio_codec"`
	Preset        string        `yaml:"preset"`
	CutTimeout    time.Duration `yaml:"cut_timeout"`
	ConcatTimeout time.Duration `yaml:"concat_timeout"`
	Parallelism   int           `yaml:"parallelism"`
	Subtitles     bool          `yaml:"subtitles"`
	BurnSubtitles bool          `yaml:"burn_subtitles"`
}

func Default() Config {
	return Config{
		Paths: PathsConfig{
			UploadsDir: ".cache/uploads",
			OutputDir:  "out",
		},
		Oracle: OracleConfig{
			// An empty model lets each adapter pick its own default.
			Provider:        ProviderOpenRouter,
			Temperature:     0.7,
			MaxOutputTokens: 6000,
			Timeout:         5 * time.Minute,
		},
		Resolver: ResolverConfig{
			MaxHighlights:  5,
			MinDuration:    8 * time.Second,
			MaxDuration:    15 * time.Second,
			DurationPolicy: string(usecase.PolicyWarn),
		},
		Media: MediaConfig{
			FFmpegPath:    "ffmpeg",
			VideoCodec:    "libx264",
			AudioCodec:    "aac",
			Preset:        "fast",
			CutTimeout:    5 * time.Minute,
			ConcatTimeout: 10 * time.Minute,
			Parallelism:   1,
		},
		RunTimeout: 3 * time.Hour,
	}
}

// Load reads path over the defaults and then applies environment overrides.
// When optional is set a missing file yields the defaults.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// Save writes cfg as YAML. API keys are not written.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Oracle.Provider, "REELCUT_ORACLE_PROVIDER")
	set(&c.Oracle.Model, "REELCUT_ORACLE_MODEL")
	set(&c.Oracle.BaseURL, "REELCUT_ORACLE_BASE_URL")
	set(&c.Paths.OutputDir, "REELCUT_OUTPUT_DIR")
	set(&c.Paths.UploadsDir, "REELCUT_UPLOADS_DIR")
	if v := strings.TrimSpace(getenv("REELCUT_ORACLE_ALLOWED_HOSTS")); v != "" {
		c.Oracle.AllowedHosts = strings.Split(v, ",")
	}

	c.Oracle.Provider = strings.ToLower(c.Oracle.Provider)
	switch c.Oracle.Provider {
	case ProviderOpenAI:
		c.Oracle.APIKey = getenv("OPENAI_API_KEY")
	default:
		c.Oracle.APIKey = getenv("OPENROUTER_API_KEY")
	}
}

// Validate checks everything except the API key, which only matters for
// commands that reach the oracle.
func (c Config) Validate() error {
	switch c.Oracle.Provider {
	case ProviderOpenRouter:
		if err := openrouter.ValidateBaseURL(c.Oracle.BaseURL, c.Oracle.AllowedHosts); err != nil {
			return err
		}
	case ProviderOpenAI:
	default:
		return fmt.Errorf("oracle.provider %q is not supported (want %s or %s)", c.Oracle.Provider, ProviderOpenRouter, ProviderOpenAI)
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return fmt.Errorf("oracle.temperature must be within [0, 2], got %g", c.Oracle.Temperature)
	}
	if c.Oracle.RequestsPerMinute < 0 {
		return fmt.Errorf("oracle.requests_per_minute must be >= 0")
	}
	if _, err := usecase.ParseDurationPolicy(c.Resolver.DurationPolicy); err != nil {
		return fmt.Errorf("resolver.duration_policy: %w", err)
	}
	if err := c.Constraints().Validate(); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"oracle.timeout":       c.Oracle.Timeout,
		"media.cut_timeout":    c.Media.CutTimeout,
		"media.concat_timeout": c.Media.ConcatTimeout,
		"run_timeout":          c.RunTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0, got %s", name, d)
		}
	}
	if c.Media.Parallelism < 1 {
		return fmt.Errorf("media.parallelism must be >= 1, got %d", c.Media.Parallelism)
	}
	return nil
}

// RequireAPIKey reports the env var to set when the key is missing.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Oracle.APIKey) != "" {
		return nil
	}
	if c.Oracle.Provider == ProviderOpenAI {
		return errors.New("OPENAI_API_KEY is required (set it in .env)")
	}
	return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
}

func (c Config) Constraints() usecase.Constraints {
	return usecase.Constraints{
		MaxHighlights: c.Resolver.MaxHighlights,
		MinDuration:   c.Resolver.MinDuration,
		MaxDuration:   c.Resolver.MaxDuration,
	}
}

// UsecaseOptions maps the file settings onto usecase.Options. Validate
// must have passed.
func (c Config) UsecaseOptions() usecase.Options {
	policy, _ := usecase.ParseDurationPolicy(c.Resolver.DurationPolicy)
	return usecase.Options{
		Resolver: usecase.ResolverOptions{
			Model:           c.Oracle.Model,
			Temperature:     c.Oracle.Temperature,
			MaxOutputTokens: c.Oracle.MaxOutputTokens,
			Timeout:         c.Oracle.Timeout,
			Policy:          policy,
		},
		Codec:         c.Media.codec(),
		CutTimeout:    c.Media.CutTimeout,
		ConcatTimeout: c.Media.ConcatTimeout,
		Parallelism:   c.Media.Parallelism,
		Subtitles:     c.Media.Subtitles,
		BurnSubtitles: c.Media.BurnSubtitles,
	}
}

func (m MediaConfig) codec() ports.CodecOptions {
	return ports.CodecOptions{VideoCodec: m.VideoCodec, AudioCodec: m.AudioCodec, Preset: m.Preset}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

// Global configuration structure.
type Global struct {
	Campaign         string `mapstructure:"campaign" yaml:"campaign"`
	Timezone         string `mapstructure:"timezone" yaml:"timezone"`
	HeaderSep        string `mapstructure:"header_sep" yaml:"header_sep"`
	HeaderIndicator  string `mapstructure:"header_indicator" yaml:"header_indicator"`
	AllowSplitLines  bool   `mapstructure:"allow_split_lines" yaml:"allow_split_lines"`
	AllowMapFailures bool   `mapstructure:"allow_map_failures" yaml:"allow_map_failures"`
	// Extra vocabulary files layered over the campaign definitions
	MetadataVocabularies []string `mapstructure:"metadata_vocabularies" yaml:"metadata_vocabularies"`
	PrimaryVocabularies  []string `mapstructure:"primary_vocabularies" yaml:"primary_vocabularies"`

	// Batch
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".insitu"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.insitu/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INSITU")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("campaign", variables.DefaultCampaign)
	v.SetDefault("timezone", "US/Mountain")
	v.SetDefault("header_sep", ",")
	v.SetDefault("header_indicator", "#")
	v.SetDefault("allow_split_lines", false)
	v.SetDefault("allow_map_failures", false)
	v.SetDefault("metadata_vocabularies", []string{})
	v.SetDefault("primary_vocabularies", []string{})
	v.SetDefault("workers", 4)
	v.SetDefault("output_dir", "")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return &c, nil
}

// Vocabularies loads the campaign vocabularies with the configured overlays.
func (c *Global) Vocabularies() (*variables.Vocabularies, error) {
	return variables.Load(c.Campaign, variables.Options{AllowMapFailures: c.AllowMapFailures}, c.MetadataVocabularies, c.PrimaryVocabularies)
}

// ParserOptions converts the configuration into parse options sharing one
// set of vocabularies.
func (c *Global) ParserOptions(log *zap.Logger) (parser.Options, error) {
	vocab, err := c.Vocabularies()
	if err != nil {
		return parser.Options{}, err
	}
	opts := parser.DefaultOptions()
	opts.Timezone = c.Timezone
	if c.HeaderSep != "" {
		opts.HeaderSep = c.HeaderSep
	}
	opts.HeaderIndicator = c.HeaderIndicator
	opts.AllowSplitLines = c.AllowSplitLines
	opts.AllowMapFailures = c.AllowMapFailures
	opts.Vocabularies = vocab
	opts.Logger = log
	return opts, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/menta2k/image-annotator/pkg/editor"
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/suggest"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Config holds the application configuration
type Config struct {
	LogLevel string        `json:"logLevel" mapstructure:"logLevel"`
	Classes  string        `json:"classes" mapstructure:"classes"`
	Editor   EditorConfig  `json:"editor" mapstructure:"editor"`
	Snap     SnapConfig    `json:"snap" mapstructure:"snap"`
	Store    StoreConfig   `json:"store" mapstructure:"store"`
	Suggest  SuggestConfig `json:"suggest" mapstructure:"suggest"`
	Output   OutputConfig  `json:"output" mapstructure:"output"`
}

// EditorConfig holds the interaction parameters
type EditorConfig struct {
	CornerHitRadius   int     `json:"cornerHitRadius" mapstructure:"cornerHitRadius"`
	MinCreateArea     int     `json:"minCreateArea" mapstructure:"minCreateArea"`
	SnapByDefault     bool    `json:"snapByDefault" mapstructure:"snapByDefault"`
	DefaultMarkWidth  float64 `json:"defaultMarkWidth" mapstructure:"defaultMarkWidth"`
	DefaultMarkHeight float64 `json:"defaultMarkHeight" mapstructure:"defaultMarkHeight"`
}

// SnapConfig holds the snap and binarization parameters
type SnapConfig struct {
	HorizontalTolerance int     `json:"horizontalTolerance" mapstructure:"horizontalTolerance"`
	VerticalTolerance   int     `json:"verticalTolerance" mapstructure:"verticalTolerance"`
	MinSize             int     `json:"minSize" mapstructure:"minSize"`
	RunawayFactor       float64 `json:"runawayFactor" mapstructure:"runawayFactor"`
	Threshold           int     `json:"threshold" mapstructure:"threshold"`
	BlurSigma           float64 `json:"blurSigma" mapstructure:"blurSigma"`
	ContentIsDark       bool    `json:"contentIsDark" mapstructure:"contentIsDark"`
}

// StoreConfig locates the mark database. An empty path keeps marks in memory.
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SuggestConfig selects the vision model backend
type SuggestConfig struct {
	Backend       string  `json:"backend" mapstructure:"backend"`
	URL           string  `json:"url" mapstructure:"url"`
	Model         string  `json:"model" mapstructure:"model"`
	SendSize      int     `json:"sendSize" mapstructure:"sendSize"`
	SendQuality   int     `json:"sendQuality" mapstructure:"sendQuality"`
	MinConfidence float64 `json:"minConfidence" mapstructure:"minConfidence"`
}

// OutputConfig holds configuration for rendered overlays and crops
type OutputConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Format   string `json:"format" mapstructure:"format"`
	Quality  int    `json:"quality" mapstructure:"quality"`
	Lossless bool   `json:"lossless" mapstructure:"lossless"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("classes", "")

	v.SetDefault("editor.cornerHitRadius", 10)
	v.SetDefault("editor.minCreateArea", 100)
	v.SetDefault("editor.snapByDefault", true)
	v.SetDefault("editor.defaultMarkWidth", 0.1)
	v.SetDefault("editor.defaultMarkHeight", 0.1)

	v.SetDefault("snap.horizontalTolerance", 5)
	v.SetDefault("snap.verticalTolerance", 5)
	v.SetDefault("snap.minSize", 10)
	v.SetDefault("snap.runawayFactor", 3.0)
	v.SetDefault("snap.threshold", 128)
	v.SetDefault("snap.blurSigma", 0.0)
	v.SetDefault("snap.contentIsDark", true)

	v.SetDefault("store.path", "")

	v.SetDefault("suggest.backend", "ollama")
	v.SetDefault("suggest.url", "http://localhost:11434")
	v.SetDefault("suggest.model", "qwen2.5vl:7b")
	v.SetDefault("suggest.sendSize", 1024)
	v.SetDefault("suggest.sendQuality", 85)
	v.SetDefault("suggest.minConfidence", 0.25)

	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.format", "jpg")
	v.SetDefault("output.quality", 90)
	v.SetDefault("output.lossless", false)
}

// Default returns a configuration with default values
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// Load reads a JSON configuration file on top of the defaults.
// Environment variables such as ANNOTATOR_SNAP_MINSIZE override both.
// An empty filename yields defaults plus environment.
func Load(filename string) (*Config, error) {
	v := newViper()
	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ANNOTATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Editor.CornerHitRadius < 1 {
		return fmt.Errorf("editor.cornerHitRadius must be positive")
	}
	if c.Editor.MinCreateArea < 0 {
		return fmt.Errorf("editor.minCreateArea cannot be negative")
	}
	if c.Editor.DefaultMarkWidth <= 0 || c.Editor.DefaultMarkWidth > 1 ||
		c.Editor.DefaultMarkHeight <= 0 || c.Editor.DefaultMarkHeight > 1 {
		return fmt.Errorf("editor default mark size must be within (0,1]")
	}

	if c.Snap.HorizontalTolerance < 1 || c.Snap.VerticalTolerance < 1 {
		return fmt.Errorf("snap tolerances must be positive")
	}
	if c.Snap.MinSize < 1 {
		return fmt.Errorf("snap.minSize must be positive")
	}
	if c.Snap.RunawayFactor <= 1 {
		return fmt.Errorf("snap.runawayFactor must be greater than 1")
	}
	if c.Snap.Threshold < 0 || c.Snap.Threshold > 255 {
		return fmt.Errorf("snap.threshold must be between 0 and 255")
	}

	switch c.Suggest.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("suggest.backend must be ollama or llamacpp, got %q", c.Suggest.Backend)
	}
	if c.Suggest.MinConfidence < 0 || c.Suggest.MinConfidence > 1 {
		return fmt.Errorf("suggest.minConfidence must be between 0 and 1")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}
	return nil
}

// SnapSettings converts the snap section for the snap engine
func (c *Config) SnapSettings() snap.Config {
	return snap.Config{
		HorizontalTolerance: c.Snap.HorizontalTolerance,
		VerticalTolerance:   c.Snap.VerticalTolerance,
		MinSize:             c.Snap.MinSize,
		RunawayFactor:       c.Snap.RunawayFactor,
		Binarize: snap.BinarizeConfig{
			Threshold:     uint8(c.Snap.Threshold),
			BlurSigma:     c.Snap.BlurSigma,
			ContentIsDark: c.Snap.ContentIsDark,
		},
	}
}

// EditorSettings converts the editor and snap sections for the editor
func (c *Config) EditorSettings() editor.Config {
	return editor.Config{
		CornerHitRadius: c.Editor.CornerHitRadius,
		MinCreateArea:   c.Editor.MinCreateArea,
		SnapByDefault:   c.Editor.SnapByDefault,
		DefaultMarkSize: types.Point{X: c.Editor.DefaultMarkWidth, Y: c.Editor.DefaultMarkHeight},
		Snap:            c.SnapSettings(),
	}
}

// SuggestSettings converts the suggest section for the suggester
func (c *Config) SuggestSettings() suggest.Config {
	return suggest.Config{
		Model:         c.Suggest.Model,
		SendSize:      c.Suggest.SendSize,
		SendQuality:   c.Suggest.SendQuality,
		MinConfidence: c.Suggest.MinConfidence,
	}
}

// OutputSettings converts the output section for image encoding
func (c *Config) OutputSettings() types.OutputConfig {
	return types.OutputConfig{
		Quality:   c.Output.Quality,
		Lossless:  c.Output.Lossless,
		Extension: c.Output.Format,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-annotator", "config.json")
}

package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/XuHaoJun/rvue-sub001/internal/errors"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "rvue.yaml"

	// EnvFileName is the optional dotenv file read next to it.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RVUE_"

	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultInterval    = "16ms"
	DefaultInspectAddr = "127.0.0.1:7070"
	DefaultBackground  = "#ffffff"
	DefaultCacheSize   = 512
)

// Config is the complete rvue configuration.
type Config struct {
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Frame      FrameConfig      `yaml:"frame"`
	Compositor CompositorConfig `yaml:"compositor"`
	Raster     RasterConfig     `yaml:"raster"`
	Text       TextConfig       `yaml:"text"`
	Inspect    InspectConfig    `yaml:"inspect"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Log        LogConfig        `yaml:"log"`

	path string
}

// RuntimeConfig configures the reactive runtime.
type RuntimeConfig struct {
	// MaxPasses is the pass ceiling of one flush.
	MaxPasses int `yaml:"maxPasses"`
}

// FrameConfig configures the frame loop.
type FrameConfig struct {
	// Interval is the frame period as a Go duration string.
	Interval string `yaml:"interval"`
}

// CompositorConfig configures the compositor.
type CompositorConfig struct {
	// Layers names layers by index.
	Layers []string `yaml:"layers,omitempty"`
}

// RasterConfig configures the software raster backend.
type RasterConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
}

// TextConfig configures text shaping.
type TextConfig struct {
	// CacheSize is the number of shaped strings kept.
	CacheSize int `yaml:"cacheSize"`
}

// InspectConfig configures the inspector server.
type InspectConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem,omitempty"`
}

// SnapshotConfig selects where rendered frames are archived. A non-empty
// Bucket selects S3; otherwise Dir is used. Both empty disables archiving.
type SnapshotConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Runtime:    RuntimeConfig{MaxPasses: reactive.DefaultMaxPasses},
		Frame:      FrameConfig{Interval: DefaultInterval},
		Compositor: CompositorConfig{Layers: []string{"base", "overlay"}},
		Raster: RasterConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			Background: DefaultBackground,
		},
		Text:    TextConfig{CacheSize: DefaultCacheSize},
		Inspect: InspectConfig{Addr: DefaultInspectAddr},
		Metrics: MetricsConfig{Namespace: "rvue"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads rvue.yaml and .env from dir, if present, then applies RVUE_*
// overrides and validates the result. A missing rvue.yaml is not an error.
func Load(dir string) (*Config, error) {
	cfg := New()
	path := filepath.Join(dir, ConfigFileName)
	if err := cfg.readFile(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, EnvFileName))
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("R011").
			WithSubject(filepath.Join(dir, EnvFileName)).
			Wrap(err)
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from path. Unlike Load, the file must exist
// and no environment overrides are applied.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("R011").WithSubject(path).Wrap(err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.New("R011").
			WithSubject(path).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			Wrap(err)
	}
	c.path = path
	return nil
}

// ApplyEnv applies RVUE_* overrides read through lookup. Values that do not
// parse are ignored and left for Validate to judge the remaining config.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	num("MAX_PASSES", &c.Runtime.MaxPasses)
	str("FRAME_INTERVAL", &c.Frame.Interval)
	num("WIDTH", &c.Raster.Width)
	num("HEIGHT", &c.Raster.Height)
	str("BACKGROUND", &c.Raster.Background)
	num("TEXT_CACHE_SIZE", &c.Text.CacheSize)
	str("INSPECT_ADDR", &c.Inspect.Addr)
	str("METRICS_NAMESPACE", &c.Metrics.Namespace)
	str("SNAPSHOT_DIR", &c.Snapshot.Dir)
	str("SNAPSHOT_BUCKET", &c.Snapshot.Bucket)
	str("SNAPSHOT_PREFIX", &c.Snapshot.Prefix)
	str("S3_REGION", &c.Snapshot.Region)
	str("S3_ENDPOINT", &c.Snapshot.Endpoint)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup(EnvPrefix + "LAYERS"); ok && v != "" {
		c.Compositor.Layers = strings.Split(v, ",")
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the configuration to path as YAML.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("R011").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("R011").WithSubject(path).Wrap(err)
	}
	c.path = path
	return nil
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("R010").WithDetail(fmt.Sprintf(format, args...))
	}
	if c.Runtime.MaxPasses < 1 {
		return invalid("runtime.maxPasses must be at least 1, got %d", c.Runtime.MaxPasses)
	}
	if d, err := time.ParseDuration(c.Frame.Interval); err != nil || d <= 0 {
		return invalid("frame.interval %q is not a positive duration", c.Frame.Interval)
	}
	if c.Raster.Width < 1 || c.Raster.Height < 1 {
		return invalid("raster size %dx%d must be positive", c.Raster.Width, c.Raster.Height)
	}
	if !validHex(c.Raster.Background) {
		return invalid("raster.background %q is not a #rgb, #rrggbb or #rrggbbaa colour", c.Raster.Background)
	}
	if c.Text.CacheSize < 1 {
		return invalid("text.cacheSize must be at least 1, got %d", c.Text.CacheSize)
	}
	if _, err := c.SlogLevel(); err != nil {
		return invalid("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format %q is not text or json", c.Log.Format)
	}
	if c.Snapshot.Bucket != "" && c.Snapshot.Region == "" {
		return invalid("snapshot.region is required with snapshot.bucket")
	}
	return nil
}

func validHex(s string) bool {
	s, ok := strings.CutPrefix(s, "#")
	if !ok {
		return false
	}
	switch len(s) {
	case 3, 6, 8:
	default:
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}

// Interval returns the parsed frame interval.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.Frame.Interval)
	if err != nil {
		d, _ = time.ParseDuration(DefaultInterval)
	}
	return d
}

// Background returns the parsed raster background.
func (c *Config) Background() gg.RGBA {
	return gg.Hex(c.Raster.Background)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.Log.Level))
	return l, err
}

// Logger builds a logger writing to w as configured.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists reports whether dir holds an rvue.yaml.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

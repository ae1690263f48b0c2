// Package config loads go-face settings from YAML, environment variables
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/audioio"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/lipsync"
	"github.com/teslashibe/go-face/pkg/sink"
	"github.com/teslashibe/go-face/pkg/web"
)

// EnvPrefix prefixes every environment override, e.g. FACE_HTTP_ADDR.
const EnvPrefix = "FACE"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full go-face configuration
type Config struct {
	Log     LogConfig      `mapstructure:"log"`
	Loop    LoopConfig     `mapstructure:"loop"`
	Preset  PresetConfig   `mapstructure:"preset"`
	Face    FaceConfig     `mapstructure:"face"`
	Audio   audioio.Config `mapstructure:"audio"`
	HTTP    web.Config     `mapstructure:"http"`
	Sink    sink.Config    `mapstructure:"sink"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// LogConfig selects the log level and format
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// LoopConfig controls the frame loop
type LoopConfig struct {
	Rate     time.Duration `mapstructure:"rate"`
	MaxDelta time.Duration `mapstructure:"max_delta"`
	// Seed fixes the random source; 0 picks one at startup.
	Seed uint64 `mapstructure:"seed"`
}

// PresetConfig chooses the expression preset
type PresetConfig struct {
	Name  string `mapstructure:"name"`  // registered preset name
	Dir   string `mapstructure:"dir"`   // extra presets to register
	File  string `mapstructure:"file"`  // a single preset file, wins over Name
	Watch bool   `mapstructure:"watch"` // reload File when it changes
}

// FaceConfig holds the live-tunable behavior of the face
type FaceConfig struct {
	Emotion          string  `mapstructure:"emotion"`
	EmotionIntensity float64 `mapstructure:"emotion_intensity"`
	GazeMode         string  `mapstructure:"gaze_mode"`
	Agent            bool    `mapstructure:"agent"`
	Blinking         bool    `mapstructure:"blinking"`
	MicroVariations  bool    `mapstructure:"micro_variations"`
	EyeAxis          string  `mapstructure:"eye_axis"`
	InvertEyeAxis    bool    `mapstructure:"invert_eye_axis"`
	LipSyncMode      string  `mapstructure:"lipsync_mode"`
	Smoothing        int     `mapstructure:"smoothing"`
	Clip             string  `mapstructure:"clip"` // WAV clip for prerecorded lip-sync
}

// MetricsConfig controls the Prometheus collector
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Runtime bool `mapstructure:"runtime"` // include Go runtime collectors
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Loop: LoopConfig{
			Rate:     time.Second / 60,
			MaxDelta: 100 * time.Millisecond,
		},
		Preset: PresetConfig{Name: "sim"},
		Face: FaceConfig{
			EmotionIntensity: 100,
			GazeMode:         gaze.ModeProbabilistic.String(),
			Blinking:         true,
			MicroVariations:  true,
			EyeAxis:          gaze.AxisZ.String(),
			LipSyncMode:      lipsync.Realtime.String(),
			Smoothing:        1,
		},
		Audio:   audioio.DefaultConfig(),
		HTTP:    web.DefaultConfig(),
		Sink:    sink.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true, Runtime: true},
	}
}

// Validate checks every enumerated setting
func (c *Config) Validate() error {
	var errs []error
	if c.Loop.Rate <= 0 {
		errs = append(errs, fmt.Errorf("loop.rate must be positive, got %s", c.Loop.Rate))
	}
	if c.Face.Emotion != "" {
		cat, err := expression.ParseCategory(c.Face.Emotion)
		if err != nil {
			errs = append(errs, err)
		} else if !cat.IsEmotion() {
			errs = append(errs, fmt.Errorf("face.emotion: %s is not an emotion", cat))
		}
	}
	if c.Face.EmotionIntensity < 0 || c.Face.EmotionIntensity > 100 {
		errs = append(errs, fmt.Errorf("face.emotion_intensity must be in [0,100], got %g", c.Face.EmotionIntensity))
	}
	if _, err := gaze.ParseMode(c.Face.GazeMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := gaze.ParseAxis(c.Face.EyeAxis); err != nil {
		errs = append(errs, err)
	}
	if _, err := lipsync.ParseMode(c.Face.LipSyncMode); err != nil {
		errs = append(errs, err)
	}
	if err := c.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Loader reads a Config through viper and can watch the file for edits.
type Loader struct {
	v      *viper.Viper
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	cfg *Config
}

// NewLoader creates a loader for path. An empty path searches for
// face.yaml in the working directory and ~/.go-face.
func NewLoader(path string, logger *slog.Logger) *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("face")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".go-face"))
		}
	}

	// Example: FACE_HTTP_ADDR=:9000
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, path: path, logger: log.Component(logger, "config")}
}

// Viper exposes the underlying instance, e.g. to bind cobra flags.
func (l *Loader) Viper() *viper.Viper { return l.v }

// File returns the config file in use, or "" when running on defaults.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// Load reads the file, applies environment overrides and validates the
// result. A missing file is only an error when a path was given.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		l.logger.Debug("no config file found, using defaults")
	}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Current returns the last successfully loaded config.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Watch calls fn with the new config every time the file changes. Edits
// that fail to decode or validate are logged and skipped. fn runs on the
// watcher goroutine.
func (l *Loader) Watch(fn func(old, cur *Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		l.mu.Lock()
		old := l.cfg
		l.cfg = cfg
		l.mu.Unlock()
		l.logger.Info("config reloaded", "file", e.Name)
		fn(old, cfg)
	})
	l.v.WatchConfig()
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("loop.rate", d.Loop.Rate)
	v.SetDefault("loop.max_delta", d.Loop.MaxDelta)
	v.SetDefault("loop.seed", d.Loop.Seed)

	v.SetDefault("preset.name", d.Preset.Name)
	v.SetDefault("preset.dir", d.Preset.Dir)
	v.SetDefault("preset.file", d.Preset.File)
	v.SetDefault("preset.watch", d.Preset.Watch)

	v.SetDefault("face.emotion", d.Face.Emotion)
	v.SetDefault("face.emotion_intensity", d.Face.EmotionIntensity)
	v.SetDefault("face.gaze_mode", d.Face.GazeMode)
	v.SetDefault("face.agent", d.Face.Agent)
	v.SetDefault("face.blinking", d.Face.Blinking)
	v.SetDefault("face.micro_variations", d.Face.MicroVariations)
	v.SetDefault("face.eye_axis", d.Face.EyeAxis)
	v.SetDefault("face.invert_eye_axis", d.Face.InvertEyeAxis)
	v.SetDefault("face.lipsync_mode", d.Face.LipSyncMode)
	v.SetDefault("face.smoothing", d.Face.Smoothing)
	v.SetDefault("face.clip", d.Face.Clip)

	v.SetDefault("audio.backend", string(d.Audio.Backend))
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.buffer_duration", d.Audio.BufferDuration)
	v.SetDefault("audio.file", d.Audio.File)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.allow_origins", d.HTTP.AllowOrigins)
	v.SetDefault("http.access_log", d.HTTP.AccessLog)
	v.SetDefault("http.static", d.HTTP.Static)

	v.SetDefault("sink.url", d.Sink.URL)
	v.SetDefault("sink.handshake_timeout", d.Sink.HandshakeTimeout)
	v.SetDefault("sink.ping_interval", d.Sink.PingInterval)
	v.SetDefault("sink.read_timeout", d.Sink.ReadTimeout)
	v.SetDefault("sink.reconnect_min", d.Sink.ReconnectMin)
	v.SetDefault("sink.reconnect_max", d.Sink.ReconnectMax)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.runtime", d.Metrics.Runtime)
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the typed view over the viper keys.
type Config struct {
	TTS TTS
	Web Web
	Log Log
}

type TTS struct {
	Type   string
	Voice  string
	Locale string
	// DataPath overrides where the espeak voice data is looked for.
	DataPath string

	Rate  Range
	Pitch Range

	VoicesTimeout time.Duration
}

// Range bounds a slider and gives its starting value.
type Range struct {
	Min, Max, Step, Value float64
}

type Web struct {
	Addr string
}

type Log struct {
	Level string
}

func SetDefaults() {
	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "default")
	viper.SetDefault("tts.locale", "in")
	viper.SetDefault("tts.data_path", "")
	viper.SetDefault("tts.voices_timeout", 10*time.Second)

	viper.SetDefault("tts.rate", 1.0)
	viper.SetDefault("tts.rate_min", 0.1)
	viper.SetDefault("tts.rate_max", 10.0)
	viper.SetDefault("tts.rate_step", 0.1)

	viper.SetDefault("tts.pitch", 1.0)
	viper.SetDefault("tts.pitch_min", 0.0)
	viper.SetDefault("tts.pitch_max", 2.0)
	viper.SetDefault("tts.pitch_step", 0.1)

	viper.SetDefault("web.addr", "127.0.0.1:8080")
	viper.SetDefault("log.level", "info")
}

// Init points viper at speakpanel.yaml in $HOME/.speakpanel or the working
// directory and at SPEAKPANEL_* environment variables. A missing config file
// is not an error.
func Init() error {
	SetDefaults()

	viper.SetConfigName("speakpanel")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.speakpanel")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("speakpanel")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load reads the current viper state.
func Load() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	c := &Config{
		TTS: TTS{
			Type:     v.GetString("tts.type"),
			Voice:    v.GetString("tts.voice"),
			Locale:   v.GetString("tts.locale"),
			DataPath: v.GetString("tts.data_path"),
			Rate: Range{
				Min:   v.GetFloat64("tts.rate_min"),
				Max:   v.GetFloat64("tts.rate_max"),
				Step:  v.GetFloat64("tts.rate_step"),
				Value: v.GetFloat64("tts.rate"),
			},
			Pitch: Range{
				Min:   v.GetFloat64("tts.pitch_min"),
				Max:   v.GetFloat64("tts.pitch_max"),
				Step:  v.GetFloat64("tts.pitch_step"),
				Value: v.GetFloat64("tts.pitch"),
			},
			VoicesTimeout: v.GetDuration("tts.voices_timeout"),
		},
		Web: Web{Addr: v.GetString("web.addr")},
		Log: Log{Level: v.GetString("log.level")},
	}

	if err := c.TTS.Rate.validate("rate"); err != nil {
		return nil, err
	}
	if err := c.TTS.Pitch.validate("pitch"); err != nil {
		return nil, err
	}
	return c, nil
}

func (r Range) validate(name string) error {
	if r.Min >= r.Max {
		return fmt.Errorf("invalid %s range: min %v must be below max %v", name, r.Min, r.Max)
	}
	if r.Step < 0 {
		return fmt.Errorf("invalid %s step %v", name, r.Step)
	}
	return nil
}

// SetupLogging applies the configured log level to the standard logrus
// logger.
func SetupLogging(c Log) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

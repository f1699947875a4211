package config

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/napryag/timereport_bot/pkg/domain/bot/sender"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/action"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/repository/workcalendar"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the bot looks for its config when no path is given.
const DefaultPath = "cmd/bot/etc/app.yml"

const (
	// PollTimeout is the long-poll timeout of getUpdates, in seconds.
	PollTimeout        = 10
	defaultSendTimeout = 30 * time.Second
)

type Config struct {
	PostgreAddr string `yaml:"postgre_addr" validate:"required"`
	HTTPPort    int    `yaml:"http_port" validate:"required,min=1,max=65535"`
	WorkerCount int    `yaml:"worker_count" validate:"required,min=1"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	DateFormat     string        `yaml:"date_format"`
	Timezone       string        `yaml:"timezone" validate:"omitempty,timezone"`
	ValidReasons   []string      `yaml:"valid_reasons" validate:"required,min=1,dive,required,excludesall=0x7C"`
	DefaultHours   string        `yaml:"default_hours" validate:"omitempty,numeric"`
	MinHours       string        `yaml:"min_hours" validate:"omitempty,numeric"`
	MaxHours       string        `yaml:"max_hours" validate:"omitempty,numeric"`
	BackendTimeout time.Duration `yaml:"backend_timeout" validate:"min=0"`

	CalendarURL       string        `yaml:"calendar_url" validate:"omitempty,url"`
	CalendarTimeout   time.Duration `yaml:"calendar_timeout" validate:"min=0"`
	CalendarCacheSize int           `yaml:"calendar_cache_size" validate:"min=0"`

	SendRetries int `yaml:"send_retries" validate:"min=0,max=10"`
	// SendTimeout bounds every Telegram API call, long polls included, so it must
	// exceed PollTimeout.
	SendTimeout time.Duration `yaml:"send_timeout" validate:"omitempty,min=15s"`

	BotToken string `yaml:"-"`
}

// LoadConfig reads the YAML config at path and the bot token from the environment.
// A .env file next to the binary is loaded if present.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New("failed to read config file").Arg("path", path).Wrap(err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New("failed to unmarshal YAML").Wrap(err)
	}

	// Validate
	if err = validator.New().Struct(cfg); err != nil {
		return nil, errs.New("config validation failed").Wrap(err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New("failed to load .env").Wrap(err)
	}
	cfg.BotToken = os.Getenv("TG_TOKEN")
	if cfg.BotToken == "" {
		return nil, errs.New("empty token")
	}

	return &cfg, nil
}

// Level is the configured log level, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// EngineConfig converts the file config into the engine's configuration.
func (c *Config) EngineConfig() (action.Config, error) {
	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return action.Config{}, errs.New("unknown timezone").Arg("timezone", c.Timezone).Wrap(err)
		}
		loc = l
	}

	layout := c.DateFormat
	if layout == "" {
		layout = calendar.DefaultLayout
	}

	def := decimal.NewFromInt(8)
	if c.DefaultHours != "" {
		d, err := decimal.NewFromString(c.DefaultHours)
		if err != nil {
			return action.Config{}, errs.New("invalid default_hours").Wrap(err)
		}
		def = d
	}
	minH, err := nullDecimal(c.MinHours)
	if err != nil {
		return action.Config{}, errs.New("invalid min_hours").Wrap(err)
	}
	maxH, err := nullDecimal(c.MaxHours)
	if err != nil {
		return action.Config{}, errs.New("invalid max_hours").Wrap(err)
	}
	if minH.Valid && maxH.Valid && minH.Decimal.GreaterThan(maxH.Decimal) {
		return action.Config{}, errs.New("min_hours is greater than max_hours")
	}

	return action.Config{
		DateLayout:     layout,
		Location:       loc,
		ValidReasons:   append([]string(nil), c.ValidReasons...),
		DefaultHours:   def,
		MinHours:       minH,
		MaxHours:       maxH,
		BackendTimeout: c.BackendTimeout,
		Workers:        c.WorkerCount,
	}, nil
}

// SenderConfig is the delivery retry policy.
func (c *Config) SenderConfig() sender.ProcessorConfig {
	cfg := sender.DefaultProcessorConfig()
	if c.SendRetries > 0 {
		cfg.Retries = c.SendRetries
	}
	return cfg
}

// TelegramClient is the HTTP client for the bot API, bounded by send_timeout.
func (c *Config) TelegramClient() *http.Client {
	timeout := c.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &http.Client{Timeout: timeout}
}

// CalendarOptions configures the work calendar client. Ok is false when no
// calendar_url is set.
func (c *Config) CalendarOptions() (workcalendar.Options, bool) {
	if c.CalendarURL == "" {
		return workcalendar.Options{}, false
	}
	return workcalendar.Options{
		BaseURL:   c.CalendarURL,
		Timeout:   c.CalendarTimeout,
		CacheSize: c.CalendarCacheSize,
	}, true
}

func nullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

package relay

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// Port is the Port number to listen on. The default is 5000.
	Port int `validate:"required,port"`
	// Hostname is the Hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	// AllowedOrigins is a list of origins that are allowed to connect to the server.
	// The default is ["*"].
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"required,min=1"`
	History        struct {
		// Limit is the number of messages kept per room.
		Limit int `validate:"required,min=1"`
	}
	WS struct {
		// MaxEventSize is the largest inbound frame in bytes, file payloads included.
		MaxEventSize int64 `mapstructure:"max_event_size" validate:"required,min=1"`
		// WriteBuffer is the number of outbound events queued per connection.
		WriteBuffer int `mapstructure:"write_buffer" validate:"required,min=1"`
		// RateLimit is the number of inbound events per second allowed per connection.
		// Zero disables rate limiting.
		RateLimit float64 `mapstructure:"rate_limit" validate:"min=0"`
		RateBurst int     `mapstructure:"rate_burst" validate:"min=0"`
	} `mapstructure:"ws"`
	Log struct {
		Level string `validate:"oneof=debug info warn error"`
	}
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
	valid           bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5000)
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("history.limit", 100)
	v.SetDefault("ws.max_event_size", 10<<20)
	v.SetDefault("ws.write_buffer", 256)
	v.SetDefault("ws.rate_limit", 0)
	v.SetDefault("ws.rate_burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// LoadConfig loads the configuration from .env, an optional config.yaml in the
// working directory and environment variables, in increasing precedence.
// Any invalid configuration will not be loaded, and the error will be caught in the validation step.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		// defer error to validation step
		return config, nil
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	c.valid = true
	return nil
}

func FormatValidationErrors(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	trans, _ := uniTrans.GetTranslator("en")
	translated := errs.Translate(trans)

	var sb strings.Builder
	for _, v := range slices.Sorted(maps.Values(translated)) {
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	return sb.String()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"swapwatch/internal/model"
	"swapwatch/internal/notify"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	BotToken     string
	Channel      string
	Pools        []string
	Out          string
	ExplorerURL  string
	MediaURL     string
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	DialRetries  int
	MetricsAddr  string
	LogLevel     string
}

// legacyEnv lists extra environment variable names accepted per key.
var legacyEnv = map[string][]string{
	"rpc":       {"SWAPWATCH_RPC", "QUICKNODE_RPC_WSS"},
	"bot-token": {"SWAPWATCH_BOT_TOKEN", "BOT_TOKEN"},
	"channel":   {"SWAPWATCH_CHANNEL", "TG_CHANNEL"},
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("SWAPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("pools", model.DefaultPoolAddresses())
	v.SetDefault("out", "./details.json")
	v.SetDefault("explorer-url", notify.DefaultExplorerURL)
	v.SetDefault("media-url", notify.DefaultMediaURL)
	v.SetDefault("retry-backoff", time.Second)
	v.SetDefault("max-backoff", time.Minute)
	v.SetDefault("dial-retries", 5)
	v.SetDefault("metrics-addr", "")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		BotToken:     v.GetString("bot-token"),
		Channel:      v.GetString("channel"),
		Pools:        getStringSlice(v, "pools"),
		Out:          v.GetString("out"),
		ExplorerURL:  v.GetString("explorer-url"),
		MediaURL:     v.GetString("media-url"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MaxBackoff:   v.GetDuration("max-backoff"),
		DialRetries:  v.GetInt("dial-retries"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings required by the live watcher.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("pool list is required")
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry-backoff must be positive")
	}
	if c.MaxBackoff < c.RetryBackoff {
		return fmt.Errorf("max-backoff %s is below retry-backoff %s", c.MaxBackoff, c.RetryBackoff)
	}
	if c.DialRetries < 0 {
		return fmt.Errorf("dial-retries must not be negative")
	}
	return c.ValidateReplay()
}

// ValidateReplay checks the settings required to re-send a stored record.
func (c Config) ValidateReplay() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot token is required")
	}
	if c.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if c.Out == "" {
		return fmt.Errorf("out path is required")
	}
	return nil
}

// loadDotEnv exports variables from path without overriding the environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

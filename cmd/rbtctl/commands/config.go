package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benz9527/xrbt/lib/xlog"
)

const (
	configName      = ".rbtctl"
	configType      = "yaml"
	envPrefix       = "RBTCTL"
	envKeySeparator = "_"
)

const (
	DefaultLogLevel   = "info"
	DefaultLogEncoder = "text"
)

var ErrInvalidConfig = errors.New("invalid config")

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

type TreeConfig struct {
	// Desc keeps the keys in descending order.
	Desc bool `mapstructure:"desc"`
	// Validate checks every invariant after each replayed mutation.
	Validate bool `mapstructure:"validate"`
}

type Config struct {
	Log  LogConfig  `mapstructure:"log"`
	Tree TreeConfig `mapstructure:"tree"`
}

func (cfg *Config) Validate() error {
	if _, ok := xlog.ParseLogEncoder(cfg.Log.Encoder); !ok {
		return fmt.Errorf("%w: unknown log encoder %q", ErrInvalidConfig, cfg.Log.Encoder)
	}
	return nil
}

func (cfg *Config) Logger() xlog.XLogger {
	enc, _ := xlog.ParseLogEncoder(cfg.Log.Encoder)
	return xlog.NewXLogger(
		xlog.WithXLoggerWriter(xlog.StdErr),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Log.Level)),
		xlog.WithXLoggerName("rbtctl"),
	)
}

// flag name => config key
var flagBindings = map[string]string{
	"log-level":   "log.level",
	"log-encoder": "log.encoder",
	"desc":        "tree.desc",
	"validate":    "tree.validate",
}

// LoadConfig merges defaults, the config file, RBTCTL_ env vars and the
// flags set on cmd. A missing config file is not an error unless it was
// named explicitly.
func LoadConfig(configPath string, cmd *cobra.Command) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if cmd != nil {
		for name, key := range flagBindings {
			if flag := cmd.Flags().Lookup(name); flag != nil {
				if err := viperCfg.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.encoder", DefaultLogEncoder)
	viperCfg.SetDefault("tree.desc", false)
	viperCfg.SetDefault("tree.validate", false)
}

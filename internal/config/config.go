// Package config merges defaults, an optional config file, GITBIND_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "GITBIND"
	DefaultConfigName = ".gitbind"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTree = "tree"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Config struct {
	Repo         string        `mapstructure:"repo"`
	ContextLines int           `mapstructure:"context_lines"`
	Format       string        `mapstructure:"format"`
	Color        string        `mapstructure:"color"`
	Theme        string        `mapstructure:"theme"`
	WatchDelay   time.Duration `mapstructure:"watch_delay"`
	Verbose      bool          `mapstructure:"verbose"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"repo":        "repo",
	"unified":     "context_lines",
	"format":      "format",
	"color":       "color",
	"theme":       "theme",
	"watch-delay": "watch_delay",
	"verbose":     "verbose",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repo", ".")
	v.SetDefault("context_lines", 3)
	v.SetDefault("format", FormatText)
	v.SetDefault("color", ColorAuto)
	v.SetDefault("theme", "auto")
	v.SetDefault("watch_delay", 350*time.Millisecond)
	v.SetDefault("verbose", false)
}

// Load reads the configuration. cfgFile, when set, must exist; otherwise
// .gitbind.{yaml,json,toml} is looked up in the working directory and in
// ~/.config/gitbind. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "gitbind"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return cfg, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		slog.Debug("no configuration file found")
	} else {
		cfg.ConfigFile = v.ConfigFileUsed()
		slog.Debug("using configuration file", slog.String("path", cfg.ConfigFile))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return cfg, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("context_lines must not be negative, got %d", c.ContextLines))
	}
	if !slices.Contains([]string{FormatText, FormatJSON, FormatTree}, c.Format) {
		errs = append(errs, fmt.Errorf("unknown format %q (want text, json or tree)", c.Format))
	}
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, c.Color) {
		errs = append(errs, fmt.Errorf("unknown color mode %q (want auto, always or never)", c.Color))
	}
	if !slices.Contains([]string{"auto", "light", "dark"}, strings.ToLower(c.Theme)) {
		errs = append(errs, fmt.Errorf("unknown theme %q (want auto, light or dark)", c.Theme))
	}
	if c.WatchDelay < 0 {
		errs = append(errs, fmt.Errorf("watch_delay must not be negative, got %s", c.WatchDelay))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the CLI settings. Values come from flags, then CHISEL_
// environment variables, then chisel.yaml, then defaults.
type Config struct {
	LogLevel   string   `mapstructure:"log_level"`
	DialectDir string   `mapstructure:"dialect_dir"`
	Machine    string   `mapstructure:"machine"`
	Ignore     []string `mapstructure:"ignore"`
	Output     string   `mapstructure:"output"`
}

// newViper returns a viper instance with chisel's defaults and search paths.
// CHISEL_CONFIG names an explicit config file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "warn")
	v.SetDefault("dialect_dir", "")
	v.SetDefault("machine", "")
	v.SetDefault("ignore", []string{})
	v.SetDefault("output", "")

	v.SetConfigType("yaml")
	if path := os.Getenv("CHISEL_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chisel")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "chisel"))
	}

	v.SetEnvPrefix("CHISEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file, if any, and decodes every setting.
func loadConfig(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	// A comma separated CHISEL_IGNORE arrives as one string.
	if len(c.Ignore) == 1 && strings.Contains(c.Ignore[0], ",") {
		c.Ignore = splitList(c.Ignore[0])
	}
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newLogger builds the stderr logger for level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("config: log_level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

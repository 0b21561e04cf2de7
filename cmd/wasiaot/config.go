package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// config is the content of the --config file. Flags set on the command line
// override the values of the file.
type config struct {
	Dirs        []string `yaml:"dirs"`
	Env         []string `yaml:"env"`
	MaxPages    uint32   `yaml:"max-pages"`
	Trace       string   `yaml:"trace"`
	TraceFormat string   `yaml:"trace-format"`
	LogLevel    string   `yaml:"log-level"`
	LogFormat   string   `yaml:"log-format"`
}

func defaultConfig() config {
	return config{
		TraceFormat: "csv",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

func loadConfig(path string, c *config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("%s: %w", path, err)
	}
	return c.validate()
}

func (c *config) validate() error {
	switch c.TraceFormat {
	case "csv", "log":
	default:
		return fmt.Errorf("invalid trace format %q (expected csv or log)", c.TraceFormat)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (expected text or json)", c.LogFormat)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

func (c *config) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

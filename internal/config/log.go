package config

import (
	"fmt"
	"log/slog"
	"strings"
)

type Log struct {
	Format    LogFormat  `env:"LOG_FORMAT" envDefault:"json"`
	Level     slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	AddSource bool       `env:"LOG_ADD_SOURCE" envDefault:"true"`

	// NoColor disables ANSI colors in text output, for log files and CI.
	NoColor bool `env:"LOG_NO_COLOR" envDefault:"false"`
}

// LogFormat selects the slog handler: structured JSON or human readable text.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// UnmarshalText implements [encoding.TextUnmarshaler]. Matching is case
// insensitive.
func (f *LogFormat) UnmarshalText(text []byte) error {
	switch format := LogFormat(strings.ToLower(strings.TrimSpace(string(text)))); format {
	case LogFormatJSON, LogFormatText:
		*f = format
		return nil
	default:
		return fmt.Errorf("unknown log format: %s", text)
	}
}

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// FileConfig describes an optional rotated log file destination.
type FileConfig struct {
	Path       string `json:"path" mapstructure:"path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Config describes the daemon's own structured logging. When File.Path
// is empty, output goes to stderr.
type Config struct {
	Level  string     `json:"level" mapstructure:"level"`   // debug|info|warn|error
	Format string     `json:"format" mapstructure:"format"` // text|json|color
	File   FileConfig `json:"file" mapstructure:"file"`
}

// Writer returns the configured destination, a rotated file or stderr.
// The returned closer is non-nil only for file destinations.
func (c Config) Writer() (io.Writer, io.Closer) {
	if c.File.Path == "" {
		return os.Stderr, nil
	}
	w := &lj.Logger{
		Filename:   c.File.Path,
		MaxSize:    valOr(c.File.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.File.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.File.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.File.Compress,
	}
	return w, w
}

// New builds a slog.Logger per the config. The closer is nil when no
// file destination is involved.
func (c Config) New() (*slog.Logger, io.Closer) {
	w, closer := c.Writer()
	opts := &slog.HandlerOptions{Level: c.slogLevel()}
	var h slog.Handler
	switch strings.ToLower(c.Format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "color":
		h = NewColorHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
}

func (c Config) slogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

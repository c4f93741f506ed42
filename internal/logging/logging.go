package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dshills/codecheck/internal/config"
)

const defaultFilename = "codecheck.log"

// Setup builds the application logger. Records go as JSON lines to a
// rotating file; when verbose is set they are also echoed to console at
// debug level. The returned closer flushes the log file.
func Setup(cfg config.LogConfig, verbose bool, console io.Writer) (zerolog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level, zerolog.InfoLevel)
	if verbose {
		level = zerolog.DebugLevel
	}

	file := &lumberjack.Logger{
		Filename:   Filename(cfg.Filename),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var w io.Writer = file
	if verbose && console != nil {
		w = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen})
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, file
}

// Filename resolves the log file path. An empty name places the log in the
// user cache directory.
func Filename(name string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "codecheck", defaultFilename)
	}
	return defaultFilename
}

// ParseLevel maps a level name to a zerolog level, falling back to def for
// empty or unknown names.
func ParseLevel(value string, def zerolog.Level) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	if value == "warning" {
		value = "warn"
	}
	level, err := zerolog.ParseLevel(value)
	if err != nil || level == zerolog.NoLevel {
		return def
	}
	return level
}

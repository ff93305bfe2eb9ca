package xlog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConfig returns the default logging configuration: text output on
// stdout at LevelInfo with source locations, no file output.
func NewConfig() Config {
	return Config{
		Level:        slog.LevelInfo,
		AddSource:    true,
		AttrReplacer: NormalizeSourceAttrReplacer(),
		StdFormat:    "text",
		StdWriter:    os.Stdout,
		Path:         "",
		MaxSize:      30,
		MaxAge:       0,
		MaxBackups:   0,
		Compress:     false,
	}
}

// Config describes how handlers are assembled.
type Config struct {
	// Level is the minimum record level, LevelInfo when unset.
	Level slog.Level
	// AddSource emits the file and line of the logging call.
	AddSource bool
	// AttrReplacer rewrites attributes before they are handled.
	AttrReplacer AttrReplacer

	// StdFormat selects the standard stream encoding, "text" or "json".
	StdFormat string
	// StdWriter receives the standard stream, os.Stdout when unset.
	StdWriter io.Writer

	// Path is the log file location. Empty disables file output.
	Path string
	// MaxSize is the size in MB at which the file rotates.
	MaxSize int
	// MaxAge is the number of days rotated files are retained. Zero keeps
	// them forever.
	MaxAge int
	// MaxBackups is the number of rotated files retained. Zero keeps all.
	MaxBackups int
	// Compress gzips rotated files.
	Compress bool
}

// BuildHandler creates a new slog.Handler with config.
func (c *Config) BuildHandler() slog.Handler {
	opts := c.buildHandlerOptions()
	fw := c.buildFileWriter()

	if c.StdFormat == "json" {
		writer := c.StdWriter
		if fw != nil {
			writer = io.MultiWriter(c.StdWriter, fw)
		}
		return NewLeveledHandlerCreator(JSONHandlerCreator)(writer, opts)
	}

	// console output format as "text"
	handlers := []slog.Handler{}

	stdHandler := NewLeveledHandlerCreator(TextHandlerCreator)(c.StdWriter, opts)
	handlers = append(handlers, stdHandler)

	if fw != nil {
		fileHandler := NewLeveledHandlerCreator(JSONHandlerCreator)(fw, opts)
		handlers = append(handlers, fileHandler)
	}
	return MultiHandler(handlers...)
}

func (c *Config) buildFileWriter() io.Writer {
	if c.Path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

func (c *Config) buildHandlerOptions() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		AddSource:   c.AddSource,
		Level:       c.Level,
		ReplaceAttr: c.AttrReplacer,
	}
}

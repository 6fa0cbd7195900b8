package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects where debug logs go.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// FilePath receives JSON logs. Empty logs text to stderr only.
	FilePath string
	// MaxSizeMB bounds the live log file, 10 when unset.
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept, 5 when unset.
	MaxFiles int
	// WriteToStderr mirrors file output to stderr.
	WriteToStderr bool
}

// DebugConfig is used for --debug runs: JSON at debug level into the
// default log file, mirrored to stderr.
func DebugConfig() Config {
	return Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds the logger for cfg. Every record carries the process id so
// interleaved page runs can be told apart. The returned cleanup flushes and
// closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		return NewConsole(os.Stderr, cfg.Level), func() {}, nil
	}

	sizeMB := cfg.MaxSizeMB
	if sizeMB <= 0 {
		sizeMB = 10
	}
	files := cfg.MaxFiles
	if files <= 0 {
		files = 5
	}
	writer, err := NewRotatingWriter(cfg.FilePath, sizeMB, files)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = writer
	if cfg.WriteToStderr {
		out = io.MultiWriter(writer, os.Stderr)
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})).With(slog.Int("pid", os.Getpid()))

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// NewConsole returns a text logger on w for interactive commands.
func NewConsole(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelFromString(level),
	}))
}

// LevelFromString maps a level name to slog.Level; unknown names are info.
func LevelFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

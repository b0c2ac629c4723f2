package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/datfullstacks/mln3/internal/config"
)

const logFileName = "server.log"

// New builds the process logger: tinted console output, plus a rotating file
// when LOG_DIR is configured. The returned logger is also installed as the
// slog default.
func New(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	var writer io.Writer = os.Stdout
	noColor := false
	if dir := strings.TrimSpace(cfg.LogDir); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
		file := &lumberjack.Logger{
			Filename:   filepath.Join(dir, logFileName),
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, file)
		noColor = true
	}

	logger := slog.New(tint.NewHandler(writer, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

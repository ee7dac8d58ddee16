// Package logger настраивает общий slog-логгер процесса.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log до InitWithConfig указывает на slog.Default, поэтому пакеты расчёта
// можно вызывать из тестов без настройки.
var Log = slog.Default()

const defaultLogFile = "logs/matching.log"

type Config struct {
	Service    string // попадает в каждую запись как "service"
	Level      string
	Format     string // json | text
	Output     string // stdout | stderr | file
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // дни
	Compress   bool
}

// InitWithConfig заменяет Log
func InitWithConfig(cfg Config) {
	w, fallback := destination(cfg)
	Log = build(w, cfg.Format, ParseLevel(cfg.Level), cfg.Service)
	if fallback != nil {
		Log.Warn("log file unavailable, writing to stdout", "path", cfg.FilePath, "error", fallback)
	}
}

// InitWithWriter для тестов и CLI-вывода
func InitWithWriter(w io.Writer, level, format string) {
	Log = build(w, format, ParseLevel(level), "")
}

// ParseLevel без учёта регистра; неизвестное значение даёт info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// destination возвращает stdout и причину, если файл открыть нельзя
func destination(cfg Config) (io.Writer, error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "file":
	default:
		return os.Stdout, nil
	}

	path := cfg.FilePath
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return os.Stdout, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

func build(w io.Writer, format string, lvl slog.Level, service string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: utcTime,
	}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(h)
	if service != "" {
		l = l.With("service", service)
	}
	return l
}

// utcTime пишет время записи в UTC с миллисекундами
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	}
	return a
}

// WithSolve логгер одного расчёта
func WithSolve(solveID string) *slog.Logger {
	return Log.With("solve_id", solveID)
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }

// Fatal пишет ошибку и завершает процесс с кодом 1
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}

// Elapsed округляет длительность до миллисекунд для полей "took"
func Elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}

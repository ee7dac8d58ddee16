package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"txmatching/pkg/logger"
)

// WriterLogger пишет записи JSON-строками в произвольный writer
type WriterLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutLogger журнал в stdout
func NewStdoutLogger() *WriterLogger {
	return NewWriterLogger(os.Stdout)
}

// NewWriterLogger журнал в writer
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

// Log записывает запись синхронно
func (l *WriterLogger) Log(_ context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}

func (l *WriterLogger) Close() error {
	return nil
}

// FileLogger пишет записи в файл с ротацией.
// Запись асинхронная: при переполненном буфере пишем напрямую.
type FileLogger struct {
	config *Config
	file   io.WriteCloser
	writer *bufio.Writer
	mu     sync.Mutex
	buffer chan *Entry
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewFileLogger открывает файл журнала и запускает фоновую запись
func NewFileLogger(cfg *Config) (*FileLogger, error) {
	if cfg.FilePath == "" {
		cfg.FilePath = "audit.log"
	}
	// lumberjack открывает файл лениво, проверяем доступность сразу
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	_ = f.Close()

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	l := &FileLogger{
		config: cfg,
		file:   file,
		writer: bufio.NewWriter(file),
		buffer: make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.processLoop()

	return l, nil
}

// Log ставит запись в очередь
func (l *FileLogger) Log(_ context.Context, entry *Entry) error {
	select {
	case l.buffer <- entry:
		return nil
	default:
		return l.writeEntry(entry)
	}
}

// Close дописывает очередь, сбрасывает буфер и закрывает файл
func (l *FileLogger) Close() error {
	close(l.done)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		select {
		case entry := <-l.buffer:
			if err := l.writeEntryUnsafe(entry); err != nil {
				logger.Log.Warn("failed to write audit entry during shutdown", "error", err)
			}
			continue
		default:
		}
		break
	}

	if err := l.writer.Flush(); err != nil {
		logger.Log.Warn("failed to flush audit writer", "error", err)
	}
	return l.file.Close()
}

func (l *FileLogger) processLoop() {
	defer l.wg.Done()

	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}
	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case entry := <-l.buffer:
			if err := l.writeEntry(entry); err != nil {
				logger.Log.Warn("failed to write audit entry", "error", err)
			}
		case <-ticker.C:
			l.flush()
		}
	}
}

func (l *FileLogger) writeEntry(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeEntryUnsafe(entry)
}

// writeEntryUnsafe вызывается под l.mu
func (l *FileLogger) writeEntryUnsafe(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = l.writer.Write(append(data, '\n'))
	return err
}

func (l *FileLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		logger.Log.Warn("failed to flush audit writer", "error", err)
	}
}

// New выбирает бэкенд по конфигурации. Выключенный журнал даёт NoopLogger,
// неизвестный бэкенд заменяется на stdout.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !cfg.Enabled {
		return NoopLogger{}, nil
	}

	switch cfg.Backend {
	case "file":
		return NewFileLogger(cfg)
	case "stdout", "":
		return NewStdoutLogger(), nil
	default:
		logger.Log.Warn("unknown audit backend, using stdout", "backend", cfg.Backend)
		return NewStdoutLogger(), nil
	}
}

// NoopLogger ничего не пишет
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, *Entry) error { return nil }
func (NoopLogger) Close() error                      { return nil }

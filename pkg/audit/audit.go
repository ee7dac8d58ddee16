// Package audit ведёт журнал расчётов подбора пар: кто запросил расчёт, на каком
// наборе пациентов, откуда взят результат и чем всё закончилось.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action тип события
type Action string

const (
	// ActionSolve запрос подбора пар
	ActionSolve Action = "SOLVE"
	// ActionInvalidate сброс кэша готовых результатов
	ActionInvalidate Action = "INVALIDATE"
)

// Outcome итог события
type Outcome string

const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeFailure  Outcome = "FAILURE"
	OutcomeRejected Outcome = "REJECTED" // невалидный запрос, расчёт не запускался
)

// Entry одна запись журнала
type Entry struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Service         string         `json:"service"`
	Action          Action         `json:"action"`
	Outcome         Outcome        `json:"outcome"`
	SolveID         string         `json:"solve_id,omitempty"`
	PatientSetHash  string         `json:"patient_set_hash,omitempty"`
	ConfigHash      string         `json:"config_hash,omitempty"`
	Source          string         `json:"source,omitempty"` // cache, store, solver
	Matchings       int            `json:"matchings"`
	AllResultsFound *bool          `json:"all_results_found,omitempty"`
	DurationMs      int64          `json:"duration_ms"`
	ErrorCode       string         `json:"error_code,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Logger бэкенд журнала
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	Close() error
}

// Config настройки журнала
type Config struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // stdout, file
	FilePath    string        `koanf:"file_path"`
	MaxSize     int           `koanf:"max_size"` // MB
	MaxBackups  int           `koanf:"max_backups"`
	MaxAge      int           `koanf:"max_age"` // дней
	Compress    bool          `koanf:"compress"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Backend:     "stdout",
		BufferSize:  1000,
		FlushPeriod: 5 * time.Second,
	}
}

// Builder собирает запись журнала
type Builder struct {
	entry *Entry
}

// NewEntry начинает новую запись с текущим временем
func NewEntry(service string, action Action) *Builder {
	return &Builder{
		entry: &Entry{
			Timestamp: time.Now(),
			Service:   service,
			Action:    action,
			Metadata:  make(map[string]any),
		},
	}
}

func (b *Builder) Outcome(o Outcome) *Builder {
	b.entry.Outcome = o
	return b
}

func (b *Builder) Solve(solveID string) *Builder {
	b.entry.SolveID = solveID
	return b
}

// Hashes привязывает запись к набору пациентов и конфигурации
func (b *Builder) Hashes(patientSetHash, configHash string) *Builder {
	b.entry.PatientSetHash = patientSetHash
	b.entry.ConfigHash = configHash
	return b
}

// Result заполняет поля итога расчёта
func (b *Builder) Result(source string, matchings int, allResultsFound bool) *Builder {
	b.entry.Source = source
	b.entry.Matchings = matchings
	b.entry.AllResultsFound = &allResultsFound
	return b
}

func (b *Builder) Duration(d time.Duration) *Builder {
	b.entry.DurationMs = d.Milliseconds()
	return b
}

func (b *Builder) Error(code, message string) *Builder {
	b.entry.ErrorCode = code
	b.entry.ErrorMessage = message
	return b
}

func (b *Builder) Meta(key string, value any) *Builder {
	b.entry.Metadata[key] = value
	return b
}

// Build завершает запись, проставляя ID если он пуст
func (b *Builder) Build() *Entry {
	if b.entry.ID == "" {
		b.entry.ID = uuid.NewString()
	}
	return b.entry
}

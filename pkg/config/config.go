// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"txmatching/pkg/domain"
)

// Config - главная структура конфигурации
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Lock     LockConfig     `koanf:"lock"`
	Audit    AuditConfig    `koanf:"audit"`
	Matching MatchingConfig `koanf:"matching"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки хранилища результатов
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres, memory
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// CacheConfig - настройки кэша готовых результатов
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory

	// Circuit breaker для удалённого бэкенда
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LockConfig - настройки глобальной блокировки расчёта
type LockConfig struct {
	Backend      string        `koanf:"backend"` // memory, redis
	RedisAddr    string        `koanf:"redis_addr"`
	Key          string        `koanf:"key"`
	TTL          time.Duration `koanf:"ttl"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// AuditConfig - журнал расчётов
type AuditConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // stdout, file
	FilePath    string        `koanf:"file_path"`
	MaxSize     int           `koanf:"max_size"`
	MaxBackups  int           `koanf:"max_backups"`
	MaxAge      int           `koanf:"max_age"`
	Compress    bool          `koanf:"compress"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
}

// MatchingConfig - параметры расчёта по умолчанию
type MatchingConfig struct {
	ScorerConstructorName                              string   `koanf:"scorer_constructor_name"`
	SolverConstructorName                              string   `koanf:"solver_constructor_name"`
	RequireCompatibleBloodGroup                        bool     `koanf:"require_compatible_blood_group"`
	MinimumTotalScore                                  float64  `koanf:"minimum_total_score"`
	MaximumTotalScore                                  float64  `koanf:"maximum_total_score"`
	RequireBetterMatchInCompatibilityIndex             bool     `koanf:"require_better_match_in_compatibility_index"`
	RequireBetterMatchInCompatibilityIndexOrBloodGroup bool     `koanf:"require_better_match_in_compatibility_index_or_blood_group"`
	BloodGroupCompatibilityBonus                       float64  `koanf:"blood_group_compatibility_bonus"`
	UseBinaryScoring                                   bool     `koanf:"use_binary_scoring"`
	MaxCycleLength                                     int      `koanf:"max_cycle_length"`
	MaxSequenceLength                                  int      `koanf:"max_sequence_length"`
	MaxNumberOfDistinctCountriesInRound                int      `koanf:"max_number_of_distinct_countries_in_round"`
	RequiredPatientDBIDs                               []int64  `koanf:"required_patient_db_ids"`
	ForbiddenCountryCombinations                       []string `koanf:"forbidden_country_combinations"` // "AUT:IL"
	MaxMatchingsToShowToViewer                         int      `koanf:"max_matchings_to_show_to_viewer"`
	MaxNumberOfMatchings                               int      `koanf:"max_number_of_matchings"`
	MaxMatchingsInAllSolutionsSolver                   int      `koanf:"max_matchings_in_all_solutions_solver"`
}

// Configuration собирает доменную конфигурацию расчёта из секции matching
func (m MatchingConfig) Configuration() (domain.Configuration, error) {
	forbidden := make([]domain.ForbiddenCountryCombination, 0, len(m.ForbiddenCountryCombinations))
	for _, pair := range m.ForbiddenCountryCombinations {
		donor, recipient, ok := strings.Cut(pair, ":")
		if !ok || donor == "" || recipient == "" {
			return domain.Configuration{}, fmt.Errorf("matching.forbidden_country_combinations: expected DONOR:RECIPIENT, got %q", pair)
		}
		forbidden = append(forbidden, domain.ForbiddenCountryCombination{
			DonorCountry:     domain.Country(strings.ToUpper(strings.TrimSpace(donor))),
			RecipientCountry: domain.Country(strings.ToUpper(strings.TrimSpace(recipient))),
		})
	}

	required := append([]int64{}, m.RequiredPatientDBIDs...)

	return domain.Configuration{
		ScorerConstructorName:                              m.ScorerConstructorName,
		SolverConstructorName:                              m.SolverConstructorName,
		RequireCompatibleBloodGroup:                        m.RequireCompatibleBloodGroup,
		MinimumTotalScore:                                  m.MinimumTotalScore,
		MaximumTotalScore:                                  m.MaximumTotalScore,
		RequireBetterMatchInCompatibilityIndex:             m.RequireBetterMatchInCompatibilityIndex,
		RequireBetterMatchInCompatibilityIndexOrBloodGroup: m.RequireBetterMatchInCompatibilityIndexOrBloodGroup,
		BloodGroupCompatibilityBonus:                       m.BloodGroupCompatibilityBonus,
		UseBinaryScoring:                                   m.UseBinaryScoring,
		MaxCycleLength:                                     m.MaxCycleLength,
		MaxSequenceLength:                                  m.MaxSequenceLength,
		MaxNumberOfDistinctCountriesInRound:                m.MaxNumberOfDistinctCountriesInRound,
		RequiredPatientDBIDs:                               required,
		ForbiddenCountryCombinations:                       forbidden,
		ManualDonorRecipientScores:                         []domain.ManualDonorRecipientScore{},
		MaxMatchingsToShowToViewer:                         m.MaxMatchingsToShowToViewer,
		MaxNumberOfMatchings:                               m.MaxNumberOfMatchings,
		MaxMatchingsInAllSolutionsSolver:                   m.MaxMatchingsInAllSolutionsSolver,
	}, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port))
	}

	validDrivers := map[string]bool{"postgres": true, "postgresql": true, "memory": true}
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Sprintf("database.driver must be one of: postgres, memory, got %s", c.Database.Driver))
	}

	validCache := map[string]bool{"redis": true, "memory": true}
	if c.Cache.Enabled && !validCache[c.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: redis, memory, got %s", c.Cache.Driver))
	}

	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Lock.RedisAddr == "" {
			errs = append(errs, "lock.redis_addr is required for redis backend")
		}
		if c.Lock.TTL <= 0 {
			errs = append(errs, "lock.ttl must be positive for redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("lock.backend must be one of: memory, redis, got %s", c.Lock.Backend))
	}

	validAudit := map[string]bool{"stdout": true, "file": true}
	if c.Audit.Enabled && !validAudit[c.Audit.Backend] {
		errs = append(errs, fmt.Sprintf("audit.backend must be one of: stdout, file, got %s", c.Audit.Backend))
	}

	matching, err := c.Matching.Configuration()
	if err != nil {
		errs = append(errs, err.Error())
	} else if err := matching.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("matching: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"txmatching/pkg/domain"
)

const (
	envPrefix      = "TXMATCHING_"
	configEnvVar   = "CONFIG_PATH"
	defaultAppName = "matching-service"
)

var defaultConfigPaths = []string{
	"config.yaml",
	"config/config.yaml",
	"/etc/txmatching/config.yaml",
}

// Loader собирает Config из трёх слоёв: значения по умолчанию, YAML-файл,
// переменные окружения. Каждый следующий слой перекрывает предыдущий.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	missingFile error

	// envKeys: "matching_max_cycle_length" -> "matching.max_cycle_length"
	envKeys map[string]string
}

type LoaderOption func(*Loader)

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k:           koanf.New("."),
		configPaths: defaultConfigPaths,
		envPrefix:   envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithConfigPaths без аргументов отключает поиск файла
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	l.indexEnvKeys()

	// файл не обязателен
	l.missingFile = l.loadConfigFile()

	if err := l.k.Load(env.ProviderWithValue(l.envPrefix, ".", l.envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MissingFile объясняет, почему файл не загружен; nil если загружен
func (l *Loader) MissingFile() error {
	return l.missingFile
}

// defaults задаёт каждый известный ключ, включая пустые: по этому списку
// строится сопоставление переменных окружения.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        defaultAppName,
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.file_path":   "",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "txmatching",
		"metrics.subsystem": "",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": defaultAppName,
		"tracing.sample_rate":  0.1,

		"database.driver":             "memory",
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "txmatching",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		"cache.enabled":              false,
		"cache.driver":               "memory",
		"cache.host":                 "localhost",
		"cache.port":                 6379,
		"cache.password":             "",
		"cache.db":                   0,
		"cache.default_ttl":          30 * time.Minute,
		"cache.max_entries":          64,
		"cache.breaker_max_failures": 5,
		"cache.breaker_timeout":      30 * time.Second,

		"lock.backend":       "memory",
		"lock.redis_addr":    "",
		"lock.key":           "txmatching:solver-lock",
		"lock.ttl":           30 * time.Minute,
		"lock.poll_interval": 200 * time.Millisecond,

		"audit.enabled":      false,
		"audit.backend":      "stdout",
		"audit.file_path":    "audit.log",
		"audit.max_size":     100,
		"audit.max_backups":  5,
		"audit.max_age":      30,
		"audit.compress":     true,
		"audit.buffer_size":  1000,
		"audit.flush_period": 5 * time.Second,

		"matching.scorer_constructor_name":                                    domain.ScorerHLAAdditive,
		"matching.solver_constructor_name":                                    domain.SolverAllSolutions,
		"matching.require_compatible_blood_group":                             false,
		"matching.minimum_total_score":                                        domain.DefaultMinimumTotalScore,
		"matching.maximum_total_score":                                        domain.DefaultMaximumTotalScore,
		"matching.require_better_match_in_compatibility_index":                false,
		"matching.require_better_match_in_compatibility_index_or_blood_group": false,
		"matching.blood_group_compatibility_bonus":                            0.0,
		"matching.use_binary_scoring":                                         false,
		"matching.max_cycle_length":                                           domain.DefaultMaxCycleLength,
		"matching.max_sequence_length":                                        domain.DefaultMaxSequenceLength,
		"matching.max_number_of_distinct_countries_in_round":                  domain.DefaultMaxNumberOfDistinctCountriesInRound,
		"matching.required_patient_db_ids":                                    []int64{},
		"matching.forbidden_country_combinations":                             []string{"AUT:IL", "IL:AUT"},
		"matching.max_matchings_to_show_to_viewer":                            domain.DefaultMaxMatchingsToShowToViewer,
		"matching.max_number_of_matchings":                                    domain.DefaultMaxNumberOfMatchings,
		"matching.max_matchings_in_all_solutions_solver":                      domain.DefaultMaxMatchingsInAllSolutionsSolver,
	}
}

func (l *Loader) indexEnvKeys() {
	keys := l.k.Keys()
	l.envKeys = make(map[string]string, len(keys))
	for _, key := range keys {
		l.envKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
}

// sliceKeys читаются из окружения как список через запятую
var sliceKeys = map[string]bool{
	"matching.required_patient_db_ids":        true,
	"matching.forbidden_country_combinations": true,
}

// envValue переводит TXMATCHING_CACHE_DEFAULT_TTL в cache.default_ttl.
// Имя без известного ключа разбивается по всем подчёркиваниям.
func (l *Loader) envValue(name, value string) (string, any) {
	raw := strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	key, ok := l.envKeys[raw]
	if !ok {
		key = strings.ReplaceAll(raw, "_", ".")
	}
	if sliceKeys[key] {
		return key, splitAndTrim(value)
	}
	return key, value
}

func (l *Loader) loadConfigFile() error {
	candidates := l.configPaths
	if p := os.Getenv(configEnvVar); p != "" {
		candidates = append([]string{p}, candidates...)
	}

	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		return l.k.Load(file.Provider(abs), yaml.Parser())
	}
	return fmt.Errorf("config file not found in paths: %v", candidates)
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults подставляет serviceName туда, где осталось имя по умолчанию
func LoadWithServiceDefaults(serviceName string) (*Config, error) {
	cfg, err := Load()
	if err != nil || serviceName == "" {
		return cfg, err
	}
	if cfg.App.Name == defaultAppName {
		cfg.App.Name = serviceName
	}
	if cfg.Tracing.ServiceName == defaultAppName {
		cfg.Tracing.ServiceName = serviceName
	}
	return cfg, nil
}

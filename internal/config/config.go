// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	// Collection sharding
	Collection CollectionConfig `yaml:"collection"`

	// Baseline runs and evaluation
	Baseline BaselineConfig `yaml:"baseline"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// CollectionConfig holds the collection sharder settings.
type CollectionConfig struct {
	CollectionPath   string `envconfig:"IRT_COLLECTION_PATH" yaml:"collection_path"`
	OutputFolder     string `envconfig:"IRT_OUTPUT_FOLDER" yaml:"output_folder"`
	MaxDocsPerFile   int    `envconfig:"IRT_MAX_DOCS_PER_FILE" yaml:"max_docs_per_file"`
	ProgressInterval int    `envconfig:"IRT_PROGRESS_INTERVAL" yaml:"progress_interval"`
	TextField        string `envconfig:"IRT_TEXT_FIELD" yaml:"text_field"`
	Manifest         bool   `envconfig:"IRT_MANIFEST" yaml:"manifest"`
}

// BaselineConfig holds the baseline runner settings.
type BaselineConfig struct {
	PlanFile     string `envconfig:"IRT_PLAN_FILE" yaml:"plan_file"`
	WorkDir      string `envconfig:"IRT_WORK_DIR" yaml:"work_dir"`
	SearchBin    string `envconfig:"IRT_SEARCH_BIN" yaml:"search_bin"`
	TrecEvalBin  string `envconfig:"IRT_TREC_EVAL_BIN" yaml:"trec_eval_bin"`
	JudgedTool   string `envconfig:"IRT_JUDGED_TOOL" yaml:"judged_tool"`
	Qrels        string `envconfig:"IRT_QRELS" yaml:"qrels"`
	BaseTopics   string `envconfig:"IRT_BASE_TOPICS" yaml:"base_topics"`
	UDelTopics   string `envconfig:"IRT_UDEL_TOPICS" yaml:"udel_topics"`
	RunsDir      string `envconfig:"IRT_RUNS_DIR" yaml:"runs_dir"`
	IndexesDir   string `envconfig:"IRT_INDEXES_DIR" yaml:"indexes_dir"`
	IndexDate    string `envconfig:"IRT_INDEX_DATE" yaml:"index_date"`
	BuiltinEval  bool   `envconfig:"IRT_BUILTIN_EVAL" yaml:"builtin_eval"`
	EvalWorkers  int    `envconfig:"IRT_EVAL_WORKERS" yaml:"eval_workers"`
	JudgedCutoff []int  `envconfig:"IRT_JUDGED_CUTOFFS" yaml:"judged_cutoffs"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"IRT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"IRT_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"IRT_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"IRT_EVENT_LOG" yaml:"event_log"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Persistence string `envconfig:"IRT_METRICS_PERSISTENCE" yaml:"persistence"`
	RedisURL    string `envconfig:"IRT_REDIS_URL" yaml:"redis_url"`
	OutputFile  string `envconfig:"IRT_METRICS_FILE" yaml:"output_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"IRT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"IRT_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "processing env config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError("reading config file", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(errors.CodeValidation, "decoding config file", err).WithDetail("path", path)
	}
	return nil
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.Collection = CollectionConfig{
		MaxDocsPerFile:   1000000,
		ProgressInterval: 100000,
		TextField:        "text",
	}

	cfg.Baseline = BaselineConfig{
		WorkDir:      ".",
		SearchBin:    "target/appassembler/bin/SearchCollection",
		TrecEvalBin:  "tools/eval/trec_eval.9.0.4/trec_eval",
		JudgedTool:   "tools/eval/measure_judged.py",
		Qrels:        "src/main/resources/topics-and-qrels/qrels.covid-round3-cumulative.txt",
		BaseTopics:   "src/main/resources/topics-and-qrels/topics.covid-round4.xml",
		UDelTopics:   "src/main/resources/topics-and-qrels/topics.covid-round4-udel.xml",
		RunsDir:      "runs",
		IndexesDir:   "indexes",
		IndexDate:    "2020-06-19",
		EvalWorkers:  1,
		JudgedCutoff: []int{10, 100, 1000},
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Metrics = MetricsConfig{
		Persistence: "memory",
		RedisURL:    "redis://localhost:6379",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Collection validation
	if c.Collection.MaxDocsPerFile < 1 {
		errs = append(errs, "max_docs_per_file must be positive")
	}

	if c.Collection.ProgressInterval < 1 {
		errs = append(errs, "progress_interval must be positive")
	}

	if strings.TrimSpace(c.Collection.TextField) == "" {
		errs = append(errs, "text_field must not be empty")
	}

	// Baseline validation
	if c.Baseline.EvalWorkers < 1 {
		errs = append(errs, "eval_workers must be positive")
	}

	for _, k := range c.Baseline.JudgedCutoff {
		if k < 1 {
			errs = append(errs, fmt.Sprintf("invalid judged cutoff: %d (must be positive)", k))
		}
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required when bus type is kafka")
	}

	// Metrics validation
	validPersistence := map[string]bool{"memory": true, "redis": true}
	if !validPersistence[c.Metrics.Persistence] {
		errs = append(errs, fmt.Sprintf("invalid metrics persistence: %s (must be memory or redis)", c.Metrics.Persistence))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.ValidationError("config validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running with debug logging.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}

// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Elasticsearch, Redis, Kafka, Postgres, the analysis
// datasets, and the trendserver).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Serve         ServeConfig         `yaml:"serve"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ElasticsearchConfig holds connection parameters for the document index.
type ElasticsearchConfig struct {
	Addresses  []string `yaml:"addresses"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	MaxRetries int      `yaml:"maxRetries"`
	BulkSize   int      `yaml:"bulkSize"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings for the live ingest
// path.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RawDocuments     string `yaml:"rawDocuments"`
	DocumentsIndexed string `yaml:"documentsIndexed"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run-history
// store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalysisConfig controls the batch pipeline: worker counts, the stemming
// toggle for tokenization, and the configured datasets.
type AnalysisConfig struct {
	NumWorkers int             `yaml:"numWorkers"`
	StemTokens bool            `yaml:"stemTokens"`
	Datasets   []DatasetConfig `yaml:"datasets"`
}

// DatasetType names the schema family of a dataset.
type DatasetType string

const (
	TypeRawSocial      DatasetType = "RAW_SOCIAL"
	TypeNewsCSV        DatasetType = "NEWS_CSV"
	TypeCodedRawSocial DatasetType = "CODED_RAW_SOCIAL"
	TypeCodedNewsCSV   DatasetType = "CODED_NEWS_CSV"
)

// DatasetConfig describes one named dataset backed by one index collection.
// Exactly the source section matching Type must be set.
type DatasetConfig struct {
	Name                 string                      `yaml:"name"`
	Index                string                      `yaml:"index"`
	Type                 DatasetType                 `yaml:"type"`
	SourceRawSocial      *SourceRawSocialConfig      `yaml:"sourceRawSocial"`
	SourceNewsCSV        *SourceNewsCSVConfig        `yaml:"sourceNewsCsv"`
	SourceCodedRawSocial *SourceCodedRawSocialConfig `yaml:"sourceCodedRawSocial"`
	SourceCodedNewsCSV   *SourceCodedNewsCSVConfig   `yaml:"sourceCodedNewsCsv"`
}

// SourceRawSocialConfig describes a crawled social-media archive together
// with the crawl plan that produced it.
type SourceRawSocialConfig struct {
	PlanFile       string    `yaml:"planFile"`
	ArchiveDir     string    `yaml:"archiveDir"`
	FrequenciesDir string    `yaml:"frequenciesDir"`
	Queries        []string  `yaml:"queries"`
	StartDate      time.Time `yaml:"startDate"`
	EndDate        time.Time `yaml:"endDate"`
	Languages      []string  `yaml:"languages"`
	Filters        []string  `yaml:"filters"`
}

// SourceNewsCSVConfig describes a news-article CSV corpus.
type SourceNewsCSVConfig struct {
	File string `yaml:"file"`
	Lang string `yaml:"lang"`
}

// CodeConfig is one node in a tree of qualitative-analysis codes. A node
// may carry its own annotation file and any number of sub-codes.
type CodeConfig struct {
	CodeIdentifier string       `yaml:"codeIdentifier"`
	File           string       `yaml:"file"`
	Codes          []CodeConfig `yaml:"codes"`
}

// SourceCodedRawSocialConfig describes coded/annotated social-media
// segments organised in a code tree.
type SourceCodedRawSocialConfig struct {
	Lang  string       `yaml:"lang"`
	Codes []CodeConfig `yaml:"codes"`
}

// SourceCodedNewsCSVConfig layers a code tree on top of a news CSV corpus.
type SourceCodedNewsCSVConfig struct {
	File  string       `yaml:"file"`
	Lang  string       `yaml:"lang"`
	Codes []CodeConfig `yaml:"codes"`
}

// ServeConfig holds the trendserver's listen address and view limits.
// DayResolution is the bucket width in days for the flat-file frequency
// view.
type ServeConfig struct {
	Address         string        `yaml:"address"`
	Port            int           `yaml:"port"`
	TopNWords       int           `yaml:"topNWords"`
	NumTrendInputs  int           `yaml:"numTrendInputs"`
	DayResolution   int           `yaml:"dayResolution"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result. Configuration errors are fatal at
// startup and never retried.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dataset looks up a configured dataset by name.
func (c *Config) Dataset(name string) (*DatasetConfig, error) {
	for i := range c.Analysis.Datasets {
		if c.Analysis.Datasets[i].Name == name {
			return &c.Analysis.Datasets[i], nil
		}
	}
	names := make([]string, 0, len(c.Analysis.Datasets))
	for _, d := range c.Analysis.Datasets {
		names = append(names, d.Name)
	}
	return nil, fmt.Errorf(
		"no dataset named %q configured (configured: %s)",
		name, strings.Join(names, ", "),
	)
}

// Validate checks cross-field constraints: every dataset carries the source
// section its type requires, filters are known, and code identifiers are
// unique within each code tree.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Analysis.Datasets))
	for _, d := range c.Analysis.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset without a name configured")
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("dataset name %q configured twice", d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Index == "" {
			return fmt.Errorf("dataset %q: index must be set", d.Name)
		}

		switch d.Type {
		case TypeRawSocial:
			if d.SourceRawSocial == nil {
				return missingSourceErr(d.Name, d.Type, "sourceRawSocial")
			}
			for _, f := range d.SourceRawSocial.Filters {
				if f != "top" && f != "latest" {
					return fmt.Errorf(
						"dataset %q: unknown search filter %q (want top or latest)",
						d.Name, f,
					)
				}
			}
		case TypeNewsCSV:
			if d.SourceNewsCSV == nil {
				return missingSourceErr(d.Name, d.Type, "sourceNewsCsv")
			}
		case TypeCodedRawSocial:
			if d.SourceCodedRawSocial == nil {
				return missingSourceErr(d.Name, d.Type, "sourceCodedRawSocial")
			}
			if err := validateCodes(d.Name, d.SourceCodedRawSocial.Codes); err != nil {
				return err
			}
		case TypeCodedNewsCSV:
			if d.SourceCodedNewsCSV == nil {
				return missingSourceErr(d.Name, d.Type, "sourceCodedNewsCsv")
			}
			if err := validateCodes(d.Name, d.SourceCodedNewsCSV.Codes); err != nil {
				return err
			}
		default:
			return fmt.Errorf("dataset %q: unknown type %q", d.Name, d.Type)
		}
	}
	return nil
}

func missingSourceErr(name string, t DatasetType, section string) error {
	return fmt.Errorf(
		"dataset %q: type %s requires the %s section to be set",
		name, t, section,
	)
}

// validateCodes walks a code tree with an explicit stack and rejects
// duplicate code identifiers.
func validateCodes(dataset string, codes []CodeConfig) error {
	stack := make([]CodeConfig, len(codes))
	copy(stack, codes)
	seen := make(map[string]struct{})
	for len(stack) > 0 {
		code := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if code.CodeIdentifier == "" {
			return fmt.Errorf("dataset %q: code without codeIdentifier", dataset)
		}
		if _, dup := seen[code.CodeIdentifier]; dup {
			return fmt.Errorf(
				"dataset %q: code identifier %q used multiple times, but must be unique",
				dataset, code.CodeIdentifier,
			)
		}
		seen[code.CodeIdentifier] = struct{}{}
		stack = append(stack, code.Codes...)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Elasticsearch: ElasticsearchConfig{
			Addresses:  []string{"http://localhost:9200"},
			MaxRetries: 5,
			BulkSize:   1000,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "nasty-analysis-group",
			Topics: KafkaTopics{
				RawDocuments:     "raw-documents",
				DocumentsIndexed: "documents-indexed",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "nastyanalysis",
			User:            "nastyanalysis",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analysis: AnalysisConfig{
			NumWorkers: 4,
		},
		Serve: ServeConfig{
			Address:         "localhost",
			Port:            5006,
			TopNWords:       1000,
			NumTrendInputs:  4,
			DayResolution:   5,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads NA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NA_ELASTICSEARCH_ADDRESSES"); v != "" {
		cfg.Elasticsearch.Addresses = strings.Split(v, ",")
	}
	if v := os.Getenv("NA_ELASTICSEARCH_USERNAME"); v != "" {
		cfg.Elasticsearch.Username = v
	}
	if v := os.Getenv("NA_ELASTICSEARCH_PASSWORD"); v != "" {
		cfg.Elasticsearch.Password = v
	}
	if v := os.Getenv("NA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("NA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("NA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("NA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NA_SERVE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Serve.Port = port
		}
	}
	if v := os.Getenv("NA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

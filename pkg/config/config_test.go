package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

// TestLoadDefaults verifies that loading without a file yields the
// development defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Elasticsearch.Addresses[0]; got != "http://localhost:9200" {
		t.Errorf("elasticsearch address = %q", got)
	}
	if cfg.Redis.CacheTTL != 10*time.Minute {
		t.Errorf("redis cacheTTL = %v, want 10m", cfg.Redis.CacheTTL)
	}
	if cfg.Serve.Port != 5006 {
		t.Errorf("serve port = %d, want 5006", cfg.Serve.Port)
	}
	if cfg.Serve.TopNWords != 1000 {
		t.Errorf("serve topNWords = %d, want 1000", cfg.Serve.TopNWords)
	}
}

// TestLoadFileOverridesDefaults verifies that YAML values replace defaults
// while unset sections keep them.
func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
serve:
  port: 8080
  shutdownTimeout: 5s
analysis:
  numWorkers: 8
  stemTokens: true
  datasets:
    - name: tweets
      index: tweets
      type: RAW_SOCIAL
      sourceRawSocial:
        planFile: data/plan.jsonl
        archiveDir: data/archive
        queries: [corona]
        languages: [en]
        filters: [top, latest]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Serve.Port != 8080 {
		t.Errorf("serve port = %d, want 8080", cfg.Serve.Port)
	}
	if cfg.Serve.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdownTimeout = %v, want 5s", cfg.Serve.ShutdownTimeout)
	}
	if !cfg.Analysis.StemTokens {
		t.Error("stemTokens not set")
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want default 5432", cfg.Postgres.Port)
	}
	if len(cfg.Analysis.Datasets) != 1 {
		t.Fatalf("datasets = %d, want 1", len(cfg.Analysis.Datasets))
	}
}

// TestLoadEnvOverrides verifies that NA_* environment variables take
// precedence over file values.
func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
redis:
  addr: filehost:6379
`)
	t.Setenv("NA_REDIS_ADDR", "envhost:6379")
	t.Setenv("NA_ELASTICSEARCH_ADDRESSES", "http://es1:9200,http://es2:9200")
	t.Setenv("NA_SERVE_PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Redis.Addr != "envhost:6379" {
		t.Errorf("redis addr = %q, want env override", cfg.Redis.Addr)
	}
	if len(cfg.Elasticsearch.Addresses) != 2 {
		t.Errorf("elasticsearch addresses = %v, want 2 entries", cfg.Elasticsearch.Addresses)
	}
	if cfg.Serve.Port != 7000 {
		t.Errorf("serve port = %d, want 7000", cfg.Serve.Port)
	}
}

// TestLoadMissingFile verifies that a nonexistent config path is an error.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing file succeeded, want error")
	}
}

// TestValidateRejections checks the cross-field validation rules one by one.
func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		dataset DatasetConfig
		wantMsg string
	}{
		{
			name:    "missing name",
			dataset: DatasetConfig{Index: "x", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
			wantMsg: "without a name",
		},
		{
			name:    "missing index",
			dataset: DatasetConfig{Name: "d", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
			wantMsg: "index must be set",
		},
		{
			name:    "unknown type",
			dataset: DatasetConfig{Name: "d", Index: "d", Type: "CSV"},
			wantMsg: "unknown type",
		},
		{
			name:    "missing source section",
			dataset: DatasetConfig{Name: "d", Index: "d", Type: TypeRawSocial},
			wantMsg: "requires the sourceRawSocial section",
		},
		{
			name: "unknown filter",
			dataset: DatasetConfig{
				Name: "d", Index: "d", Type: TypeRawSocial,
				SourceRawSocial: &SourceRawSocialConfig{Filters: []string{"popular"}},
			},
			wantMsg: "unknown search filter",
		},
		{
			name: "duplicate code identifier",
			dataset: DatasetConfig{
				Name: "d", Index: "d", Type: TypeCodedRawSocial,
				SourceCodedRawSocial: &SourceCodedRawSocialConfig{
					Lang: "de",
					Codes: []CodeConfig{
						{CodeIdentifier: "angst", File: "a.txt"},
						{CodeIdentifier: "wut", Codes: []CodeConfig{
							{CodeIdentifier: "angst", File: "b.txt"},
						}},
					},
				},
			},
			wantMsg: "used multiple times",
		},
		{
			name: "code without identifier",
			dataset: DatasetConfig{
				Name: "d", Index: "d", Type: TypeCodedNewsCSV,
				SourceCodedNewsCSV: &SourceCodedNewsCSVConfig{
					File: "news.csv", Lang: "de",
					Codes: []CodeConfig{{File: "a.txt"}},
				},
			},
			wantMsg: "without codeIdentifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Analysis.Datasets = []DatasetConfig{tt.dataset}
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

// TestValidateRejectsDuplicateDatasetNames verifies that two datasets may
// not share a name.
func TestValidateRejectsDuplicateDatasetNames(t *testing.T) {
	cfg := defaultConfig()
	cfg.Analysis.Datasets = []DatasetConfig{
		{Name: "d", Index: "a", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
		{Name: "d", Index: "b", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "configured twice") {
		t.Fatalf("Validate() error = %v, want duplicate-name rejection", err)
	}
}

// TestDatasetLookup verifies lookup by name and the error listing known
// names for a miss.
func TestDatasetLookup(t *testing.T) {
	cfg := defaultConfig()
	cfg.Analysis.Datasets = []DatasetConfig{
		{Name: "tweets", Index: "tweets", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
		{Name: "news", Index: "news", Type: TypeNewsCSV, SourceNewsCSV: &SourceNewsCSVConfig{}},
	}

	d, err := cfg.Dataset("news")
	if err != nil {
		t.Fatalf("Dataset(news) error = %v", err)
	}
	if d.Index != "news" {
		t.Errorf("dataset index = %q, want %q", d.Index, "news")
	}

	_, err = cfg.Dataset("missing")
	if err == nil {
		t.Fatal("Dataset(missing) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "tweets, news") {
		t.Errorf("miss error = %q, want configured names listed", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.NotEmpty(t, cfg.DataDir)
	require.Len(t, cfg.Domains, 3)
	require.Equal(t, []string{"heritage"}, cfg.Priority)
	require.Equal(t, 3, cfg.Allocate.IssueAttempts)
	require.True(t, cfg.Resolve.Backup)
	require.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	require.NoError(t, Validate(cfg))
}

func TestDefaultDomains(t *testing.T) {
	domains := DefaultDomains()

	names := make([]string, 0, len(domains))
	for _, d := range domains {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"heritage", "multi", "purchase_order"}, names)

	require.Equal(t, "numero_soumission", domains[1].NumberColumn)
	require.Equal(t, "date_creation", domains[1].CreatedAtColumn)
	require.Equal(t, "BC-", domains[2].Prefix)
	require.Empty(t, domains[0].Prefix)
}

func TestValidateDomains_Empty(t *testing.T) {
	err := ValidateDomains(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one domain")
}

func TestValidateDomains_Errors(t *testing.T) {
	valid := DomainConfig{Name: "a", Path: "a.db", Table: "t", NumberColumn: "n"}

	tests := []struct {
		name   string
		mutate func(d *DomainConfig)
		want   string
	}{
		{"missing name", func(d *DomainConfig) { d.Name = "" }, "name is required"},
		{"missing path", func(d *DomainConfig) { d.Path = "" }, "path is required"},
		{"missing table", func(d *DomainConfig) { d.Table = "" }, "table"},
		{"bad number column", func(d *DomainConfig) { d.NumberColumn = "numero; DROP" }, "number_column"},
		{"bad label column", func(d *DomainConfig) { d.LabelColumn = "a b" }, "label_column"},
		{"unknown schema", func(d *DomainConfig) { d.Schema = "nope" }, "unknown schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := ValidateDomains([]DomainConfig{d})
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDomains_OptionalColumns(t *testing.T) {
	err := ValidateDomains([]DomainConfig{{Name: "a", Path: "a.db", Table: "t", NumberColumn: "n"}})
	require.NoError(t, err)
}

func TestValidateDomains_DuplicateName(t *testing.T) {
	d := DomainConfig{Name: "a", Path: "a.db", Table: "t", NumberColumn: "n"}
	err := ValidateDomains([]DomainConfig{d, d})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate name")
}

func TestValidatePriority(t *testing.T) {
	domains := DefaultDomains()

	require.NoError(t, ValidatePriority(nil, domains))
	require.NoError(t, ValidatePriority([]string{"multi", "heritage"}, domains))

	err := ValidatePriority([]string{"heritage", "invoices"}, domains)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"invoices"`)
}

func TestValidate_NegativeAttempts(t *testing.T) {
	cfg := Defaults()
	cfg.Allocate.IssueAttempts = -1
	require.Error(t, Validate(cfg))
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{}))
	require.NoError(t, ValidateTracing(tracing.DefaultConfig()))

	err := ValidateTracing(tracing.Config{SampleRate: 1.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate")

	err = ValidateTracing(tracing.Config{Exporter: "jaeger"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exporter")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: "otlp"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint")
}

func TestConfig_Descriptors(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/srv/docnum"
	cfg.Domains = append(cfg.Domains, DomainConfig{
		Name: "invoices", Path: "/elsewhere/factures.db", Table: "factures", NumberColumn: "numero",
	})

	descs := cfg.Descriptors()
	require.Len(t, descs, 4)
	require.Equal(t, filepath.Join("/srv/docnum", "soumissions_heritage.db"), descs[0].StorePath)
	require.Equal(t, "BC-", descs[2].Prefix)
	require.Equal(t, "/elsewhere/factures.db", descs[3].StorePath)
	require.Equal(t, "id", descs[3].IDColumn, "id column defaults to id")
}

func TestConfig_ResolvePath(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	require.Empty(t, cfg.ResolvePath(""))
	require.Equal(t, "/abs/x.db", cfg.ResolvePath("/abs/x.db"))
	require.Equal(t, filepath.Join("/data", "x.db"), cfg.ResolvePath("x.db"))
}

func TestConfig_TracingConfig(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/data"
	require.Equal(t, filepath.Join("/data", "traces", "traces.jsonl"), cfg.TracingConfig().FilePath)

	cfg.Tracing.FilePath = "/tmp/t.jsonl"
	require.Equal(t, "/tmp/t.jsonl", cfg.TracingConfig().FilePath)
}

func TestDefaultConfigTemplate_Parses(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, DefaultDomains(), cfg.Domains)
	require.Equal(t, []string{"heritage"}, cfg.Priority)
	require.Equal(t, 5*time.Minute, cfg.Store.IdleTimeout)
	require.Equal(t, "docnum.db", cfg.Resolve.LedgerPath)
	require.NoError(t, Validate(cfg))
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

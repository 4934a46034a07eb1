// Package config provides configuration types and defaults for docnum.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/tracing"
)

// DomainConfig describes one document domain and where its numbers live.
type DomainConfig struct {
	Name            string `mapstructure:"name" yaml:"name"`
	Path            string `mapstructure:"path" yaml:"path"` // relative paths resolve against data_dir
	Table           string `mapstructure:"table" yaml:"table"`
	NumberColumn    string `mapstructure:"number_column" yaml:"number_column"`
	CreatedAtColumn string `mapstructure:"created_at_column" yaml:"created_at_column,omitempty"`
	LabelColumn     string `mapstructure:"label_column" yaml:"label_column,omitempty"`
	IDColumn        string `mapstructure:"id_column" yaml:"id_column,omitempty"` // default "id"
	Prefix          string `mapstructure:"prefix" yaml:"prefix,omitempty"`       // e.g. "BC-"
	Schema          string `mapstructure:"schema" yaml:"schema,omitempty"`       // built-in schema provisioned by `docnum init`
}

// Config holds all configuration options for docnum.
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Domains  []DomainConfig `mapstructure:"domains"`
	Priority []string       `mapstructure:"priority"`
	Store    StoreConfig    `mapstructure:"store"`
	Resolve  ResolveConfig  `mapstructure:"resolve"`
	Allocate AllocateConfig `mapstructure:"allocate"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// StoreConfig tunes domain store access.
type StoreConfig struct {
	// IdleTimeout closes partition handles unused for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// ResolveConfig configures resolution passes.
type ResolveConfig struct {
	// LedgerPath is the SQLite file journaling applied reassignments.
	// Empty disables the ledger. Relative paths resolve against data_dir.
	LedgerPath string `mapstructure:"ledger_path"`

	// Backup snapshots every touched domain before a writing pass.
	Backup bool `mapstructure:"backup"`

	// BackupDir holds the snapshots. Relative paths resolve against data_dir.
	BackupDir string `mapstructure:"backup_dir"`
}

// AllocateConfig configures the allocation facade.
type AllocateConfig struct {
	// IssueAttempts bounds re-allocation after a duplicate on insert.
	IssueAttempts int `mapstructure:"issue_attempts"`
}

// WatchConfig configures `docnum watch`.
type WatchConfig struct {
	// Debounce coalesces bursts of file events.
	Debounce time.Duration `mapstructure:"debounce"`
}

// MetricsConfig configures the prometheus textfile output.
type MetricsConfig struct {
	// TextfilePath receives metrics after each command. Empty disables it.
	TextfilePath string `mapstructure:"textfile_path"`
}

// DefaultDataDir returns ~/.docnum/data, or a relative .docnum/data when the
// home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docnum", "data")
	}
	return filepath.Join(home, ".docnum", "data")
}

// DefaultDomains returns the three historical document domains.
func DefaultDomains() []DomainConfig {
	return []DomainConfig{
		{
			Name:            "heritage",
			Path:            "soumissions_heritage.db",
			Table:           "soumissions_heritage",
			NumberColumn:    "numero",
			CreatedAtColumn: "created_at",
			LabelColumn:     "client_nom",
			IDColumn:        "id",
			Schema:          "heritage",
		},
		{
			Name:            "multi",
			Path:            "soumissions_multi.db",
			Table:           "soumissions",
			NumberColumn:    "numero_soumission",
			CreatedAtColumn: "date_creation",
			LabelColumn:     "nom_client",
			IDColumn:        "id",
			Schema:          "multi",
		},
		{
			Name:            "purchase_order",
			Path:            "bon_commande.db",
			Table:           "bons_commande",
			NumberColumn:    "numero",
			CreatedAtColumn: "created_at",
			LabelColumn:     "fournisseur_nom",
			IDColumn:        "id",
			Prefix:          "BC-",
			Schema:          "purchase_order",
		},
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Domains:  DefaultDomains(),
		Priority: []string{"heritage"},
		Store: StoreConfig{
			IdleTimeout: sqlite.DefaultIdleTimeout,
		},
		Resolve: ResolveConfig{
			LedgerPath: "docnum.db",
			Backup:     true,
			BackupDir:  "backups",
		},
		Allocate: AllocateConfig{
			IssueAttempts: 3,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if err := ValidateDomains(cfg.Domains); err != nil {
		return err
	}
	if err := ValidatePriority(cfg.Priority, cfg.Domains); err != nil {
		return err
	}
	if cfg.Allocate.IssueAttempts < 0 {
		return fmt.Errorf("allocate.issue_attempts must not be negative, got %d", cfg.Allocate.IssueAttempts)
	}
	if cfg.Store.IdleTimeout < 0 {
		return fmt.Errorf("store.idle_timeout must not be negative, got %s", cfg.Store.IdleTimeout)
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateDomains checks domain definitions for errors.
func ValidateDomains(domains []DomainConfig) error {
	if len(domains) == 0 {
		return errors.New("at least one domain is required")
	}
	seen := make(map[string]bool, len(domains))
	for i, d := range domains {
		if d.Name == "" {
			return fmt.Errorf("domain %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("domain %d (%s): duplicate name", i, d.Name)
		}
		seen[d.Name] = true

		if d.Path == "" {
			return fmt.Errorf("domain %d (%s): path is required", i, d.Name)
		}
		for field, ident := range map[string]string{
			"table":             d.Table,
			"number_column":     d.NumberColumn,
			"id_column":         d.IDColumn,
			"created_at_column": d.CreatedAtColumn,
			"label_column":      d.LabelColumn,
		} {
			if ident == "" && (field == "created_at_column" || field == "label_column" || field == "id_column") {
				continue
			}
			if !sqlite.ValidIdentifier(ident) {
				return fmt.Errorf("domain %d (%s): %s %q is not a valid identifier", i, d.Name, field, ident)
			}
		}
		if d.Schema != "" && !sqlite.HasSchema(d.Schema) {
			return fmt.Errorf("domain %d (%s): unknown schema %q", i, d.Name, d.Schema)
		}
	}
	return nil
}

// ValidatePriority checks that every priority entry names a configured domain.
func ValidatePriority(priority []string, domains []DomainConfig) error {
	known := make(map[string]bool, len(domains))
	for _, d := range domains {
		known[d.Name] = true
	}
	for _, name := range priority {
		if !known[name] {
			return fmt.Errorf("priority: unknown domain %q", name)
		}
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}
	if t.Enabled && t.Exporter == "otlp" && t.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// ResolvePath makes p absolute against the data directory. Empty stays empty.
func (c Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Descriptors builds the immutable domain descriptors, in configuration order.
func (c Config) Descriptors() []domain.DomainDescriptor {
	out := make([]domain.DomainDescriptor, 0, len(c.Domains))
	for _, d := range c.Domains {
		id := d.IDColumn
		if id == "" {
			id = "id"
		}
		out = append(out, domain.DomainDescriptor{
			Name:            d.Name,
			StorePath:       c.ResolvePath(d.Path),
			Table:           d.Table,
			NumberColumn:    d.NumberColumn,
			CreatedAtColumn: d.CreatedAtColumn,
			LabelColumn:     d.LabelColumn,
			IDColumn:        id,
			Prefix:          d.Prefix,
			Schema:          d.Schema,
		})
	}
	return out
}

// TracingConfig returns the tracing configuration with the file path defaulted
// under the data directory.
func (c Config) TracingConfig() tracing.Config {
	t := c.Tracing
	if t.FilePath == "" {
		t.FilePath = filepath.Join(c.DataDir, "traces", "traces.jsonl")
	}
	return t
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# docnum configuration

# Directory holding the domain databases, the ledger and backups.
# Relative domain paths below resolve against it.
# data_dir: ~/.docnum/data

# Document domains, scanned in this order.
domains:
  - name: heritage
    path: soumissions_heritage.db
    table: soumissions_heritage
    number_column: numero
    created_at_column: created_at
    label_column: client_nom
    id_column: id
    schema: heritage

  - name: multi
    path: soumissions_multi.db
    table: soumissions
    number_column: numero_soumission
    created_at_column: date_creation
    label_column: nom_client
    id_column: id
    schema: multi

  - name: purchase_order
    path: bon_commande.db
    table: bons_commande
    number_column: numero
    created_at_column: created_at
    label_column: fournisseur_nom
    id_column: id
    prefix: "BC-"
    schema: purchase_order

# Domain options:
#   name: Domain identifier (required)
#   path: SQLite file (required)
#   table / number_column: Where the numbers live (required)
#   created_at_column: Creation timestamp, used to pick the keeper of a conflict
#   label_column: Human-readable label shown in reports
#   id_column: Integer record id (default: id)
#   prefix: Series prefix, numbers look like PREFIX + YYYY-NNN
#   schema: Built-in schema created by 'docnum init' (heritage, multi, purchase_order)

# Keeper priority when timestamps are missing or tied. Earlier names win.
priority:
  - heritage

store:
  idle_timeout: 5m        # Close partition handles unused this long

resolve:
  ledger_path: docnum.db  # Journal of applied reassignments (empty disables)
  backup: true            # Snapshot touched domains before writing
  backup_dir: backups

allocate:
  issue_attempts: 3       # Re-allocations after a duplicate on insert

watch:
  debounce: 300ms

# metrics:
#   textfile_path: /var/lib/node_exporter/textfile/docnum.prom

# Tracing configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.docnum/data/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

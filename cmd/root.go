package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quoteworks/docnum/internal/config"
	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/presentation"
)

// defaultConfigPath is where `docnum init` writes and where lookup starts.
const defaultConfigPath = ".docnum/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	debugFlag   bool
	logFile     string
	outputFlag  string
	noColor     bool
	metricsFile string

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "docnum",
	Short: "Coordinate YYYY-NNN document numbers across SQLite databases",
	Long: `docnum hands out sequential document numbers (YYYY-NNN) that are unique
across every configured domain database, and finds and repairs numbers that
ended up on more than one record.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .docnum/config.yaml, then ~/.config/docnum/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "",
		"directory holding the domain databases")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text",
		"output format: text, json, yaml or markdown")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write debug logs (also DOCNUM_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"debug log path (default: docnum-debug.log, also DOCNUM_LOG)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write prometheus metrics to this textfile after the command")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("metrics.textfile_path", rootCmd.PersistentFlags().Lookup("metrics-file"))
}

func setDefaults(v *viper.Viper) {
	defaults := config.Defaults()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("domains", defaults.Domains)
	v.SetDefault("priority", defaults.Priority)
	v.SetDefault("store.idle_timeout", defaults.Store.IdleTimeout)
	v.SetDefault("resolve.ledger_path", defaults.Resolve.LedgerPath)
	v.SetDefault("resolve.backup", defaults.Resolve.Backup)
	v.SetDefault("resolve.backup_dir", defaults.Resolve.BackupDir)
	v.SetDefault("allocate.issue_attempts", defaults.Allocate.IssueAttempts)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("metrics.textfile_path", defaults.Metrics.TextfilePath)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
}

func initConfig() {
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("DOCNUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .docnum/config.yaml (current directory)
		// 2. ~/.config/docnum/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "docnum"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// A missing config file is fine: defaults describe the historical domains.
	// `docnum init` writes one.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "docnum: reading config: %v\n", err)
		}
	}

	// Start empty so a shorter domain list in the file replaces the defaults.
	cfg = config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "docnum: decoding config: %v\n", err)
	}
}

// setup initializes logging and output styling before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	if noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if _, err := presentation.ParseFormat(outputFlag); err != nil {
		return err
	}

	debug := debugFlag || os.Getenv("DOCNUM_DEBUG") != ""
	if !debug {
		return nil
	}
	path := logFile
	if path == "" {
		path = os.Getenv("DOCNUM_LOG")
	}
	if path == "" {
		path = "docnum-debug.log"
	}
	cleanup, err := log.Init(path)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup
	log.Info(log.CatConfig, "Starting", "command", cmd.CommandPath(), "version", version,
		"config", viper.ConfigFileUsed())
	return nil
}

// configPath returns the config file in use, or the default location.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	if cfgFile != "" {
		return cfgFile
	}
	return defaultConfigPath
}

// formatter builds the output formatter from --output.
func formatter(cmd *cobra.Command) *presentation.Formatter {
	format, _ := presentation.ParseFormat(outputFlag)
	return presentation.NewFormatter(cmd.OutOrStdout(), format)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var exit *exitError
		if !errors.As(err, &exit) || exit.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return exitCode(err)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

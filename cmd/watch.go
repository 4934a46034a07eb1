package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
	"github.com/quoteworks/docnum/internal/watcher"
)

var watchResolve string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check for conflicts whenever a domain database changes",
	Long: `Watch every domain database (and its WAL file) and run a conflict check
after each burst of writes. With --resolve automatic, conflicts are repaired
as they appear; with --resolve dry-run the repair is only printed.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addYearFlag(watchCmd, "only numbers of this year")
	watchCmd.Flags().StringVar(&watchResolve, "resolve", "", "also run a pass on change: automatic or dry-run")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	year, err := yearFlag(cmd)
	if err != nil {
		return err
	}
	var mode resolver.Mode
	if watchResolve != "" {
		mode, err = resolver.ParseMode(watchResolve)
		if err != nil {
			return err
		}
		if mode == resolver.ModeInteractive {
			return fmt.Errorf("--resolve interactive is not supported while watching")
		}
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	var r *resolver.Resolver
	if mode != "" {
		if r, err = e.resolver(nil, cfg.Resolve.Backup); err != nil {
			return err
		}
	}

	w, err := watcher.New(watcher.Config{DBPaths: e.paths(), DebounceDur: cfg.Watch.Debounce})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := watchOnce(ctx, cmd, e, r, mode, year); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-changes:
			log.Info(log.CatWatcher, "Domains changed", "paths", change.Paths)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s  change in %d database(s)\n",
				time.Now().Format("15:04:05"), len(change.Paths))
			if err := watchOnce(ctx, cmd, e, r, mode, year); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.ErrorErr(log.CatWatcher, "Check after change failed", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		}
	}
}

// watchOnce checks for conflicts and, when r is set, resolves them.
func watchOnce(ctx context.Context, cmd *cobra.Command, e *env, r *resolver.Resolver, mode resolver.Mode, year *int) error {
	if r != nil {
		report, err := r.Pass(ctx, mode, year)
		if report != nil {
			if ferr := formatter(cmd).FormatReport(report); ferr != nil {
				return ferr
			}
		}
		return err
	}

	reg, err := e.scanner.Scan(ctx, year)
	if err != nil {
		return err
	}
	return formatter(cmd).FormatCheck(reg, registry.Detect(reg))
}

package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/tracing"
)

// Resolve repairs conflicts found in reg. Failures on individual records are
// reported as unresolved conflicts and never stop the pass. The error is
// non-nil only for an invalid mode, a failed backup, a decider error or a
// cancelled context; the report is returned in every case but the first.
func (r *Resolver) Resolve(ctx context.Context, conflicts []registry.Conflict, reg *registry.Registry, mode Mode) (*Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == ModeInteractive && r.decider == nil {
		return nil, errors.New("interactive mode needs a decider")
	}
	if reg == nil {
		return nil, errors.New("resolve needs the registry the conflicts were detected in")
	}
	return r.resolve(ctx, r.newID(), conflicts, reg, mode)
}

func (r *Resolver) resolve(ctx context.Context, passID string, conflicts []registry.Conflict, reg *registry.Registry, mode Mode) (report *Report, err error) {
	ctx, span := tracing.Start(ctx, r.tracer, tracing.SpanResolve,
		attribute.String(tracing.AttrPassID, passID),
		attribute.String(tracing.AttrMode, string(mode)),
		attribute.Int(tracing.AttrConflicts, len(conflicts)),
	)
	defer func() {
		if report != nil {
			span.SetAttributes(
				attribute.Int(tracing.AttrResolved, report.ResolvedCount),
				attribute.Int(tracing.AttrUnresolved, len(report.Unresolved)),
				attribute.Int(tracing.AttrReassignments, len(report.Reassignments)),
			)
		}
		tracing.End(span, err)
	}()

	report = &Report{
		PassID:        passID,
		Mode:          mode,
		StartedAt:     r.now(),
		ConflictCount: len(conflicts),
		Unavailable:   reg.Unavailable(),
	}
	r.metrics.IncPass(string(mode))

	if mode != ModeDryRun && len(conflicts) > 0 && r.backupDir != "" {
		backups, err := r.backup(ctx, passID, conflicts)
		report.Backups = backups
		if err != nil {
			report.Aborted = true
			return report, err
		}
	}

	c := newCounter(reg)
	for i, conflict := range conflicts {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			log.Warn(log.CatResolve, "Pass cancelled between conflicts", "pass_id", passID, "handled", i)
			return report, err
		}

		keeper, losers := SelectKeeper(conflict.Occurrences, r.priority)

		if mode == ModeInteractive {
			decision, err := r.decider.Decide(ctx, Proposal{
				Conflict: conflict,
				Keeper:   keeper,
				Losers:   losers,
				Index:    i + 1,
				Total:    len(conflicts),
			})
			if err != nil {
				report.Aborted = true
				return report, fmt.Errorf("deciding conflict on %s: %w", conflict.Number, err)
			}
			switch decision {
			case Accept:
			case Skip:
				log.Info(log.CatResolve, "Conflict skipped", "pass_id", passID, "number", conflict.Number)
				report.Skipped = append(report.Skipped, conflict)
				continue
			case Abort:
				log.Info(log.CatResolve, "Pass aborted by operator", "pass_id", passID, "number", conflict.Number)
				report.Aborted = true
				return report, nil
			default:
				report.Aborted = true
				return report, fmt.Errorf("deciding conflict on %s: unknown decision %d", conflict.Number, int(decision))
			}
		}

		applied, failure := r.apply(ctx, c, conflict.Number, losers, mode == ModeDryRun)
		report.Reassignments = append(report.Reassignments, applied...)

		if mode != ModeDryRun && r.journal != nil && len(applied) > 0 {
			if err := r.journal.Record(ctx, passID, string(mode), r.now(), applied); err != nil {
				log.ErrorErr(log.CatLedger, "Failed to journal reassignments", err, "pass_id", passID, "number", conflict.Number)
			}
		}

		if failure != nil {
			log.WarnErr(log.CatResolve, "Conflict left unresolved", failure, "pass_id", passID, "number", conflict.Number)
			report.Unresolved = append(report.Unresolved, Unresolved{Conflict: conflict, Reason: failure.Error()})
			continue
		}
		report.ResolvedCount++
		report.resolved = append(report.resolved, conflict.Number)
		log.Info(log.CatResolve, "Conflict resolved",
			"pass_id", passID, "number", conflict.Number, "keeper_domain", keeper.Domain, "losers", len(losers))
	}

	return report, nil
}

type loserJob struct {
	index  int
	loser  domain.NumberRecord
	prefix string
	year   int
	number string
}

type loserResult struct {
	reassignment *domain.Reassignment
	err          error
}

// apply renumbers the losers of one conflict. New numbers are minted in loser
// order before any write; domains are then written in parallel while the
// losers of one domain are written in order.
func (r *Resolver) apply(ctx context.Context, c *counter, number string, losers []domain.NumberRecord, dryRun bool) ([]domain.Reassignment, error) {
	results := make([]loserResult, len(losers))
	byDomain := make(map[string][]loserJob)
	var domainOrder []string

	for i, loser := range losers {
		store, err := r.scanner.Store(loser.Domain)
		if err != nil {
			results[i].err = err
			continue
		}
		prefix := store.Descriptor().Prefix
		job := loserJob{
			index:  i,
			loser:  loser,
			prefix: prefix,
			year:   r.conflictYear(number, prefix),
		}
		job.number = c.mint(job.prefix, job.year)
		if _, seen := byDomain[loser.Domain]; !seen {
			domainOrder = append(domainOrder, loser.Domain)
		}
		byDomain[loser.Domain] = append(byDomain[loser.Domain], job)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range domainOrder {
		jobs := byDomain[name]
		g.Go(func() error {
			store, _ := r.scanner.Store(name)
			dctx, span := tracing.Start(gctx, r.tracer, tracing.SpanApply,
				attribute.String(tracing.AttrDomain, name),
				attribute.String(tracing.AttrNumber, number),
			)
			defer span.End()
			for _, job := range jobs {
				results[job.index] = r.applyOne(dctx, span, c, store, job, dryRun)
			}
			return nil
		})
	}
	_ = g.Wait()

	var applied []domain.Reassignment
	var failures []error
	for i, res := range results {
		if res.reassignment != nil {
			applied = append(applied, *res.reassignment)
		}
		if res.err != nil {
			failures = append(failures, fmt.Errorf("%s record %d: %w", losers[i].Domain, losers[i].RecordID, res.err))
		}
	}
	return applied, errors.Join(failures...)
}

// applyOne writes one loser, advancing the counter and retrying once when the
// minted number turns out to be taken in the domain.
func (r *Resolver) applyOne(ctx context.Context, span trace.Span, c *counter, store domain.Store, job loserJob, dryRun bool) loserResult {
	name := store.Descriptor().Name
	newNumber := job.number

	if dryRun {
		r.metrics.IncReassignment(name, "planned")
		return loserResult{reassignment: &domain.Reassignment{
			OldNumber: job.loser.Number, NewNumber: newNumber, Domain: name, RecordID: job.loser.RecordID,
		}}
	}

	err := store.UpdateNumber(ctx, job.loser.RecordID, newNumber)
	if errors.Is(err, domain.ErrConstraintViolation) {
		retry := c.mint(job.prefix, job.year)
		span.AddEvent(tracing.EventRetry, trace.WithAttributes(
			attribute.String(tracing.AttrNumber, newNumber),
			attribute.String("retry_number", retry),
		))
		log.Warn(log.CatResolve, "Minted number taken, retrying once",
			"domain", name, "record_id", job.loser.RecordID, "number", newNumber, "retry", retry)
		newNumber = retry
		err = store.UpdateNumber(ctx, job.loser.RecordID, newNumber)
	}
	if err != nil {
		r.metrics.IncReassignment(name, "failed")
		return loserResult{err: err}
	}

	r.metrics.IncReassignment(name, "applied")
	log.Info(log.CatResolve, "Record renumbered",
		"domain", name, "record_id", job.loser.RecordID, "old", job.loser.Number, "new", newNumber)
	return loserResult{reassignment: &domain.Reassignment{
		OldNumber: job.loser.Number, NewNumber: newNumber, Domain: name, RecordID: job.loser.RecordID,
	}}
}

// conflictYear is the year encoded in the conflicting number, read in the
// loser's series first and the unprefixed series second, else the clock year.
func (r *Resolver) conflictYear(number, prefix string) int {
	if year, ok := domain.ParseYear(number, prefix); ok {
		return year
	}
	if year, ok := domain.ParseYear(number, ""); ok {
		return year
	}
	return r.now().Year()
}

// backup snapshots every domain holding an occurrence of a conflict.
func (r *Resolver) backup(ctx context.Context, passID string, conflicts []registry.Conflict) ([]string, error) {
	dir := filepath.Join(r.backupDir, passID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	seen := make(map[string]bool)
	var written []string
	for _, conflict := range conflicts {
		for _, name := range conflict.Domains() {
			if seen[name] {
				continue
			}
			seen[name] = true

			store, err := r.scanner.Store(name)
			if err != nil {
				return written, err
			}
			b, ok := store.(Backuper)
			if !ok {
				log.Debug(log.CatResolve, "Store cannot be backed up, skipping", "domain", name)
				continue
			}
			dest := filepath.Join(dir, name+".db")
			if err := b.Backup(ctx, dest); err != nil {
				return written, fmt.Errorf("backing up %s: %w", name, err)
			}
			written = append(written, dest)
		}
	}
	return written, nil
}

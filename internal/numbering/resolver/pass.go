package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/quoteworks/docnum/internal/log"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/tracing"
)

// Pass scans the domains, resolves every conflict in mode, then re-scans to
// verify that no number resolved or minted by the pass is still shared.
// A nil year scans every year.
func (r *Resolver) Pass(ctx context.Context, mode Mode, year *int) (report *Report, err error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == ModeInteractive && r.decider == nil {
		return nil, errors.New("interactive mode needs a decider")
	}

	passID := r.newID()
	ctx, span := tracing.Start(ctx, r.tracer, tracing.SpanPass,
		attribute.String(tracing.AttrPassID, passID),
		attribute.String(tracing.AttrMode, string(mode)),
	)
	defer func() { tracing.End(span, err) }()

	reg, err := r.scanner.Scan(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("scanning domains: %w", err)
	}
	conflicts := registry.Detect(reg)
	r.metrics.AddConflicts(len(conflicts))
	log.Info(log.CatResolve, "Resolution pass started",
		"pass_id", passID, "mode", mode, "conflicts", len(conflicts), "unavailable", len(reg.Unavailable()))

	report, err = r.resolve(ctx, passID, conflicts, reg, mode)
	if err != nil {
		return report, err
	}

	if mode == ModeDryRun {
		return report, nil
	}

	if err := r.verify(ctx, report, year); err != nil {
		log.ErrorErr(log.CatResolve, "Post-pass verification failed", err, "pass_id", passID)
	}
	log.Info(log.CatResolve, "Resolution pass finished",
		"pass_id", passID, "resolved", report.ResolvedCount, "unresolved", len(report.Unresolved),
		"skipped", len(report.Skipped), "residual", len(report.Residual))
	return report, nil
}

// verify re-scans and records in report.Residual every remaining conflict on
// a number the pass resolved or minted.
func (r *Resolver) verify(ctx context.Context, report *Report, year *int) error {
	reg, err := r.scanner.Scan(ctx, year)
	if err != nil {
		return err
	}
	touched := make(map[string]bool)
	for _, n := range report.resolved {
		touched[n] = true
	}
	for _, ra := range report.Reassignments {
		touched[ra.NewNumber] = true
	}
	for _, conflict := range registry.Detect(reg) {
		if touched[conflict.Number] {
			report.Residual = append(report.Residual, conflict)
		}
	}
	report.Verified = true
	if len(report.Residual) > 0 {
		log.Warn(log.CatResolve, "Conflicts remain after pass", "pass_id", report.PassID, "count", len(report.Residual))
	}
	return nil
}

package businessflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconcile outcomes
const (
	OutcomeDryRun        = "dry_run"
	OutcomeNoChanges     = "no_changes"
	OutcomeReconciled    = "reconciled"
	OutcomeResidualDrift = "residual_drift"
)

// ReconcileOptions controls a reconcile run
type ReconcileOptions struct {
	DryRun bool
}

// ReconcileFlow rewrites drifted counters from the scans table.
// Either every planned counter is written or none is.
type ReconcileFlow interface {
	Reconcile(ctx context.Context, opts ReconcileOptions) (*dto.ReconcileResponse, error)
}

type ReconcileFlowImpl struct {
	detector *DriftFlowImpl
	qrRepo   repository.QRCodeRepository
	db       *gorm.DB
	locker   MaintenanceLocker
}

func NewReconcileFlow(qrRepo repository.QRCodeRepository, scanRepo repository.ScanRepository, db *gorm.DB, locker MaintenanceLocker) ReconcileFlow {
	return &ReconcileFlowImpl{
		detector: &DriftFlowImpl{qrRepo: qrRepo, scanRepo: scanRepo},
		qrRepo:   qrRepo,
		db:       db,
		locker:   locker,
	}
}

func (f *ReconcileFlowImpl) Reconcile(ctx context.Context, opts ReconcileOptions) (*dto.ReconcileResponse, error) {
	// A dry run writes nothing, so it does not wait for a run in progress
	if !opts.DryRun {
		release, err := f.locker.TryLock(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	runID := uuid.NewString()
	ctx = logging.WithAttrs(ctx, slog.String("run_id", runID), slog.Bool("dry_run", opts.DryRun))

	report := &dto.ReconcileResponse{
		RunID:     runID,
		DryRun:    opts.DryRun,
		StartedAt: utils.UTCNowRFC3339(),
		Changes:   []dto.PlannedChange{},
	}

	before, err := f.detector.snapshot(ctx, DriftQuery{})
	if err != nil {
		return nil, err
	}
	report.Before = before.totals
	report.Warnings = append(report.Warnings, before.warnings...)

	var planned []*models.DriftRecord
	for _, r := range before.records {
		if !r.Drifted() {
			continue
		}
		planned = append(planned, r)
		report.Changes = append(report.Changes, dto.PlannedChange{
			QRCodeID:  r.QRCodeID,
			ShortCode: r.ShortCode,
			OldValue:  r.CachedCount,
			NewValue:  r.AuthoritativeCount,
			Delta:     r.Difference,
		})
	}

	switch {
	case opts.DryRun:
		return f.finish(ctx, report, OutcomeDryRun), nil
	case len(planned) == 0:
		return f.finish(ctx, report, OutcomeNoChanges), nil
	}

	// Nothing has been written yet, so a cancelled caller can still back out cleanly
	if err := ctx.Err(); err != nil {
		reconcileRunsTotal.WithLabelValues("cancelled").Inc()
		return nil, NewBusinessError("RECONCILE_CANCELLED", "Reconcile cancelled before applying changes", err)
	}

	// Once begun the transaction runs to commit or rollback regardless of the caller
	applyCtx := context.WithoutCancel(ctx)
	err = repository.WithTransaction(applyCtx, f.db, func(txCtx context.Context) error {
		for _, r := range planned {
			ok, err := f.qrRepo.SetTotalScans(txCtx, r.QRCodeID, r.AuthoritativeCount)
			if err != nil {
				return fmt.Errorf("set total_scans of %s: %w", r.ShortCode, err)
			}
			if !ok {
				return fmt.Errorf("set total_scans of %s: %w", r.ShortCode, ErrQRCodeNotFound)
			}
		}
		return nil
	})
	if err != nil {
		reconcileRunsTotal.WithLabelValues("failed").Inc()
		logging.Error(ctx, "reconcile rolled back", slog.Int("planned", len(planned)), logging.Err(err))
		return nil, newStoreError("RECONCILE_FAILED", "Reconcile rolled back, no counters were changed", err)
	}
	report.Applied = len(planned)
	reconcileUpdatesTotal.Add(float64(len(planned)))

	after, err := f.detector.snapshot(applyCtx, DriftQuery{})
	if err != nil {
		return nil, NewBusinessError("RECONCILE_VERIFY_FAILED", "Counters were reconciled but verification failed", err)
	}
	report.After = &after.totals

	if after.totals.DriftedCodes == 0 {
		return f.finish(ctx, report, OutcomeReconciled), nil
	}

	// Scans that landed between detection and commit leave residual drift behind
	for _, r := range after.records {
		if !r.Drifted() {
			continue
		}
		report.Warnings = append(report.Warnings, dto.IntegrityWarning{
			Kind:      WarningResidualDrift,
			ShortCode: r.ShortCode,
			Message:   fmt.Sprintf("still drifted after reconcile: cached %d, recorded %d", r.CachedCount, r.AuthoritativeCount),
		})
	}
	return f.finish(ctx, report, OutcomeResidualDrift), nil
}

func (f *ReconcileFlowImpl) finish(ctx context.Context, report *dto.ReconcileResponse, outcome string) *dto.ReconcileResponse {
	report.Outcome = outcome
	report.FinishedAt = utils.UTCNowRFC3339()
	reconcileRunsTotal.WithLabelValues(outcome).Inc()
	logging.Info(ctx, "reconcile finished",
		slog.String("outcome", outcome),
		slog.Int("planned", len(report.Changes)),
		slog.Int("applied", report.Applied),
	)
	return report
}

package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edupay/internal/config"
	"edupay/internal/gateway"
	"edupay/internal/payment"
	"edupay/internal/repository"
)

// Reconciler is a read-only audit sweep. It flags payments stuck before
// settlement, probes the provider's view of their invoices and checks the
// paid/ledger one-to-one invariant. It never mutates payment state;
// transitions only ever happen through webhook calls.
type Reconciler struct {
	payments  *repository.PaymentRepository
	topupLogs *repository.TopUpLogRepository
	gw        gateway.Gateway
	cfg       config.PaymentsConfig
	logger    *zap.Logger
	cron      *cron.Cron
}

func New(db *gorm.DB, gw gateway.Gateway, cfg config.PaymentsConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		payments:  repository.NewPaymentRepository(db),
		topupLogs: repository.NewTopUpLogRepository(db),
		gw:        gw,
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start registers the sweep with the scheduler and begins running it.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.cfg.ReconcileSpec, r.Sweep); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reconciler started", zap.String("spec", r.cfg.ReconcileSpec))
	return nil
}

// Stop stops the scheduler; the returned context is done when the
// in-flight sweep finishes.
func (r *Reconciler) Stop() context.Context {
	return r.cron.Stop()
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep() {
	r.sweepStale()
	r.auditLedger()
}

func (r *Reconciler) sweepStale() {
	cutoff := time.Now().Add(-r.cfg.PendingCutoff)
	stale, err := r.payments.FindStale(cutoff, 100)
	if err != nil {
		r.logger.Error("stale payment scan failed", zap.Error(err))
		return
	}

	for _, p := range stale {
		fields := []zap.Field{
			zap.String("payment_id", p.ID.String()),
			zap.String("status", string(p.Status)),
			zap.Time("updated_at", p.UpdatedAt),
		}

		if p.ProviderInvoiceID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			state, err := r.gw.InvoiceStatus(ctx, p.ProviderInvoiceID)
			cancel()
			if err != nil {
				fields = append(fields, zap.NamedError("invoice_probe", err))
			} else {
				fields = append(fields, zap.Int("provider_status", state.Status))
			}
		}

		r.logger.Warn("payment stalled before settlement", fields...)
	}
}

func (r *Reconciler) auditLedger() {
	since := time.Now().Add(-24 * time.Hour)
	paid, err := r.payments.FindPaidSince(since, 500)
	if err != nil {
		r.logger.Error("paid payment scan failed", zap.Error(err))
		return
	}

	for _, p := range paid {
		count, err := r.topupLogs.CountByNote(payment.TopUpNote(p.ID))
		if err != nil {
			r.logger.Error("ledger count failed",
				zap.String("payment_id", p.ID.String()), zap.Error(err))
			continue
		}
		if count != 1 {
			r.logger.Error("ledger entry count mismatch for paid payment",
				zap.String("payment_id", p.ID.String()),
				zap.Int64("entries", count))
		}
	}
}

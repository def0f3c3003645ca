package sweeper

import (
	"context"
	"time"

	"github.com/sankofatours/paygate/internal/app/service/fulfillment"
	"github.com/sankofatours/paygate/internal/app/service/ledger"
	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/metrics"
	types "github.com/sankofatours/paygate/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper is the reconciliation loop. It is the safety net for every path
// where a webhook is lost or the process dies mid-flight: it expires dead
// pendings, pulls provider truth for stale processing rows, finishes
// interrupted fulfillments, and in sandbox mode stands in for mobile-money
// approvals that no sandbox user will ever perform.
type Sweeper struct {
	cfg         *config.Config
	log         *zap.SugaredLogger
	db          *gorm.DB
	ledger      ledger.Manager
	fulfillment *fulfillment.Service

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, ledgerSvc ledger.Manager, f *fulfillment.Service) *Sweeper {
	return &Sweeper{cfg: cfg, log: log, db: db, ledger: ledgerSvc, fulfillment: f}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Sweeper.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one full reconciliation cycle. Each duty is independent; a
// failure in one never blocks the others.
func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	s.expireStalePendings(ctx, now)
	s.autoCompleteSandbox(ctx, now)
	s.verifyStaleProcessing(ctx, now)
	s.rescanFulfillments(ctx)
	metrics.ObserveSweeperCycle()
}

// expireStalePendings cancels payments whose initiate call never got a
// provider answer. Cancellation goes through the ledger so a webhook racing
// the sweep still loses cleanly at the row lock.
func (s *Sweeper) expireStalePendings(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.Sweeper.PendingTTL)
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND last_transition_at < ?", types.PaymentStatusPending, cutoff).
		Limit(s.cfg.Sweeper.BatchSize).
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("sweep_pending_scan_failed", "error", err.Error())
		return
	}
	for _, p := range rows {
		if _, err := s.ledger.Transition(ctx, p.Reference, types.PaymentStatusCancelled, "pending_expired"); err != nil {
			s.log.Warnw("sweep_pending_expire_failed", "reference", p.Reference, "error", err.Error())
		}
	}
}

// shouldAutoComplete decides whether one payment qualifies for sandbox
// auto-completion. The sandboxMode flag is the only gate for the feature;
// nothing is ever inferred from credentials or URLs.
func shouldAutoComplete(sandboxMode bool, p *models.Payment, grace time.Duration, now time.Time) bool {
	if !sandboxMode {
		return false
	}
	if p.Method != types.PaymentMethodMobileMoney {
		return false
	}
	if p.Status != types.PaymentStatusProcessing {
		return false
	}
	return now.Sub(p.LastTransitionAt) >= grace
}

func (s *Sweeper) autoCompleteSandbox(ctx context.Context, now time.Time) {
	if !s.cfg.SandboxMode {
		return
	}
	cutoff := now.Add(-s.cfg.Sweeper.SandboxGrace)
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND method = ? AND last_transition_at < ?",
			types.PaymentStatusProcessing, types.PaymentMethodMobileMoney, cutoff).
		Limit(s.cfg.Sweeper.BatchSize).
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("sweep_sandbox_scan_failed", "error", err.Error())
		return
	}
	for _, p := range rows {
		if !shouldAutoComplete(s.cfg.SandboxMode, p, s.cfg.Sweeper.SandboxGrace, now) {
			continue
		}
		if _, err := s.ledger.Transition(ctx, p.Reference, types.PaymentStatusSuccessful, "sandbox_auto_complete"); err != nil {
			s.log.Warnw("sweep_sandbox_complete_failed", "reference", p.Reference, "error", err.Error())
		}
	}
}

// processingTimeout returns the stale-processing threshold for one provider,
// falling back to the global timeout when no override is configured.
func processingTimeout(cfg *config.SweeperConfig, provider types.PaymentProvider) time.Duration {
	if d, ok := cfg.ProcessingTimeouts[string(provider)]; ok && d > 0 {
		return d
	}
	return cfg.ProcessingTimeout
}

// minProcessingTimeout is the widest scan cutoff across all providers; rows
// inside it are filtered per provider afterwards.
func minProcessingTimeout(cfg *config.SweeperConfig) time.Duration {
	min := cfg.ProcessingTimeout
	for _, d := range cfg.ProcessingTimeouts {
		if d > 0 && d < min {
			min = d
		}
	}
	return min
}

// verifyStaleProcessing pulls provider-side truth for payments stuck in
// processing, covering lost webhooks. VerifyPayment bounds each provider
// call, so one slow provider cannot stall the cycle.
func (s *Sweeper) verifyStaleProcessing(ctx context.Context, now time.Time) {
	cutoff := now.Add(-minProcessingTimeout(&s.cfg.Sweeper))
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND last_transition_at < ?", types.PaymentStatusProcessing, cutoff).
		Limit(s.cfg.Sweeper.BatchSize).
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("sweep_processing_scan_failed", "error", err.Error())
		return
	}
	for _, p := range rows {
		if now.Sub(p.LastTransitionAt) < processingTimeout(&s.cfg.Sweeper, p.ProviderID) {
			continue
		}
		if _, err := s.ledger.VerifyPayment(ctx, p.Reference); err != nil {
			s.log.Warnw("sweep_verify_failed", "reference", p.Reference, "error", err.Error())
		}
	}
}

// rescanFulfillments finishes fulfillments interrupted by a crash between
// the successful transition and the async fulfill call.
func (s *Sweeper) rescanFulfillments(ctx context.Context) {
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND fulfillment_pending = true", types.PaymentStatusSuccessful).
		Limit(s.cfg.Sweeper.BatchSize).
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("sweep_fulfillment_scan_failed", "error", err.Error())
		return
	}
	for _, p := range rows {
		if _, err := s.fulfillment.Fulfill(ctx, p.Reference); err != nil {
			s.log.Warnw("sweep_fulfill_failed", "reference", p.Reference, "error", err.Error())
		}
	}
}

// Module starts the sweeper with the application lifecycle.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Sweeper) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)

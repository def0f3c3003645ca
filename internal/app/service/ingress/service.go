package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/sankofatours/paygate/internal/app/service/ledger"
	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/metrics"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrUnmatchedPayment means the callback carried no reference the ledger
// knows about. The raw payload is still logged.
var ErrUnmatchedPayment = errors.New("callback does not match any payment")

// logStore is the slice of the callback log service the pipeline needs.
type logStore interface {
	Append(ctx context.Context, entry *models.ProviderCallbackLog) error
}

type Service struct {
	log      *zap.SugaredLogger
	registry *providers.Registry
	ledger   ledger.Manager
	logs     logStore
}

func New(log *zap.SugaredLogger, registry *providers.Registry, ledgerSvc ledger.Manager, logs logStore) *Service {
	return &Service{log: log, registry: registry, ledger: ledgerSvc, logs: logs}
}

type Result struct {
	Payment *models.Payment
	// Applied is false when the callback was a duplicate or arrived after a
	// terminal state; the delivery is still acknowledged.
	Applied bool
	Note    string
}

// Process runs one inbound provider notification through the full pipeline:
// verify signature, log the delivery, match the payment, apply the
// transition. Every delivery leaves a ProviderCallbackLog row, including the
// ones we reject.
func (s *Service) Process(ctx context.Context, provider types.PaymentProvider, body []byte, signature, traceID string) (*Result, error) {
	log := logctx.FromCtx(ctx, s.log)

	adapter, err := s.registry.Get(provider)
	if err != nil {
		metrics.ObserveWebhookCallback(string(provider), "unknown_provider")
		return nil, err
	}

	cb, err := adapter.ParseCallback(body, signature)
	if err != nil {
		reason := "malformed_payload"
		sigOK := true
		if errors.Is(err, providers.ErrBadSignature) {
			reason = "bad_signature"
			sigOK = false
		}
		s.appendLog(ctx, &models.ProviderCallbackLog{
			ProviderID:   string(provider),
			TraceID:      traceID,
			ReceivedAt:   time.Now(),
			Payload:      body,
			SignatureOK:  sigOK,
			Accepted:     false,
			RejectReason: lo.ToPtr(reason),
		})
		metrics.ObserveWebhookCallback(string(provider), reason)
		log.Warnw("webhook_rejected", "provider", provider, "reason", reason)
		return nil, err
	}

	payment, err := s.matchPayment(ctx, provider, cb)
	if err != nil {
		s.appendLog(ctx, &models.ProviderCallbackLog{
			ProviderID:        string(provider),
			PaymentReference:  cb.PaymentReference,
			ExternalReference: cb.ExternalReference,
			TraceID:           traceID,
			ReceivedAt:        time.Now(),
			Payload:           body,
			ClaimedStatus:     string(cb.Status),
			SignatureOK:       true,
			Accepted:          false,
			RejectReason:      lo.ToPtr("unmatched_payment"),
		})
		metrics.ObserveWebhookCallback(string(provider), "unmatched")
		log.Warnw("webhook_unmatched", "provider", provider, "external_reference", cb.ExternalReference, "payment_reference", cb.PaymentReference)
		return nil, err
	}

	// The accepted log row must be durable before the delivery is
	// acknowledged; the provider retries on anything but 2xx.
	if err := s.logs.Append(ctx, &models.ProviderCallbackLog{
		ProviderID:        string(provider),
		PaymentReference:  payment.Reference,
		ExternalReference: cb.ExternalReference,
		TraceID:           traceID,
		ReceivedAt:        time.Now(),
		Payload:           body,
		ClaimedStatus:     string(cb.Status),
		SignatureOK:       true,
		Accepted:          true,
	}); err != nil {
		return nil, err
	}

	to := ledger.StatusFromNormalized(cb.Status)
	cause := "webhook"
	if cb.Event != "" {
		cause = "webhook:" + cb.Event
	}
	updated, err := s.ledger.Transition(ctx, payment.Reference, to, cause)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			// Late or out-of-order delivery against a settled payment. The
			// delivery itself is fine, so it is acknowledged, not retried.
			metrics.ObserveWebhookCallback(string(provider), "stale")
			return &Result{Payment: payment, Applied: false, Note: "stale_transition"}, nil
		}
		return nil, err
	}

	metrics.ObserveWebhookCallback(string(provider), "applied")
	applied := updated.Status == to && payment.Status != to
	note := ""
	if !applied {
		note = "duplicate_delivery"
	}
	return &Result{Payment: updated, Applied: applied, Note: note}, nil
}

func (s *Service) matchPayment(ctx context.Context, provider types.PaymentProvider, cb *providers.Callback) (*models.Payment, error) {
	if cb.ExternalReference != "" {
		p, err := s.ledger.GetPaymentByExternalReference(ctx, provider, cb.ExternalReference)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ledger.ErrPaymentNotFound) {
			return nil, err
		}
	}
	if cb.PaymentReference != "" {
		p, err := s.ledger.GetPayment(ctx, cb.PaymentReference)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ledger.ErrPaymentNotFound) {
			return nil, err
		}
	}
	return nil, ErrUnmatchedPayment
}

// appendLog is best-effort for rejected deliveries; the rejection response
// does not depend on it.
func (s *Service) appendLog(ctx context.Context, entry *models.ProviderCallbackLog) {
	if err := s.logs.Append(ctx, entry); err != nil {
		s.log.Errorw("callback_log_write_failed", "provider", entry.ProviderID, "error", err.Error())
	}
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/metrics"
	"github.com/sankofatours/paygate/pkg/tool"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	db        *gorm.DB
	registry  *providers.Registry
	fulfiller Fulfiller
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, registry *providers.Registry, fulfiller Fulfiller) Manager {
	return &Service{cfg: cfg, log: log, db: db, registry: registry, fulfiller: fulfiller}
}

func validateCreateRequest(req *CreatePaymentRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidInput)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if len(req.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}
	if !req.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.Method)
	}
	if strings.TrimSpace(req.PayerContact) == "" {
		return fmt.Errorf("%w: payer contact is required", ErrInvalidInput)
	}
	p := req.Purpose
	if p == nil {
		return fmt.Errorf("%w: purpose payload is required", ErrInvalidInput)
	}
	switch p.Kind {
	case models.PurposeKindDestinationBooking:
		if p.DestinationID == "" {
			return fmt.Errorf("%w: destination_id is required", ErrInvalidInput)
		}
	case models.PurposeKindTicketPurchase:
		if p.TicketTypeID == "" {
			return fmt.Errorf("%w: ticket_type_id is required", ErrInvalidInput)
		}
		if p.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown purpose kind %q", ErrInvalidInput, p.Kind)
	}
	return nil
}

func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	// Idempotent create: a repeated client reference returns the original
	// payment without touching the provider again.
	if req.ClientReference != "" {
		var existing models.Payment
		err := s.db.WithContext(ctx).Where("client_reference = ?", req.ClientReference).First(&existing).Error
		if err == nil {
			if existing.Status == types.PaymentStatusPending && existing.ExternalReference == nil {
				// The earlier attempt never reached the provider; resume it
				// rather than minting a second payment for the same purchase.
				// The original row's provider wins over the retry's choice.
				resumeAdapter := adapter
				if existing.ProviderID != req.Provider {
					resumeAdapter, err = s.registry.Get(existing.ProviderID)
					if err != nil {
						return nil, err
					}
				}
				log.Infow("payment_create_resumed", "reference", existing.Reference, "client_reference", req.ClientReference)
				return s.initiatePayment(ctx, resumeAdapter, &existing)
			}
			log.Infow("payment_create_replayed", "reference", existing.Reference, "client_reference", req.ClientReference)
			return &CreatePaymentResult{Payment: &existing}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check client reference: %w", err)
		}
	}

	now := time.Now()
	payment := &models.Payment{
		ID:               tool.GenerateUUIDV7(),
		Reference:        tool.GeneratePaymentReference(),
		Amount:           req.Amount,
		Currency:         strings.ToUpper(req.Currency),
		Method:           req.Method,
		ProviderID:       req.Provider,
		Status:           types.PaymentStatusPending,
		PayerContact:     strings.TrimSpace(req.PayerContact),
		Purpose:          datatypes.NewJSONType(req.Purpose),
		LastTransitionAt: now,
	}
	if req.ClientReference != "" {
		payment.ClientReference = lo.ToPtr(req.ClientReference)
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	log.Infow("payment_created", "reference", payment.Reference, "provider", payment.ProviderID, "method", payment.Method)

	return s.initiatePayment(ctx, adapter, payment)
}

// initiateGuard enforces the at-most-once initiate contract: a payment that
// already carries a provider reference has been handed to the provider once
// and must never be initiated again.
func initiateGuard(p *models.Payment) error {
	if p.ExternalReference != nil && *p.ExternalReference != "" {
		return fmt.Errorf("%w: %s", ErrAlreadyInitiated, p.Reference)
	}
	return nil
}

func (s *Service) initiatePayment(ctx context.Context, adapter providers.Adapter, payment *models.Payment) (*CreatePaymentResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	if err := initiateGuard(payment); err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, s.cfg.Providers.InitiateTimeout)
	defer cancel()
	initRes, err := adapter.Initiate(initCtx, &providers.InitiateRequest{
		Reference:    payment.Reference,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		Method:       payment.Method,
		PayerContact: payment.PayerContact,
		Description:  purposeDescription(payment.GetPurpose()),
	})
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrInvalidPayerContact):
			if _, terr := s.transition(ctx, payment.Reference, types.PaymentStatusFailed, "invalid_payer_contact", nil); terr != nil {
				log.Errorw("payment_fail_transition_error", "reference", payment.Reference, "error", terr.Error())
			}
		case errors.Is(err, providers.ErrRejected), errors.Is(err, providers.ErrMisconfigured):
			if _, terr := s.transition(ctx, payment.Reference, types.PaymentStatusFailed, "provider_rejected", nil); terr != nil {
				log.Errorw("payment_fail_transition_error", "reference", payment.Reference, "error", terr.Error())
			}
		default:
			// Transient initiate failure: the payment stays pending and the
			// sweeper cancels it if the provider never accepted the call.
		}
		log.Errorw("payment_initiate_failed", "reference", payment.Reference, "error", err.Error())
		return nil, err
	}

	updated, err := s.transition(ctx, payment.Reference, types.PaymentStatusProcessing, "initiated", map[string]any{
		"external_reference": initRes.ExternalReference,
	})
	if err != nil {
		return nil, err
	}

	return &CreatePaymentResult{
		Payment:        updated,
		RedirectURL:    initRes.RedirectURL,
		ProviderPrompt: initRes.ProviderPrompt,
	}, nil
}

func purposeDescription(p *models.PurposePayload) string {
	if p == nil {
		return "Tour purchase"
	}
	switch p.Kind {
	case models.PurposeKindDestinationBooking:
		return "Destination booking " + p.DestinationID
	case models.PurposeKindTicketPurchase:
		return fmt.Sprintf("Ticket purchase %s x%d", p.TicketTypeID, p.Quantity)
	}
	return "Tour purchase"
}

func (s *Service) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}

// GetPaymentByExternalReference matches a payment through the provider-side
// transaction id; webhook correlation prefers this over the payload's own
// reference claim.
func (s *Service) GetPaymentByExternalReference(ctx context.Context, provider types.PaymentProvider, externalRef string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND external_reference = ?", provider, externalRef).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to match by external reference: %w", err)
	}
	return &payment, nil
}

// Transition applies one state-machine edge under a row lock. Calling it
// again with the current status is a no-op that returns success, which makes
// at-least-once webhook delivery safe.
func (s *Service) Transition(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error) {
	return s.transition(ctx, reference, to, cause, nil)
}

func (s *Service) transition(ctx context.Context, reference string, to types.PaymentStatus, cause string, extra map[string]any) (*models.Payment, error) {
	log := logctx.FromCtx(ctx, s.log)

	var out *models.Payment
	var fulfillNeeded bool
	var fromStatus types.PaymentStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}
		fromStatus = p.Status

		if p.Status == to {
			// Duplicate delivery of the same state; nothing to do.
			out = &p
			return nil
		}

		if !CanTransition(p.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
		}

		now := time.Now()
		updates := map[string]any{
			"status":             to,
			"last_transition_at": now,
		}
		for k, v := range extra {
			updates[k] = v
		}
		if to.Terminal() {
			updates["terminal_at"] = now
		}
		if to == types.PaymentStatusSuccessful {
			// Written in the same transaction as the status so a crash
			// between "successful" and fulfillment cannot skip the latter:
			// the sweeper rescans rows with the marker still set.
			updates["fulfillment_pending"] = true
			fulfillNeeded = true
		}

		if err := tx.Model(&models.Payment{}).Where("reference = ?", reference).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		s.appendStatusLog(tx, &p, to, cause, true, nil)

		p.Status = to
		p.LastTransitionAt = now
		if to.Terminal() {
			p.TerminalAt = lo.ToPtr(now)
		}
		if ext, ok := extra["external_reference"].(string); ok {
			p.ExternalReference = lo.ToPtr(ext)
		}
		if to == types.PaymentStatusSuccessful {
			p.FulfillmentPending = true
		}
		out = &p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// The transaction rolled back, so the rejected attempt is written
			// on its own connection; the log keeps every attempt, accepted or
			// not.
			s.appendStatusLog(s.db.WithContext(ctx), &models.Payment{Reference: reference, Status: fromStatus}, to, cause, false, map[string]any{"reason": "illegal_edge"})
			metrics.ObservePaymentTransition(string(fromStatus), string(to), "rejected")
		}
		log.Errorw("payment_transition_rejected", "reference", reference, "to", to, "cause", cause, "error", err.Error())
		return nil, err
	}

	if fromStatus == to {
		return out, nil
	}

	log.Infow("payment_transitioned", "reference", reference, "from", fromStatus, "to", out.Status, "cause", cause)
	metrics.ObservePaymentTransition(string(fromStatus), string(to), "accepted")

	if fulfillNeeded && s.fulfiller != nil {
		// Fulfillment runs after the transaction commits so webhook
		// responses are not held up; the sweeper covers crashes.
		go func(ref string) {
			fctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.fulfiller.Fulfill(fctx, ref); err != nil {
				s.log.Errorw("fulfillment_failed", "reference", ref, "error", err.Error())
			}
		}(reference)
	}

	return out, nil
}

// appendStatusLog records the attempt on the given connection; a failure to
// log must not break the money path, so errors are only logged.
func (s *Service) appendStatusLog(tx *gorm.DB, p *models.Payment, to types.PaymentStatus, cause string, accepted bool, extra map[string]any) {
	entry := &models.PaymentStatusLog{
		ID:               tool.GenerateUUIDV7(),
		PaymentReference: p.Reference,
		FromStatus:       p.Status,
		ToStatus:         to,
		Cause:            cause,
		Accepted:         accepted,
	}
	if extra != nil {
		entry.Extra = datatypes.JSONMap(extra)
	}
	if err := tx.Create(entry).Error; err != nil {
		s.log.Errorw("status_log_write_failed", "reference", p.Reference, "error", err.Error())
	}
}

// VerifyPayment pulls the provider-side status and applies it. A payment
// already in a terminal state is returned as recorded; the provider's answer
// can no longer change it.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (*models.Payment, error) {
	log := logctx.FromCtx(ctx, s.log)

	payment, err := s.GetPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return payment, nil
	}
	if payment.ExternalReference == nil {
		return nil, ErrNotInitiated
	}

	adapter, err := s.registry.Get(payment.ProviderID)
	if err != nil {
		return nil, err
	}

	vctx, cancel := context.WithTimeout(ctx, s.cfg.Sweeper.VerifyTimeout)
	defer cancel()
	normalized, err := adapter.Verify(vctx, *payment.ExternalReference)
	if err != nil {
		log.Errorw("payment_verify_failed", "reference", reference, "error", err.Error())
		return nil, err
	}

	to := StatusFromNormalized(normalized)
	if to == payment.Status {
		return payment, nil
	}
	updated, err := s.Transition(ctx, reference, to, "verify")
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// The provider's answer lags the recorded terminal state; keep
			// what the ledger already settled on.
			return payment, nil
		}
		return nil, err
	}
	return updated, nil
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanPayments implements paginated/admin listing with filters
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

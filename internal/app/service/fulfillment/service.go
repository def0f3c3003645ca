package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sankofatours/paygate/internal/app/service/catalog"
	"github.com/sankofatours/paygate/internal/app/service/notifier"
	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/metrics"
	"github.com/sankofatours/paygate/pkg/tool"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrNotEligible means the payment is not in a state fulfillment may act
	// on. The sweeper skips these rows; a handler returns it as a conflict.
	ErrNotEligible = errors.New("payment is not eligible for fulfillment")
	// ErrNeedsReview means money moved but the purchase target could not be
	// fulfilled; the payment is parked for manual resolution.
	ErrNeedsReview = errors.New("payment flagged for manual review")
)

type Service struct {
	log      *zap.SugaredLogger
	db       *gorm.DB
	catalog  *catalog.Service
	notifier notifier.Notifier
}

func New(log *zap.SugaredLogger, db *gorm.DB, catalogSvc *catalog.Service, n notifier.Notifier) *Service {
	return &Service{log: log, db: db, catalog: catalogSvc, notifier: n}
}

// fulfillmentPlan is the decision taken over a locked payment row before any
// catalog writes happen. Exactly one of ReuseRef / Purpose is set.
type fulfillmentPlan struct {
	// ReuseRef is the fulfillment a previous run already created.
	ReuseRef string
	Purpose  *models.PurposePayload
}

func planFulfillment(p *models.Payment) (*fulfillmentPlan, error) {
	if p.FulfillmentRef != nil {
		return &fulfillmentPlan{ReuseRef: *p.FulfillmentRef}, nil
	}
	if p.Status != types.PaymentStatusSuccessful {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEligible, p.Status)
	}
	purpose := p.GetPurpose()
	if purpose == nil {
		return nil, fmt.Errorf("%w: empty purpose payload", catalog.ErrUnresolvable)
	}
	switch purpose.Kind {
	case models.PurposeKindDestinationBooking, models.PurposeKindTicketPurchase:
		return &fulfillmentPlan{Purpose: purpose}, nil
	default:
		return nil, fmt.Errorf("%w: unknown purpose kind %q", catalog.ErrUnresolvable, purpose.Kind)
	}
}

// kindLabel is the metric label for a purpose kind; "unknown" covers rows
// whose purpose never parsed.
func kindLabel(kind models.PurposeKind) string {
	if kind == "" {
		return "unknown"
	}
	return string(kind)
}

// Fulfill turns one successful payment into its booking or ticket order.
// At-most-once: the payment row is locked, an existing fulfillment_ref wins,
// and the unique payment_reference index on the fulfillment tables backs the
// guard up. Safe to call from the transition hook and the sweeper
// concurrently.
func (s *Service) Fulfill(ctx context.Context, paymentReference string) (string, error) {
	log := logctx.FromCtx(ctx, s.log)

	var ref string
	var created bool
	var kind models.PurposeKind
	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", paymentReference).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		plan, err := planFulfillment(&payment)
		if err != nil {
			return err
		}
		if plan.ReuseRef != "" {
			ref = plan.ReuseRef
			if payment.FulfillmentPending {
				return tx.Model(&models.Payment{}).Where("reference = ?", paymentReference).
					Update("fulfillment_pending", false).Error
			}
			return nil
		}
		kind = plan.Purpose.Kind

		switch plan.Purpose.Kind {
		case models.PurposeKindDestinationBooking:
			ref, err = s.createBooking(tx, &payment, plan.Purpose)
		case models.PurposeKindTicketPurchase:
			ref, err = s.createTicketOrder(tx, &payment, plan.Purpose)
		}
		if err != nil {
			return err
		}
		created = true

		// Ref and marker flip in the same transaction as the fulfillment
		// rows, so a crash can never leave a half-fulfilled payment.
		return tx.Model(&models.Payment{}).Where("reference = ?", paymentReference).
			Updates(map[string]any{
				"fulfillment_ref":     ref,
				"fulfillment_pending": false,
			}).Error
	})
	if err != nil {
		if errors.Is(err, catalog.ErrUnresolvable) || errors.Is(err, catalog.ErrSoldOut) {
			return "", s.parkForReview(ctx, paymentReference, kindLabel(kind), err)
		}
		log.Errorw("fulfillment_error", "reference", paymentReference, "error", err.Error())
		return "", err
	}

	if !created {
		return ref, nil
	}

	log.Infow("payment_fulfilled", "reference", paymentReference, "fulfillment_ref", ref, "kind", kind)
	metrics.ObserveFulfillment(string(kind), "created")
	s.sendReceipt(&payment, ref)
	return ref, nil
}

func (s *Service) createBooking(tx *gorm.DB, p *models.Payment, purpose *models.PurposePayload) (string, error) {
	if _, err := s.catalog.LockDestination(tx, purpose.DestinationID); err != nil {
		return "", err
	}
	addOns, _ := json.Marshal(purpose.AddOns)
	booking := &models.Booking{
		ID:               tool.GenerateUUIDV7(),
		PaymentReference: p.Reference,
		DestinationID:    purpose.DestinationID,
		VisitDate:        purpose.VisitDate,
		Guests:           lo.Ternary(purpose.Guests > 0, purpose.Guests, 1),
		AddOns:           addOns,
		ContactPhone:     p.PayerContact,
	}
	if err := tx.Create(booking).Error; err != nil {
		return "", fmt.Errorf("failed to create booking: %w", err)
	}
	return booking.ID, nil
}

func (s *Service) createTicketOrder(tx *gorm.DB, p *models.Payment, purpose *models.PurposePayload) (string, error) {
	if _, err := s.catalog.LockTicketTypeAndReserve(tx, purpose.TicketTypeID, purpose.Quantity); err != nil {
		return "", err
	}
	order := &models.TicketOrder{
		ID:               tool.GenerateUUIDV7(),
		PaymentReference: p.Reference,
		TicketTypeID:     purpose.TicketTypeID,
		Quantity:         purpose.Quantity,
		ContactPhone:     p.PayerContact,
	}
	for i := 0; i < purpose.Quantity; i++ {
		order.Codes = append(order.Codes, models.RedemptionCode{
			ID:            tool.GenerateUUIDV7(),
			TicketOrderID: order.ID,
			Code:          tool.GenerateRedemptionCode(),
			State:         types.RedemptionCodeStateActive,
		})
	}
	if err := tx.Create(order).Error; err != nil {
		return "", fmt.Errorf("failed to create ticket order: %w", err)
	}
	return order.ID, nil
}

// parkForReview records an unfulfillable-but-paid payment. The marker is
// cleared so the sweeper stops retrying a purchase that cannot succeed.
func (s *Service) parkForReview(ctx context.Context, paymentReference, kind string, cause error) error {
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("reference = ?", paymentReference).
		Updates(map[string]any{
			"needs_review":        true,
			"review_reason":       cause.Error(),
			"fulfillment_pending": false,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to flag payment for review: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Warnw("payment_needs_review", "reference", paymentReference, "kind", kind, "cause", cause.Error())
	metrics.ObserveFulfillment(kind, "needs_review")
	return fmt.Errorf("%w: %s", ErrNeedsReview, cause.Error())
}

// Requeue re-arms the fulfillment marker for a reviewed payment so the next
// sweep retries it. Admin-only.
func (s *Service) Requeue(ctx context.Context, paymentReference string) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("reference = ? AND status = ? AND fulfillment_ref IS NULL", paymentReference, types.PaymentStatusSuccessful).
		Updates(map[string]any{
			"needs_review":        false,
			"review_reason":       nil,
			"fulfillment_pending": true,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to requeue fulfillment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotEligible
	}
	logctx.FromCtx(ctx, s.log).Infow("fulfillment_requeued", "reference", paymentReference)
	return nil
}

func (s *Service) sendReceipt(p *models.Payment, ref string) {
	go func() {
		msg := &notifier.Message{
			Recipient: p.PayerContact,
			Subject:   "Payment confirmed",
			Body: fmt.Sprintf("Payment %s of %s %s confirmed. Your confirmation reference is %s.",
				p.Reference, p.Currency, p.Amount.StringFixed(2), ref),
		}
		if err := s.notifier.Send(context.Background(), msg); err != nil {
			s.log.Errorw("receipt_send_failed", "reference", p.Reference, "error", err.Error())
		}
	}()
}

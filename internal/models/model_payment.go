package models

import (
	"time"

	"github.com/sankofatours/paygate/pkg/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PurposeKind string

const (
	PurposeKindDestinationBooking PurposeKind = "destination_booking"
	PurposeKindTicketPurchase     PurposeKind = "ticket_purchase"
)

// PurposePayload describes what a payment buys. It carries explicit catalog
// references so fulfillment never has to infer targets from free text.
type PurposePayload struct {
	Kind          PurposeKind `json:"kind"`
	DestinationID string      `json:"destination_id,omitempty"`
	TicketTypeID  string      `json:"ticket_type_id,omitempty"`
	Quantity      int         `json:"quantity,omitempty"`
	VisitDate     string      `json:"visit_date,omitempty"`
	Guests        int         `json:"guests,omitempty"`
	AddOns        []string    `json:"add_ons,omitempty"`
}

// Payment is the authoritative record of one purchase attempt. Rows are never
// deleted; status is mutated only through the ledger transition function.
type Payment struct {
	ID        string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Reference string `gorm:"column:reference;type:varchar(64);not null;uniqueIndex" json:"reference"`
	// ClientReference is an optional caller-supplied idempotency key.
	ClientReference *string `gorm:"column:client_reference;type:varchar(128);uniqueIndex" json:"client_reference,omitempty"`

	Amount   decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	Currency string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`

	Method     types.PaymentMethod   `gorm:"column:method;type:varchar(32);not null" json:"method"`
	ProviderID types.PaymentProvider `gorm:"column:provider_id;type:varchar(64);not null;uniqueIndex:unique_provider_external_ref,priority:1" json:"provider_id"`
	Status     types.PaymentStatus   `gorm:"column:status;type:varchar(32);not null;index" json:"status"`

	// ExternalReference is the provider-assigned transaction id, nil until
	// the initiate call is accepted.
	ExternalReference *string `gorm:"column:external_reference;type:varchar(128);uniqueIndex:unique_provider_external_ref,priority:2" json:"external_reference,omitempty"`

	PayerContact string                                `gorm:"column:payer_contact;type:varchar(128);not null" json:"payer_contact"`
	Purpose      datatypes.JSONType[*PurposePayload]   `gorm:"column:purpose;type:jsonb;default:'{}'" json:"purpose"`

	// FulfillmentRef points at the booking/ticket order created for this
	// payment. Set exactly once, never overwritten.
	FulfillmentRef *string `gorm:"column:fulfillment_ref;type:uuid" json:"fulfillment_ref,omitempty"`
	// FulfillmentPending is written in the same transaction that marks the
	// payment successful; the sweeper rescans rows where it is still set.
	FulfillmentPending bool `gorm:"column:fulfillment_pending;not null;default:false;index" json:"fulfillment_pending"`

	// NeedsReview flags payments whose money moved but whose fulfillment
	// could not be completed (catalog mismatch). Resolved manually.
	NeedsReview  bool    `gorm:"column:needs_review;not null;default:false" json:"needs_review"`
	ReviewReason *string `gorm:"column:review_reason;type:varchar(256)" json:"review_reason,omitempty"`

	LastTransitionAt time.Time  `gorm:"column:last_transition_at" json:"last_transition_at"`
	TerminalAt       *time.Time `gorm:"column:terminal_at;default:null" json:"terminal_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) GetPurpose() *PurposePayload {
	if p == nil {
		return nil
	}
	return p.Purpose.Data()
}

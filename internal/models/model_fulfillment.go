package models

import (
	"time"

	"github.com/sankofatours/paygate/pkg/types"

	"gorm.io/datatypes"
)

// Booking is the fulfillment record for a destination purchase. Created once
// by the fulfillment orchestrator, never by direct client request.
type Booking struct {
	ID               string         `gorm:"column:id;primary_key;type:uuid" json:"id"`
	PaymentReference string         `gorm:"column:payment_reference;type:varchar(64);not null;uniqueIndex" json:"payment_reference"`
	DestinationID    string         `gorm:"column:destination_id;type:uuid;not null" json:"destination_id"`
	VisitDate        string         `gorm:"column:visit_date;type:varchar(32)" json:"visit_date"`
	Guests           int            `gorm:"column:guests;not null;default:1" json:"guests"`
	AddOns           datatypes.JSON `gorm:"column:add_ons;type:jsonb;default:'[]'" json:"add_ons"`
	ContactPhone     string         `gorm:"column:contact_phone;type:varchar(64)" json:"contact_phone"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Booking) TableName() string { return "booking" }

// TicketOrder is the fulfillment record for a ticket purchase. Owns one
// redemption code per unit bought.
type TicketOrder struct {
	ID               string           `gorm:"column:id;primary_key;type:uuid" json:"id"`
	PaymentReference string           `gorm:"column:payment_reference;type:varchar(64);not null;uniqueIndex" json:"payment_reference"`
	TicketTypeID     string           `gorm:"column:ticket_type_id;type:uuid;not null" json:"ticket_type_id"`
	Quantity         int              `gorm:"column:quantity;not null" json:"quantity"`
	ContactPhone     string           `gorm:"column:contact_phone;type:varchar(64)" json:"contact_phone"`
	Codes            []RedemptionCode `gorm:"foreignKey:TicketOrderID" json:"codes"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (TicketOrder) TableName() string { return "ticket_order" }

// RedemptionCode is a unique per-unit code, redeemable once.
type RedemptionCode struct {
	ID            string                    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	TicketOrderID string                    `gorm:"column:ticket_order_id;type:uuid;not null;index" json:"ticket_order_id"`
	Code          string                    `gorm:"column:code;type:varchar(32);not null;uniqueIndex" json:"code"`
	State         types.RedemptionCodeState `gorm:"column:state;type:varchar(32);not null" json:"state"`
	RedeemedAt    *time.Time                `gorm:"column:redeemed_at;default:null" json:"redeemed_at,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func (RedemptionCode) TableName() string { return "redemption_code" }

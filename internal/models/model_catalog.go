package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog tables are owned by the booking platform's CRUD side; the payment
// core reads them by id and only ever writes TicketType.Remaining, inside
// the fulfillment transaction.

type Destination struct {
	ID        string          `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name      string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Region    string          `gorm:"column:region;type:varchar(64)" json:"region"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,2);not null" json:"price"`
	Currency  string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Active    bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Destination) TableName() string { return "destination" }

type TicketType struct {
	ID            string          `gorm:"column:id;primary_key;type:uuid" json:"id"`
	DestinationID *string         `gorm:"column:destination_id;type:uuid" json:"destination_id,omitempty"`
	Name          string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(20,2);not null" json:"price"`
	Currency      string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Remaining     int             `gorm:"column:remaining;not null;default:0" json:"remaining"`
	Active        bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (TicketType) TableName() string { return "ticket_type" }

package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProviderCallbackLog is an append-only record of every inbound provider
// notification, accepted or not. Used for audit and duplicate analysis;
// rows are never mutated.
type ProviderCallbackLog struct {
	ID                string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProviderID        string         `gorm:"column:provider_id;type:varchar(64);not null;index" json:"provider_id"`
	PaymentReference  string         `gorm:"column:payment_reference;type:varchar(64);index" json:"payment_reference"`
	ExternalReference string         `gorm:"column:external_reference;type:varchar(128)" json:"external_reference"`
	TraceID           string         `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	ReceivedAt        time.Time      `gorm:"column:received_at" json:"received_at"`
	Payload           datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	ClaimedStatus     string         `gorm:"column:claimed_status;type:varchar(64)" json:"claimed_status"`
	SignatureOK       bool           `gorm:"column:signature_ok;not null" json:"signature_ok"`
	Accepted          bool           `gorm:"column:accepted;not null" json:"accepted"`
	RejectReason      *string        `gorm:"column:reject_reason;type:varchar(256)" json:"reject_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func (ProviderCallbackLog) TableName() string { return "provider_callback_log" }

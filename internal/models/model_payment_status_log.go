package models

import (
	"time"

	"github.com/sankofatours/paygate/pkg/types"

	"gorm.io/datatypes"
)

// PaymentStatusLog records every attempted ledger transition, accepted or
// rejected. Append-only; money-path changes are never silently swallowed.
type PaymentStatusLog struct {
	ID               string              `gorm:"column:id;primary_key;type:uuid;index:idx_payment_ref_id,priority:2,sort:desc"`
	PaymentReference string              `gorm:"column:payment_reference;type:varchar(64);not null;index:idx_payment_ref_id,priority:1"`
	FromStatus       types.PaymentStatus `gorm:"column:from_status;type:varchar(32);not null"`
	ToStatus         types.PaymentStatus `gorm:"column:to_status;type:varchar(32);not null"`
	// Cause names what triggered the attempt: webhook, verify, sweeper,
	// sandbox_auto_complete, pending_expired, user_cancel, ...
	Cause    string `gorm:"column:cause;type:varchar(128);not null"`
	Accepted bool   `gorm:"column:accepted;not null"`
	// Extra carries trace id and rejection detail for audit.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time         `json:"created_at"`
}

func (PaymentStatusLog) TableName() string { return "payment_status_log" }

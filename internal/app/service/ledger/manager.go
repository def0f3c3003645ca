package ledger

import (
	"context"

	models "github.com/sankofatours/paygate/internal/models"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Amount       decimal.Decimal        `json:"amount"`
	Currency     string                 `json:"currency"`
	Method       types.PaymentMethod    `json:"method"`
	Provider     types.PaymentProvider  `json:"provider"`
	PayerContact string                 `json:"payer_contact"`
	Purpose      *models.PurposePayload `json:"purpose_payload"`
	// ClientReference is an optional idempotency key; a duplicate create
	// returns the original payment without initiating again.
	ClientReference string `json:"client_reference,omitempty"`
}

type CreatePaymentResult struct {
	Payment        *models.Payment `json:"payment"`
	RedirectURL    string          `json:"redirect_url,omitempty"`
	ProviderPrompt string          `json:"provider_prompt,omitempty"`
}

// Fulfiller converts a successful payment into its booking/ticket record.
// Implemented by the fulfillment service; the ledger only triggers it.
type Fulfiller interface {
	Fulfill(ctx context.Context, paymentReference string) (string, error)
}

// Manager is the authoritative API over payment attempts and their state
// machine.
type Manager interface {
	// Create a payment and initiate it with its provider.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResult, error)
	// Look up one payment by its ledger reference string.
	GetPayment(ctx context.Context, reference string) (*models.Payment, error)
	// Look up one payment by the provider-assigned transaction id.
	GetPaymentByExternalReference(ctx context.Context, provider types.PaymentProvider, externalRef string) (*models.Payment, error)
	// Apply one state-machine edge. Idempotent for same-status replays.
	Transition(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error)
	// Pull the provider-side status and apply it.
	VerifyPayment(ctx context.Context, reference string) (*models.Payment, error)
	// Scan payments (used by admin list pages).
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}

// Scan payments request/response.
type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

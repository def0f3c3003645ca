package providers

import (
	"context"
	"errors"

	"github.com/sankofatours/paygate/pkg/types"

	"github.com/shopspring/decimal"
)

// NormalizedStatus is the fixed vocabulary every adapter maps its provider's
// statuses onto. The per-provider mapping tables are the main source of
// integration bugs and are unit-tested per adapter.
type NormalizedStatus string

const (
	StatusAcceptedPending NormalizedStatus = "accepted_pending"
	StatusSucceeded       NormalizedStatus = "succeeded"
	StatusFailed          NormalizedStatus = "failed"
	StatusCancelled       NormalizedStatus = "cancelled"
	StatusRefunded        NormalizedStatus = "refunded"
)

var (
	ErrProviderNotSupported = errors.New("provider is not supported")
	ErrProviderDisabled     = errors.New("provider is disabled")
	ErrMisconfigured        = errors.New("provider is misconfigured")
	// ErrProviderUnavailable wraps network/timeout failures; the sweeper
	// retries these, they are never surfaced as a final payment failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrRejected means the provider declined the request outright.
	ErrRejected = errors.New("provider rejected the request")
	// ErrInvalidPayerContact is user-correctable and distinct from
	// provider/network errors.
	ErrInvalidPayerContact = errors.New("invalid payer contact")
	ErrBadSignature        = errors.New("callback signature verification failed")
	ErrMalformedPayload    = errors.New("callback payload is malformed")
)

type InitiateRequest struct {
	Reference    string
	Amount       decimal.Decimal
	Currency     string
	Method       types.PaymentMethod
	PayerContact string
	Description  string
}

type InitiateResult struct {
	// ExternalReference is the provider-side transaction id used for
	// verify calls and callback correlation.
	ExternalReference string
	// Exactly one of RedirectURL / ProviderPrompt is set.
	RedirectURL    string
	ProviderPrompt string
}

// Callback is a verified, parsed provider notification.
type Callback struct {
	ExternalReference string
	// PaymentReference is set when the payload carries our own reference.
	PaymentReference string
	Status           NormalizedStatus
	Event            string
}

// Adapter normalizes one payment provider's initiate/verify/callback
// protocol. Initiate must be called at most once per payment.
type Adapter interface {
	ID() types.PaymentProvider
	Enabled() bool
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, externalRef string) (NormalizedStatus, error)
	// ParseCallback verifies the signature before trusting any payload data.
	ParseCallback(payload []byte, signature string) (*Callback, error)
}

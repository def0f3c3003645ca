package ledger

import (
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/types"
)

// transitionGraph is the full set of legal status edges. pending means the
// row exists but the provider has not accepted the initiate call yet;
// processing means an external reference exists. Terminal purchase states
// are frozen except successful→refunded.
var transitionGraph = map[types.PaymentStatus][]types.PaymentStatus{
	types.PaymentStatusPending:    {types.PaymentStatusProcessing, types.PaymentStatusFailed, types.PaymentStatusCancelled},
	types.PaymentStatusProcessing: {types.PaymentStatusSuccessful, types.PaymentStatusFailed, types.PaymentStatusCancelled},
	types.PaymentStatusSuccessful: {types.PaymentStatusRefunded},
	types.PaymentStatusFailed:     {},
	types.PaymentStatusCancelled:  {},
	types.PaymentStatusRefunded:   {},
}

// CanTransition reports whether from→to is a legal edge. A same-status
// "transition" is not an edge; callers treat it as an idempotent no-op.
func CanTransition(from, to types.PaymentStatus) bool {
	for _, allowed := range transitionGraph[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StatusFromNormalized maps the adapters' shared status vocabulary onto
// ledger statuses.
func StatusFromNormalized(s providers.NormalizedStatus) types.PaymentStatus {
	switch s {
	case providers.StatusSucceeded:
		return types.PaymentStatusSuccessful
	case providers.StatusFailed:
		return types.PaymentStatusFailed
	case providers.StatusCancelled:
		return types.PaymentStatusCancelled
	case providers.StatusRefunded:
		return types.PaymentStatusRefunded
	default:
		return types.PaymentStatusProcessing
	}
}

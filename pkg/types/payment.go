package types

type PaymentProvider string

const (
	PaymentProviderPaystack PaymentProvider = "paystack"
	PaymentProviderMomo     PaymentProvider = "momo"
	PaymentProviderStripe   PaymentProvider = "stripe"
)

type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodBank        PaymentMethod = "bank"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodBank:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether the status ends the forward purchase flow.
// A successful payment may still move to refunded.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

type RedemptionCodeState string

const (
	RedemptionCodeStateActive    RedemptionCodeState = "active"
	RedemptionCodeStateUsed      RedemptionCodeState = "used"
	RedemptionCodeStateExpired   RedemptionCodeState = "expired"
	RedemptionCodeStateCancelled RedemptionCodeState = "cancelled"
)

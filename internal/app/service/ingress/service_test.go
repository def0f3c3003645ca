package ingress

import (
	"context"
	"testing"

	"github.com/sankofatours/paygate/internal/app/service/ledger"
	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/internal/providers"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAdapter struct {
	id      types.PaymentProvider
	parseFn func(payload []byte, signature string) (*providers.Callback, error)
}

func (a *stubAdapter) ID() types.PaymentProvider { return a.id }
func (a *stubAdapter) Enabled() bool             { return true }
func (a *stubAdapter) Initiate(context.Context, *providers.InitiateRequest) (*providers.InitiateResult, error) {
	panic("not used")
}
func (a *stubAdapter) Verify(context.Context, string) (providers.NormalizedStatus, error) {
	panic("not used")
}
func (a *stubAdapter) ParseCallback(payload []byte, signature string) (*providers.Callback, error) {
	return a.parseFn(payload, signature)
}

type stubLedger struct {
	getFn        func(ctx context.Context, reference string) (*models.Payment, error)
	getByExtFn   func(ctx context.Context, provider types.PaymentProvider, externalRef string) (*models.Payment, error)
	transitionFn func(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error)
	transitions  int
}

func (s *stubLedger) CreatePayment(context.Context, *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
	panic("not used")
}
func (s *stubLedger) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	if s.getFn == nil {
		return nil, ledger.ErrPaymentNotFound
	}
	return s.getFn(ctx, reference)
}
func (s *stubLedger) GetPaymentByExternalReference(ctx context.Context, provider types.PaymentProvider, externalRef string) (*models.Payment, error) {
	if s.getByExtFn == nil {
		return nil, ledger.ErrPaymentNotFound
	}
	return s.getByExtFn(ctx, provider, externalRef)
}
func (s *stubLedger) Transition(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error) {
	s.transitions++
	return s.transitionFn(ctx, reference, to, cause)
}
func (s *stubLedger) VerifyPayment(context.Context, string) (*models.Payment, error) {
	panic("not used")
}
func (s *stubLedger) ScanPayments(context.Context, *ledger.ScanPaymentsRequest) (*ledger.ScanPaymentsResponse, error) {
	panic("not used")
}

type memLogStore struct {
	entries []*models.ProviderCallbackLog
	err     error
}

func (m *memLogStore) Append(_ context.Context, entry *models.ProviderCallbackLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func newTestService(adapter providers.Adapter, ledgerSvc ledger.Manager, logs logStore) *Service {
	return New(zap.NewNop().Sugar(), providers.NewRegistry(adapter), ledgerSvc, logs)
}

func TestProcess_BadSignature(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return nil, providers.ErrBadSignature
		},
	}
	led := &stubLedger{}
	logs := &memLogStore{}
	svc := newTestService(adapter, led, logs)

	_, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "wrong", "trace-1")
	require.ErrorIs(t, err, providers.ErrBadSignature)
	require.Zero(t, led.transitions)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	require.False(t, entry.Accepted)
	require.False(t, entry.SignatureOK)
	require.Equal(t, "bad_signature", *entry.RejectReason)
}

func TestProcess_MalformedPayload(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return nil, providers.ErrMalformedPayload
		},
	}
	logs := &memLogStore{}
	svc := newTestService(adapter, &stubLedger{}, logs)

	_, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{`), "sig", "trace-1")
	require.ErrorIs(t, err, providers.ErrMalformedPayload)

	require.Len(t, logs.entries, 1)
	require.True(t, logs.entries[0].SignatureOK)
	require.Equal(t, "malformed_payload", *logs.entries[0].RejectReason)
}

func TestProcess_UnmatchedPayment(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return &providers.Callback{ExternalReference: "trx_1", PaymentReference: "PAY-GONE", Status: providers.StatusSucceeded}, nil
		},
	}
	led := &stubLedger{}
	logs := &memLogStore{}
	svc := newTestService(adapter, led, logs)

	_, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "sig", "trace-1")
	require.ErrorIs(t, err, ErrUnmatchedPayment)
	require.Zero(t, led.transitions)

	require.Len(t, logs.entries, 1)
	require.Equal(t, "unmatched_payment", *logs.entries[0].RejectReason)
	require.Equal(t, "PAY-GONE", logs.entries[0].PaymentReference)
}

func TestProcess_AppliesTransition(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return &providers.Callback{ExternalReference: "trx_1", Status: providers.StatusSucceeded, Event: "charge.success"}, nil
		},
	}
	led := &stubLedger{
		getByExtFn: func(_ context.Context, _ types.PaymentProvider, _ string) (*models.Payment, error) {
			return &models.Payment{Reference: "PAY-1", Status: types.PaymentStatusProcessing}, nil
		},
		transitionFn: func(_ context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error) {
			require.Equal(t, types.PaymentStatusSuccessful, to)
			require.Equal(t, "webhook:charge.success", cause)
			return &models.Payment{Reference: reference, Status: to}, nil
		},
	}
	logs := &memLogStore{}
	svc := newTestService(adapter, led, logs)

	res, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "sig", "trace-1")
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Empty(t, res.Note)

	require.Len(t, logs.entries, 1)
	require.True(t, logs.entries[0].Accepted)
	require.Equal(t, "PAY-1", logs.entries[0].PaymentReference)
}

func TestProcess_StaleTransitionAcknowledged(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return &providers.Callback{ExternalReference: "trx_1", Status: providers.StatusFailed}, nil
		},
	}
	led := &stubLedger{
		getByExtFn: func(_ context.Context, _ types.PaymentProvider, _ string) (*models.Payment, error) {
			return &models.Payment{Reference: "PAY-1", Status: types.PaymentStatusSuccessful}, nil
		},
		transitionFn: func(_ context.Context, _ string, _ types.PaymentStatus, _ string) (*models.Payment, error) {
			return nil, ledger.ErrInvalidTransition
		},
	}
	logs := &memLogStore{}
	svc := newTestService(adapter, led, logs)

	res, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "sig", "trace-1")
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, "stale_transition", res.Note)
	require.Len(t, logs.entries, 1)
	require.True(t, logs.entries[0].Accepted)
}

func TestProcess_DuplicateDelivery(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return &providers.Callback{ExternalReference: "trx_1", Status: providers.StatusSucceeded}, nil
		},
	}
	led := &stubLedger{
		getByExtFn: func(_ context.Context, _ types.PaymentProvider, _ string) (*models.Payment, error) {
			return &models.Payment{Reference: "PAY-1", Status: types.PaymentStatusSuccessful}, nil
		},
		transitionFn: func(_ context.Context, reference string, to types.PaymentStatus, _ string) (*models.Payment, error) {
			return &models.Payment{Reference: reference, Status: to}, nil
		},
	}
	svc := newTestService(adapter, led, &memLogStore{})

	res, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "sig", "trace-1")
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, "duplicate_delivery", res.Note)
}

func TestProcess_LogWriteFailureAbortsBeforeTransition(t *testing.T) {
	adapter := &stubAdapter{
		id: types.PaymentProviderPaystack,
		parseFn: func([]byte, string) (*providers.Callback, error) {
			return &providers.Callback{ExternalReference: "trx_1", Status: providers.StatusSucceeded}, nil
		},
	}
	led := &stubLedger{
		getByExtFn: func(_ context.Context, _ types.PaymentProvider, _ string) (*models.Payment, error) {
			return &models.Payment{Reference: "PAY-1", Status: types.PaymentStatusProcessing}, nil
		},
	}
	logs := &memLogStore{err: context.DeadlineExceeded}
	svc := newTestService(adapter, led, logs)

	_, err := svc.Process(context.Background(), types.PaymentProviderPaystack, []byte(`{}`), "sig", "trace-1")
	require.Error(t, err)
	require.Zero(t, led.transitions)
}

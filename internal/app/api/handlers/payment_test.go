package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankofatours/paygate/internal/app/service/ledger"
	"github.com/sankofatours/paygate/internal/providers"
	models "github.com/sankofatours/paygate/internal/models"
	types "github.com/sankofatours/paygate/pkg/types"
)

type stubLedgerMgr struct {
	createFn     func(ctx context.Context, req *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error)
	getFn        func(ctx context.Context, reference string) (*models.Payment, error)
	verifyFn     func(ctx context.Context, reference string) (*models.Payment, error)
	transitionFn func(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error)
}

func (s *stubLedgerMgr) CreatePayment(ctx context.Context, req *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
	return s.createFn(ctx, req)
}

func (s *stubLedgerMgr) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.getFn(ctx, reference)
}

func (s *stubLedgerMgr) GetPaymentByExternalReference(_ context.Context, _ types.PaymentProvider, _ string) (*models.Payment, error) {
	panic("not used")
}

func (s *stubLedgerMgr) Transition(ctx context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error) {
	return s.transitionFn(ctx, reference, to, cause)
}

func (s *stubLedgerMgr) VerifyPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.verifyFn(ctx, reference)
}

func (s *stubLedgerMgr) ScanPayments(_ context.Context, _ *ledger.ScanPaymentsRequest) (*ledger.ScanPaymentsResponse, error) {
	panic("not used")
}

func paymentTestRouter(mgr ledger.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1"), mgr, zap.NewNop().Sugar())
	return r
}

func createBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"amount":        "100.00",
		"currency":      "GHS",
		"method":        "mobile_money",
		"provider":      "momo",
		"payer_contact": "0551234567",
		"purpose_payload": map[string]any{
			"kind":           "destination_booking",
			"destination_id": "dest-001",
			"guests":         2,
		},
	})
	require.NoError(t, err)
	return body
}

func TestApiCreatePayment(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			createFn: func(_ context.Context, req *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
				require.True(t, req.Amount.Equal(decimal.RequireFromString("100.00")))
				require.Equal(t, types.PaymentProviderMomo, req.Provider)
				return &ledger.CreatePaymentResult{
					Payment:        &models.Payment{Reference: "PAY-TEST1", Status: types.PaymentStatusProcessing},
					ProviderPrompt: "approve the request on your phone",
				}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(createBody(t)))
		req.Header.Set("Content-Type", "application/json")
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		require.Contains(t, w.Body.String(), "PAY-TEST1")
		require.Contains(t, w.Body.String(), "provider_prompt")
	})

	t.Run("invalid input is a 400", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			createFn: func(_ context.Context, _ *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
				return nil, ledger.ErrInvalidInput
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(createBody(t)))
		req.Header.Set("Content-Type", "application/json")
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("disabled provider is a 422", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			createFn: func(_ context.Context, _ *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
				return nil, providers.ErrProviderDisabled
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(createBody(t)))
		req.Header.Set("Content-Type", "application/json")
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("provider rejection detail never reaches the client", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			createFn: func(_ context.Context, _ *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
				return nil, fmt.Errorf("%w: initialize returned status=401 body={\"message\":\"Invalid key: sk_live_SECRET_XYZ\"}", providers.ErrRejected)
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(createBody(t)))
		req.Header.Set("Content-Type", "application/json")
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotContains(t, w.Body.String(), "sk_live_SECRET_XYZ")
		require.NotContains(t, w.Body.String(), "status=401")
		require.Contains(t, w.Body.String(), "payment could not be completed")
	})

	t.Run("internal errors answer with a generic message", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			createFn: func(_ context.Context, _ *ledger.CreatePaymentRequest) (*ledger.CreatePaymentResult, error) {
				return nil, fmt.Errorf("failed to create payment: pq: connection refused")
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(createBody(t)))
		req.Header.Set("Content-Type", "application/json")
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotContains(t, w.Body.String(), "connection refused")
		require.Contains(t, w.Body.String(), "internal error")
	})
}

func TestApiGetPayment(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			getFn: func(_ context.Context, reference string) (*models.Payment, error) {
				require.Equal(t, "PAY-TEST1", reference)
				return &models.Payment{Reference: reference, Status: types.PaymentStatusSuccessful}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/PAY-TEST1", nil)
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "successful")
	})

	t.Run("missing is a 404", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			getFn: func(_ context.Context, _ string) (*models.Payment, error) {
				return nil, ledger.ErrPaymentNotFound
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/PAY-NOPE", nil)
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestApiVerifyPayment(t *testing.T) {
	t.Run("applies provider status", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			verifyFn: func(_ context.Context, reference string) (*models.Payment, error) {
				return &models.Payment{Reference: reference, Status: types.PaymentStatusSuccessful}, nil
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/PAY-TEST1/verify", nil)
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "successful")
	})

	t.Run("not initiated is a 400", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			verifyFn: func(_ context.Context, _ string) (*models.Payment, error) {
				return nil, ledger.ErrNotInitiated
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/PAY-TEST1/verify", nil)
		paymentTestRouter(mgr).ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterPaymentRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1"), nil, zap.NewNop().Sugar())

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/payments"))
	require.True(t, contains("GET /api/v1/payments/:reference"))
	require.True(t, contains("POST /api/v1/payments/:reference/verify"))
}

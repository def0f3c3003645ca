package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankofatours/paygate/internal/app/service/ledger"
	models "github.com/sankofatours/paygate/internal/models"
	types "github.com/sankofatours/paygate/pkg/types"
)

func TestApiRefundPayment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("refunds a successful payment", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			transitionFn: func(_ context.Context, reference string, to types.PaymentStatus, cause string) (*models.Payment, error) {
				require.Equal(t, "PAY-TEST1", reference)
				require.Equal(t, types.PaymentStatusRefunded, to)
				require.Contains(t, cause, "admin_refund")
				return &models.Payment{Reference: reference, Status: to}, nil
			},
		}
		r := gin.New()
		r.POST("/admin/payments/:reference/refund", ApiRefundPayment(mgr, zap.NewNop().Sugar()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/payments/PAY-TEST1/refund", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "refunded")
	})

	t.Run("invalid edge reports a bad request code", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			transitionFn: func(_ context.Context, _ string, _ types.PaymentStatus, _ string) (*models.Payment, error) {
				return nil, ledger.ErrInvalidTransition
			},
		}
		r := gin.New()
		r.POST("/admin/payments/:reference/refund", ApiRefundPayment(mgr, zap.NewNop().Sugar()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/payments/PAY-TEST1/refund", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "40000")
		require.Contains(t, w.Body.String(), "payment cannot be refunded in its current state")
	})

	t.Run("internal errors answer with a generic message", func(t *testing.T) {
		mgr := &stubLedgerMgr{
			transitionFn: func(_ context.Context, _ string, _ types.PaymentStatus, _ string) (*models.Payment, error) {
				return nil, fmt.Errorf("failed to lock payment: pq: connection refused")
			},
		}
		r := gin.New()
		r.POST("/admin/payments/:reference/refund", ApiRefundPayment(mgr, zap.NewNop().Sugar()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/payments/PAY-TEST1/refund", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "connection refused")
		require.Contains(t, w.Body.String(), "internal error")
	})
}

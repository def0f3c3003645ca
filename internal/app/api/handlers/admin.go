package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sankofatours/paygate/internal/app/service/callbacklog"
	"github.com/sankofatours/paygate/internal/app/service/fulfillment"
	"github.com/sankofatours/paygate/internal/app/service/ledger"
	"github.com/sankofatours/paygate/internal/app/service/statistics"
	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/response"
	"github.com/sankofatours/paygate/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ListPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type PaymentItem struct {
	ID                 string                `json:"id"`
	Reference          string                `json:"reference"`
	ClientReference    *string               `json:"client_reference,omitempty"`
	Amount             decimal.Decimal       `json:"amount"`
	Currency           string                `json:"currency"`
	Method             types.PaymentMethod   `json:"method"`
	ProviderID         types.PaymentProvider `json:"provider_id"`
	Status             types.PaymentStatus   `json:"status"`
	ExternalReference  *string               `json:"external_reference,omitempty"`
	PayerContact       string                `json:"payer_contact"`
	FulfillmentRef     *string               `json:"fulfillment_ref,omitempty"`
	FulfillmentPending bool                  `json:"fulfillment_pending"`
	NeedsReview        bool                  `json:"needs_review"`
	ReviewReason       *string               `json:"review_reason,omitempty"`
	LastTransitionAt   time.Time             `json:"last_transition_at"`
	TerminalAt         *time.Time            `json:"terminal_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func toPaymentItem(m *models.Payment) *PaymentItem {
	return &PaymentItem{
		ID:                 m.ID,
		Reference:          m.Reference,
		ClientReference:    m.ClientReference,
		Amount:             m.Amount,
		Currency:           m.Currency,
		Method:             m.Method,
		ProviderID:         m.ProviderID,
		Status:             m.Status,
		ExternalReference:  m.ExternalReference,
		PayerContact:       m.PayerContact,
		FulfillmentRef:     m.FulfillmentRef,
		FulfillmentPending: m.FulfillmentPending,
		NeedsReview:        m.NeedsReview,
		ReviewReason:       m.ReviewReason,
		LastTransitionAt:   m.LastTransitionAt,
		TerminalAt:         m.TerminalAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

type ListPaymentsResponse struct {
	Items []*PaymentItem `json:"items"`
	Total int64          `json:"total"`
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListPaymentsRequest true "List payments request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(mgr ledger.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		scanReq := &ledger.ScanPaymentsRequest{Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder}
		res, err := mgr.ScanPayments(c.Request.Context(), scanReq)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin_list_payments_failed", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			return
		}
		items := lo.Map(res.Items, func(it *models.Payment, _ int) *PaymentItem { return toPaymentItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      List Payment Callbacks (Admin)
// @Description  Returns the raw provider callback history for one payment, oldest first.
// @Tags         Admin
// @Produce      json
// @Param        reference path string true "Payment reference"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments/{reference}/callbacks [get]
func ApiListPaymentCallbacks(logs *callbacklog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := logs.ListByPayment(c.Request.Context(), c.Param("reference"))
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin_list_callbacks_failed", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Requeue Fulfillment (Admin)
// @Description  Re-arms fulfillment for a reviewed successful payment so the next sweep retries it.
// @Tags         Admin
// @Produce      json
// @Param        reference path string true "Payment reference"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments/{reference}/requeue_fulfillment [post]
func ApiRequeueFulfillment(f *fulfillment.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := f.Requeue(c.Request.Context(), c.Param("reference")); err != nil {
			if errors.Is(err, fulfillment.ErrNotEligible) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "payment is not eligible for fulfillment"))
				return
			}
			logctx.FromGin(c, log).Errorw("admin_requeue_failed", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Refund Payment (Admin)
// @Description  Marks a successful payment as refunded. The actual money movement happens on the provider's dashboard; this records the outcome in the ledger.
// @Tags         Admin
// @Produce      json
// @Param        reference path string true "Payment reference"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/admin/payments/{reference}/refund [post]
func ApiRefundPayment(mgr ledger.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cause := "admin_refund"
		if op := c.GetString("operator_id"); op != "" {
			cause = "admin_refund:" + op
		}
		res, err := mgr.Transition(c.Request.Context(), c.Param("reference"), types.PaymentStatusRefunded, cause)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrPaymentNotFound):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, msgPaymentNotFound))
			case errors.Is(err, ledger.ErrInvalidTransition):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "payment cannot be refunded in its current state"))
			default:
				logctx.FromGin(c, log).Errorw("admin_refund_failed", "error", err.Error())
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(toPaymentItem(res)))
	}
}

// @Summary      Get Payment Statistics (Admin)
// @Description  Retrieves daily payment statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.PaymentStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespPaymentStatistic
// @Router       /api/v1/admin/get_payment_statistic [post]
func ApiGetPaymentStatistic(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.PaymentStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetPaymentStatistics(c.Request.Context(), &req)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin_statistics_failed", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, mgr ledger.Manager, logs *callbacklog.Service, f *fulfillment.Service, stats *statistics.Service, log *zap.SugaredLogger) {
	r.POST("/list_payments", ApiListPayments(mgr, log))
	r.GET("/payments/:reference/callbacks", ApiListPaymentCallbacks(logs, log))
	r.POST("/payments/:reference/requeue_fulfillment", ApiRequeueFulfillment(f, log))
	r.POST("/payments/:reference/refund", ApiRefundPayment(mgr, log))
	r.POST("/get_payment_statistic", ApiGetPaymentStatistic(stats, log))
}

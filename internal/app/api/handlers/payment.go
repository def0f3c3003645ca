package handlers

import (
	"errors"
	"net/http"

	"github.com/sankofatours/paygate/internal/app/service/ledger"
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Client-facing messages. Provider and database detail stays in the logs;
// only validation errors carry their own text back to the caller.
const (
	msgPaymentUnavailable = "payment could not be completed"
	msgPaymentNotFound    = "payment not found"
	msgNotInitiated       = "payment has not been initiated with its provider"
	msgInvalidCallback    = "invalid callback"
	msgInternalError      = "internal error"
)

// @Summary      Create Payment
// @Description  Creates a payment attempt and initiates it with the selected provider.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body ledger.CreatePaymentRequest true "Payment creation request"
// @Success      201  {object}  handlers.RespCreatePayment
// @Failure      400  {object}  handlers.RespOK
// @Failure      422  {object}  handlers.RespOK
// @Router       /api/v1/payments [post]
func ApiCreatePayment(mgr ledger.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := mgr.CreatePayment(c.Request.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrInvalidInput),
				errors.Is(err, providers.ErrInvalidPayerContact):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, providers.ErrProviderNotSupported),
				errors.Is(err, providers.ErrProviderDisabled),
				errors.Is(err, providers.ErrRejected),
				errors.Is(err, providers.ErrProviderUnavailable),
				errors.Is(err, providers.ErrMisconfigured):
				logctx.FromGin(c, log).Warnw("payment_create_unavailable", "error", err.Error())
				c.JSON(http.StatusUnprocessableEntity, response.ErrorT[any](response.APIResponseCodeUnavailable, msgPaymentUnavailable))
			default:
				logctx.FromGin(c, log).Errorw("payment_create_failed", "error", err.Error())
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			}
			return
		}
		c.JSON(http.StatusCreated, response.OKT(res))
	}
}

// @Summary      Get Payment
// @Description  Returns one payment by its reference.
// @Tags         Payment
// @Produce      json
// @Param        reference path string true "Payment reference"
// @Success      200  {object}  handlers.RespPayment
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/v1/payments/{reference} [get]
func ApiGetPayment(mgr ledger.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := mgr.GetPayment(c.Request.Context(), c.Param("reference"))
		if err != nil {
			if errors.Is(err, ledger.ErrPaymentNotFound) {
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, msgPaymentNotFound))
				return
			}
			logctx.FromGin(c, log).Errorw("payment_get_failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Verify Payment
// @Description  Pulls the provider-side status for a payment and applies it to the ledger.
// @Tags         Payment
// @Produce      json
// @Param        reference path string true "Payment reference"
// @Success      200  {object}  handlers.RespPayment
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/v1/payments/{reference}/verify [post]
func ApiVerifyPayment(mgr ledger.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := mgr.VerifyPayment(c.Request.Context(), c.Param("reference"))
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrPaymentNotFound):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, msgPaymentNotFound))
			case errors.Is(err, ledger.ErrNotInitiated):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, msgNotInitiated))
			case errors.Is(err, providers.ErrProviderUnavailable):
				logctx.FromGin(c, log).Warnw("payment_verify_unavailable", "error", err.Error())
				c.JSON(http.StatusUnprocessableEntity, response.ErrorT[any](response.APIResponseCodeUnavailable, msgPaymentUnavailable))
			default:
				logctx.FromGin(c, log).Errorw("payment_verify_failed", "error", err.Error())
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr ledger.Manager, log *zap.SugaredLogger) {
	r.POST("/payments", ApiCreatePayment(mgr, log))
	r.GET("/payments/:reference", ApiGetPayment(mgr, log))
	r.POST("/payments/:reference/verify", ApiVerifyPayment(mgr, log))
}

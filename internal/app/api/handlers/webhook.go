package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/sankofatours/paygate/internal/app/service/ingress"
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/logctx"
	"github.com/sankofatours/paygate/pkg/response"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// signatureHeaders maps each provider to the request header carrying its
// callback signature. Momo sends a shared key instead of a body signature.
var signatureHeaders = map[types.PaymentProvider]string{
	types.PaymentProviderPaystack: "x-paystack-signature",
	types.PaymentProviderMomo:     "x-callback-key",
	types.PaymentProviderStripe:   "Stripe-Signature",
}

// @Summary      Provider Webhook
// @Description  Receives asynchronous payment notifications from a provider. Responds 2xx only after the delivery is durably logged.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        provider path string true "Provider id (paystack, momo, stripe)"
// @Success      200  {object}  handlers.RespOK
// @Failure      400  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Router       /webhooks/{provider} [post]
func ApiProviderWebhook(svc *ingress.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := types.PaymentProvider(c.Param("provider"))

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		signature := c.GetHeader(signatureHeaders[provider])
		traceID := c.GetString("traceID")

		res, err := svc.Process(c.Request.Context(), provider, body, signature, traceID)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_error", "provider", provider, "error", err.Error())
			switch {
			case errors.Is(err, providers.ErrProviderNotSupported),
				errors.Is(err, providers.ErrProviderDisabled),
				errors.Is(err, ingress.ErrUnmatchedPayment):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, "unknown provider or payment"))
			case errors.Is(err, providers.ErrBadSignature),
				errors.Is(err, providers.ErrMalformedPayload):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, msgInvalidCallback))
			default:
				// Processing failed after the delivery was logged; a non-2xx
				// makes the provider retry, which is what we want here.
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, msgInternalError))
			}
			return
		}

		c.JSON(http.StatusOK, response.OKT(map[string]any{
			"reference": res.Payment.Reference,
			"applied":   res.Applied,
			"note":      res.Note,
		}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, svc *ingress.Service, log *zap.SugaredLogger) {
	r.POST("/:provider", ApiProviderWebhook(svc, log))
}

package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/types"

	"github.com/shopspring/decimal"
)

// PaystackAdapter drives the card/mobile-money gateway. The gateway echoes
// our payment reference back as its transaction handle, so the external
// reference equals the ledger reference.
type PaystackAdapter struct {
	cfg    config.PaystackConfig
	client *http.Client
}

func NewPaystackAdapter(cfg config.PaystackConfig) *PaystackAdapter {
	return &PaystackAdapter{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *PaystackAdapter) ID() types.PaymentProvider { return types.PaymentProviderPaystack }

func (p *PaystackAdapter) Enabled() bool { return p.cfg.Enabled }

// paystackStatusMap translates the gateway's transaction status vocabulary.
var paystackStatusMap = map[string]NormalizedStatus{
	"success":     StatusSucceeded,
	"failed":      StatusFailed,
	"reversed":    StatusRefunded,
	"abandoned":   StatusCancelled,
	"ongoing":     StatusAcceptedPending,
	"pending":     StatusAcceptedPending,
	"processing":  StatusAcceptedPending,
	"queued":      StatusAcceptedPending,
	"send_otp":    StatusAcceptedPending,
	"pay_offline": StatusAcceptedPending,
}

func mapPaystackStatus(s string) NormalizedStatus {
	if mapped, ok := paystackStatusMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mapped
	}
	// Unknown vocabulary never forces a terminal state.
	return StatusAcceptedPending
}

func (p *PaystackAdapter) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: paystack secret key is empty", ErrMisconfigured)
	}

	channels := []string{"card", "bank"}
	if req.Method == types.PaymentMethodMobileMoney {
		channels = []string{"mobile_money"}
	}

	body, _ := json.Marshal(map[string]any{
		"email":     payerEmail(req.PayerContact, req.Reference),
		"amount":    req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"currency":  strings.ToUpper(req.Currency),
		"reference": req.Reference,
		"channels":  channels,
		"metadata":  map[string]string{"description": req.Description},
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: initialize returned status=%d body=%s", ErrRejected, resp.StatusCode, truncateBody(respBody))
	}

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !payload.Status || payload.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize not accepted", ErrRejected)
	}

	externalRef := payload.Data.Reference
	if externalRef == "" {
		externalRef = req.Reference
	}
	return &InitiateResult{
		ExternalReference: externalRef,
		RedirectURL:       payload.Data.AuthorizationURL,
	}, nil
}

func (p *PaystackAdapter) Verify(ctx context.Context, externalRef string) (NormalizedStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/transaction/verify/"+url.PathEscape(externalRef), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: verify returned status=%d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return mapPaystackStatus(payload.Data.Status), nil
}

func (p *PaystackAdapter) ParseCallback(payload []byte, signature string) (*Callback, error) {
	mac := hmac.New(sha512.New, []byte(p.cfg.SecretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return nil, ErrBadSignature
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Data.Reference == "" {
		return nil, fmt.Errorf("%w: missing transaction reference", ErrMalformedPayload)
	}

	status := mapPaystackStatus(event.Data.Status)
	switch event.Event {
	case "charge.success":
		status = StatusSucceeded
	case "charge.failed":
		status = StatusFailed
	case "refund.processed":
		status = StatusRefunded
	}

	return &Callback{
		ExternalReference: event.Data.Reference,
		PaymentReference:  event.Data.Reference,
		Status:            status,
		Event:             event.Event,
	}, nil
}

func payerEmail(contact, reference string) string {
	if strings.Contains(contact, "@") {
		return contact
	}
	// Gateway requires an email; phone-only payers get a deterministic alias.
	return strings.ToLower(reference) + "@payers.sankofatours.com"
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}

package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/types"

	"github.com/shopspring/decimal"
)

const stripeSignatureTolerance = 300 * time.Second

// StripeAdapter is the card-network processor path. It creates a hosted
// checkout session and correlates callbacks through the session id.
type StripeAdapter struct {
	cfg    config.StripeConfig
	client *http.Client
	now    func() time.Time
}

func NewStripeAdapter(cfg config.StripeConfig) *StripeAdapter {
	return &StripeAdapter{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}, now: time.Now}
}

func (s *StripeAdapter) ID() types.PaymentProvider { return types.PaymentProviderStripe }

func (s *StripeAdapter) Enabled() bool { return s.cfg.Enabled }

// stripeEventMap translates webhook event types.
var stripeEventMap = map[string]NormalizedStatus{
	"checkout.session.completed":               StatusSucceeded,
	"checkout.session.async_payment_succeeded": StatusSucceeded,
	"checkout.session.async_payment_failed":    StatusFailed,
	"checkout.session.expired":                 StatusCancelled,
	"charge.refunded":                          StatusRefunded,
}

func (s *StripeAdapter) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return nil, fmt.Errorf("%w: stripe secret key is empty", ErrMisconfigured)
	}
	if req.Method != types.PaymentMethodCard {
		return nil, fmt.Errorf("%w: stripe only processes card payments", ErrRejected)
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("client_reference_id", req.Reference)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount.Mul(decimal.NewFromInt(100)).IntPart(), 10))
	values.Set("line_items[0][price_data][product_data][name]", req.Description)
	values.Set("success_url", s.cfg.SuccessURL)
	values.Set("cancel_url", s.cfg.CancelURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/checkout/sessions", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: create session returned status=%d body=%s", ErrRejected, resp.StatusCode, truncateBody(respBody))
	}

	var payload struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if payload.ID == "" || payload.URL == "" {
		return nil, fmt.Errorf("%w: session id or url missing", ErrRejected)
	}

	return &InitiateResult{ExternalReference: payload.ID, RedirectURL: payload.URL}, nil
}

func (s *StripeAdapter) Verify(ctx context.Context, externalRef string) (NormalizedStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(externalRef), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: get session returned status=%d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if payload.Status == "expired" {
		return StatusCancelled, nil
	}
	switch payload.PaymentStatus {
	case "paid", "no_payment_required":
		return StatusSucceeded, nil
	default:
		return StatusAcceptedPending, nil
	}
}

func (s *StripeAdapter) ParseCallback(payload []byte, signature string) (*Callback, error) {
	if strings.TrimSpace(s.cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret is empty", ErrMisconfigured)
	}
	if !verifyStripeSignature(payload, signature, s.cfg.WebhookSecret, s.now(), stripeSignatureTolerance) {
		return nil, ErrBadSignature
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID                string `json:"id"`
				ClientReferenceID string `json:"client_reference_id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Data.Object.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedPayload)
	}

	status, ok := stripeEventMap[event.Type]
	if !ok {
		status = StatusAcceptedPending
	}

	return &Callback{
		ExternalReference: event.Data.Object.ID,
		PaymentReference:  event.Data.Object.ClientReferenceID,
		Status:            status,
		Event:             event.Type,
	}, nil
}

// verifyStripeSignature checks the "t=...,v1=..." header scheme: v1 is the
// hex HMAC-SHA256 of "<t>.<payload>", and t must be within tolerance.
func verifyStripeSignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) bool {
	var ts string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts == "" || len(candidates) == 0 {
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(tsInt, 0))
	if age > tolerance || age < -tolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, c := range candidates {
		if hmac.Equal([]byte(expected), []byte(c)) {
			return true
		}
	}
	return false
}

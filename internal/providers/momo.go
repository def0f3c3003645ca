package providers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/types"

	"github.com/google/uuid"
)

// MomoAdapter talks to the telecom's collections API directly. We mint the
// external reference (the provider's request id) ourselves on initiate, and
// the payer approves the debit on their handset.
type MomoAdapter struct {
	cfg    config.MomoConfig
	client *http.Client
}

func NewMomoAdapter(cfg config.MomoConfig) *MomoAdapter {
	return &MomoAdapter{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (m *MomoAdapter) ID() types.PaymentProvider { return types.PaymentProviderMomo }

func (m *MomoAdapter) Enabled() bool { return m.cfg.Enabled }

// momoStatusMap translates the telecom's requesttopay status vocabulary.
var momoStatusMap = map[string]NormalizedStatus{
	"PENDING":    StatusAcceptedPending,
	"ONGOING":    StatusAcceptedPending,
	"SUCCESSFUL": StatusSucceeded,
	"FAILED":     StatusFailed,
	"REJECTED":   StatusFailed,
	"TIMEOUT":    StatusFailed,
	"EXPIRED":    StatusCancelled,
}

func mapMomoStatus(s string) NormalizedStatus {
	if mapped, ok := momoStatusMap[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return mapped
	}
	return StatusAcceptedPending
}

// Mobile network prefixes valid for this collection target (Ghana, digits
// after the 233 country code).
var momoNetworkPrefixes = []string{"24", "25", "53", "54", "55", "59"}

// NormalizeMsisdn converts a payer phone number to digits-only E.164 form
// with the 233 country prefix, rejecting numbers outside the known mobile
// prefixes. The failure is user-correctable, not a provider error.
func NormalizeMsisdn(contact string) (string, error) {
	var digits strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if r != '+' && r != ' ' && r != '-' && r != '(' && r != ')' {
			return "", fmt.Errorf("%w: unexpected character in phone number", ErrInvalidPayerContact)
		}
	}
	n := digits.String()

	switch {
	case strings.HasPrefix(n, "233") && len(n) == 12:
		// already E.164 without the plus
	case strings.HasPrefix(n, "0") && len(n) == 10:
		n = "233" + n[1:]
	default:
		return "", fmt.Errorf("%w: expected a 10-digit local or 233-prefixed number", ErrInvalidPayerContact)
	}

	for _, p := range momoNetworkPrefixes {
		if strings.HasPrefix(n[3:], p) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: number is not on a supported mobile network", ErrInvalidPayerContact)
}

func (m *MomoAdapter) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	if strings.TrimSpace(m.cfg.SubscriptionKey) == "" {
		return nil, fmt.Errorf("%w: momo subscription key is empty", ErrMisconfigured)
	}

	msisdn, err := NormalizeMsisdn(req.PayerContact)
	if err != nil {
		return nil, err
	}

	externalRef := uuid.NewString()
	body, _ := json.Marshal(map[string]any{
		"amount":     req.Amount.StringFixed(2),
		"currency":   strings.ToUpper(req.Currency),
		"externalId": req.Reference,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     msisdn,
		},
		"payerMessage": req.Description,
		"payeeNote":    req.Reference,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	m.setHeaders(httpReq)
	httpReq.Header.Set("X-Reference-Id", externalRef)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return &InitiateResult{
			ExternalReference: externalRef,
			ProviderPrompt:    "Approve the payment prompt on " + msisdn,
		}, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: requesttopay returned status=%d", ErrProviderUnavailable, resp.StatusCode)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: requesttopay returned status=%d body=%s", ErrRejected, resp.StatusCode, truncateBody(respBody))
	}
}

func (m *MomoAdapter) Verify(ctx context.Context, externalRef string) (NormalizedStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.BaseURL+"/collection/v1_0/requesttopay/"+externalRef, nil)
	if err != nil {
		return "", err
	}
	m.setHeaders(httpReq)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: requesttopay status returned status=%d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return mapMomoStatus(payload.Status), nil
}

// ParseCallback authenticates the telecom's delivery with the shared
// callback key; the API does not sign payloads.
func (m *MomoAdapter) ParseCallback(payload []byte, signature string) (*Callback, error) {
	if m.cfg.CallbackKey == "" ||
		subtle.ConstantTimeCompare([]byte(m.cfg.CallbackKey), []byte(strings.TrimSpace(signature))) != 1 {
		return nil, ErrBadSignature
	}

	var event struct {
		ReferenceID string `json:"referenceId"`
		ExternalID  string `json:"externalId"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.ReferenceID == "" && event.ExternalID == "" {
		return nil, fmt.Errorf("%w: missing reference identifiers", ErrMalformedPayload)
	}

	return &Callback{
		ExternalReference: event.ReferenceID,
		PaymentReference:  event.ExternalID,
		Status:            mapMomoStatus(event.Status),
		Event:             "requesttopay." + strings.ToLower(event.Status),
	}, nil
}

func (m *MomoAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Ocp-Apim-Subscription-Key", m.cfg.SubscriptionKey)
	req.Header.Set("X-Target-Environment", m.cfg.TargetEnv)
	req.SetBasicAuth(m.cfg.APIUser, m.cfg.APIKey)
}

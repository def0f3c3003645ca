package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/logctx"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Message is one outbound customer notification. Recipient is a phone number
// in E.164 form or an email address; the gateway routes on its shape.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SenderID  string `json:"sender_id,omitempty"`
}

// Notifier delivers customer-facing messages. Delivery is best-effort:
// callers log failures but never roll back business state over them.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

type gatewayNotifier struct {
	cfg    config.NotifierConfig
	log    *zap.SugaredLogger
	client *http.Client
}

type logNotifier struct {
	log *zap.SugaredLogger
}

// New picks the gateway implementation when a gateway URL is configured and
// falls back to log-only delivery otherwise (dev and test environments).
func New(cfg *config.Config, log *zap.SugaredLogger) Notifier {
	if cfg.Notifier.GatewayURL == "" {
		return &logNotifier{log: log}
	}
	return &gatewayNotifier{
		cfg:    cfg.Notifier,
		log:    log,
		client: &http.Client{Timeout: cfg.Notifier.Timeout},
	}
}

func (n *gatewayNotifier) Send(ctx context.Context, msg *Message) error {
	if msg == nil || msg.Recipient == "" {
		return nil
	}
	if msg.SenderID == "" {
		msg.SenderID = n.cfg.SenderID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification gateway unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned %d", resp.StatusCode)
	}
	logctx.FromCtx(ctx, n.log).Infow("notification_sent", "recipient", msg.Recipient, "subject", msg.Subject)
	return nil
}

func (n *logNotifier) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return nil
	}
	logctx.FromCtx(ctx, n.log).Infow("notification_logged", "recipient", msg.Recipient, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// Module exposes the notifier via Fx.
var Module = fx.Options(
	fx.Provide(New),
)

package ingress

import (
	"github.com/sankofatours/paygate/internal/app/service/callbacklog"
	"github.com/sankofatours/paygate/internal/app/service/ledger"
	"github.com/sankofatours/paygate/internal/providers"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module exposes the webhook ingress pipeline via Fx.
var Module = fx.Options(
	fx.Provide(func(log *zap.SugaredLogger, registry *providers.Registry, ledgerSvc ledger.Manager, logs *callbacklog.Service) *Service {
		return New(log, registry, ledgerSvc, logs)
	}),
)

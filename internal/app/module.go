package app

import (
	"time"

	"github.com/sankofatours/paygate/internal/app/api/server"
	"github.com/sankofatours/paygate/internal/app/service/callbacklog"
	"github.com/sankofatours/paygate/internal/app/service/catalog"
	"github.com/sankofatours/paygate/internal/app/service/fulfillment"
	"github.com/sankofatours/paygate/internal/app/service/ingress"
	"github.com/sankofatours/paygate/internal/app/service/ledger"
	"github.com/sankofatours/paygate/internal/app/service/notifier"
	"github.com/sankofatours/paygate/internal/app/service/statistics"
	"github.com/sankofatours/paygate/internal/app/service/sweeper"
	"github.com/sankofatours/paygate/internal/platform/db"
	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	providers.Module,
	ledger.Module,
	callbacklog.Module,
	ingress.Module,
	catalog.Module,
	notifier.Module,
	fulfillment.Module,
	sweeper.Module,
	statistics.Module,
	// The ledger triggers fulfillment through this interface so the two
	// packages stay free of an import cycle.
	fx.Provide(func(s *fulfillment.Service) ledger.Fulfiller { return s }),
)

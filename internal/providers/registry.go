package providers

import (
	"github.com/sankofatours/paygate/pkg/config"
	"github.com/sankofatours/paygate/pkg/types"

	"go.uber.org/fx"
)

type Registry struct {
	adapters map[types.PaymentProvider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	items := make(map[types.PaymentProvider]Adapter, len(adapters))
	for _, a := range adapters {
		items[a.ID()] = a
	}
	return &Registry{adapters: items}
}

// Get returns the adapter for id, or ErrProviderNotSupported /
// ErrProviderDisabled.
func (r *Registry) Get(id types.PaymentProvider) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	if !a.Enabled() {
		return nil, ErrProviderDisabled
	}
	return a, nil
}

func newRegistryFromConfig(cfg *config.Config) *Registry {
	return NewRegistry(
		NewPaystackAdapter(cfg.Providers.Paystack),
		NewMomoAdapter(cfg.Providers.Momo),
		NewStripeAdapter(cfg.Providers.Stripe),
	)
}

var Module = fx.Options(
	fx.Provide(newRegistryFromConfig),
)

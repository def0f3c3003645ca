package callbacklog

import "go.uber.org/fx"

// Module exposes the callback log via Fx.
var Module = fx.Options(
	fx.Provide(New),
)

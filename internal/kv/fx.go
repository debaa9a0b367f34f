package kv

import "go.uber.org/fx"

var Module = fx.Module("kv",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
)

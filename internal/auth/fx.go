package auth

import (
	"github.com/smallbiznis/propoza/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(func(cfg config.Config) (*Tokens, error) {
		return NewTokens(cfg.AuthJWTSecret)
	}),
)

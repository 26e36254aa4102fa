package proposaltemplate

import (
	"github.com/smallbiznis/propoza/internal/proposaltemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("proposaltemplate.service",
	fx.Provide(service.NewService),
)

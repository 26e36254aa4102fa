package proposal

import (
	"github.com/smallbiznis/propoza/internal/proposal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("proposal.service",
	fx.Provide(
		service.NewAssigneePolicy,
		service.NewService,
	),
)

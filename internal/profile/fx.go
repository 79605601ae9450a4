package profile

import (
	"github.com/smallbiznis/atrium/internal/profile/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("profile",
	fx.Provide(repository.New),
)

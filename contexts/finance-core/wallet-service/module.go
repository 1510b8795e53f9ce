package wallet

import (
	"log/slog"

	httpadapter "flowsmartly/contexts/finance-core/wallet-service/adapters/http"
	"flowsmartly/contexts/finance-core/wallet-service/adapters/memory"
	"flowsmartly/contexts/finance-core/wallet-service/application"
	"flowsmartly/contexts/finance-core/wallet-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Gate        ports.AuthorizationGate
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:   deps.Repository,
		Gate:   deps.Gate,
		Clock:  deps.Clock,
		IDGen:  deps.IDGenerator,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule builds a development/testing module. The gate is
// injected because authorization lives in identity-access.
func NewInMemoryModule(gate ports.AuthorizationGate, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Gate:        gate,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}

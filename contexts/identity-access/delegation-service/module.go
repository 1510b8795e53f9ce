package delegation

import (
	"log/slog"

	gateadapter "flowsmartly/contexts/identity-access/delegation-service/adapters/gate"
	httpadapter "flowsmartly/contexts/identity-access/delegation-service/adapters/http"
	"flowsmartly/contexts/identity-access/delegation-service/adapters/memory"
	"flowsmartly/contexts/identity-access/delegation-service/application/commands"
	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	"flowsmartly/contexts/identity-access/delegation-service/application/workers"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// Module is the delegation-service composition root exposed to runtime wiring.
type Module struct {
	Handler httpadapter.Handler
	Gate    gateadapter.Gate
	Relay   workers.NotificationRelay
	Store   *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Repository  ports.Repository
	Audit       ports.AuditLog
	Outbox      ports.OutboxRepository
	Sessions    ports.SessionResolver
	Publisher   ports.NotificationPublisher
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// NewModule wires delegation use-cases, the financial-action gate, and the
// transport handler using explicit ports.
func NewModule(deps Dependencies) Module {
	startDelegation := commands.StartDelegationUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	endDelegation := commands.EndDelegationUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	applyAgent := commands.ApplyAgentUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	reviewAgent := commands.ReviewAgentUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	suspendAgent := commands.SuspendAgentUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	engageAgent := commands.EngageAgentUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	activateRelationship := commands.ActivateRelationshipUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	terminateRelationship := commands.TerminateRelationshipUseCase{
		Repository:  deps.Repository,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	activeDelegation := queries.GetActiveDelegationUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	effectiveActor := queries.ResolveEffectiveActorUseCase{
		Sessions:         deps.Sessions,
		ActiveDelegation: activeDelegation,
		Logger:           deps.Logger,
	}
	listAudit := queries.ListAuditEntriesUseCase{
		Audit:      deps.Audit,
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}

	handler := httpadapter.Handler{
		StartDelegation:       startDelegation,
		EndDelegation:         endDelegation,
		ApplyAgent:            applyAgent,
		ReviewAgent:           reviewAgent,
		SuspendAgent:          suspendAgent,
		EngageAgent:           engageAgent,
		ActivateRelationship:  activateRelationship,
		TerminateRelationship: terminateRelationship,
		ActiveDelegation:      activeDelegation,
		EffectiveActor:        effectiveActor,
		ListAudit:             listAudit,
		Logger:                deps.Logger,
	}

	gate := gateadapter.Gate{
		EffectiveActor: effectiveActor,
		Audit:          deps.Audit,
		Clock:          deps.Clock,
		Logger:         deps.Logger,
	}

	relay := workers.NotificationRelay{
		Outbox:    deps.Outbox,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}

	return Module{
		Handler: handler,
		Gate:    gate,
		Relay:   relay,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters. Sessions and Publisher default to no-op fakes when nil.
func NewInMemoryModule(sessions ports.SessionResolver, publisher ports.NotificationPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	if publisher == nil {
		publisher = memory.NopPublisher{}
	}
	module := NewModule(Dependencies{
		Repository:  store,
		Audit:       store,
		Outbox:      store,
		Sessions:    sessions,
		Publisher:   publisher,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}

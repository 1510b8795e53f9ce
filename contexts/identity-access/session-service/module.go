package session

import (
	"context"
	"log/slog"
	"time"

	hashadapter "flowsmartly/contexts/identity-access/session-service/adapters/hash"
	httpadapter "flowsmartly/contexts/identity-access/session-service/adapters/http"
	"flowsmartly/contexts/identity-access/session-service/adapters/memory"
	tokenadapter "flowsmartly/contexts/identity-access/session-service/adapters/token"
	"flowsmartly/contexts/identity-access/session-service/application/commands"
	"flowsmartly/contexts/identity-access/session-service/application/queries"
	"flowsmartly/contexts/identity-access/session-service/ports"
)

// Module is the session-service composition root exposed to runtime wiring.
type Module struct {
	Handler  httpadapter.Handler
	Resolver Resolver
	Store    *memory.Store
	Hasher   ports.PasswordHasher
}

// Resolver adapts the resolve-principal query to the credential-to-principal
// interface other modules consume.
type Resolver struct {
	resolve queries.ResolvePrincipalUseCase
}

func (r Resolver) ResolvePrincipal(ctx context.Context, credential string) (string, error) {
	return r.resolve.Execute(ctx, credential)
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Sessions    ports.SessionRepository
	Directory   ports.AccountDirectory
	Hasher      ports.PasswordHasher
	Signer      ports.TokenSigner
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	SessionTTL  time.Duration
	Logger      *slog.Logger
}

// NewModule wires session use-cases and the transport handler using explicit
// ports.
func NewModule(deps Dependencies) Module {
	login := commands.LoginUseCase{
		Directory:   deps.Directory,
		Sessions:    deps.Sessions,
		Hasher:      deps.Hasher,
		Signer:      deps.Signer,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		SessionTTL:  deps.SessionTTL,
		Logger:      deps.Logger,
	}
	revoke := commands.RevokeSessionUseCase{
		Sessions: deps.Sessions,
		Signer:   deps.Signer,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	resolve := queries.ResolvePrincipalUseCase{
		Sessions:  deps.Sessions,
		Directory: deps.Directory,
		Signer:    deps.Signer,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Login:  login,
			Revoke: revoke,
			Logger: deps.Logger,
		},
		Resolver: Resolver{resolve: resolve},
		Hasher:   deps.Hasher,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters and a static signing secret.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Sessions:    store,
		Directory:   store,
		Hasher:      hashadapter.BcryptHasher{Cost: 4},
		Signer:      tokenadapter.JWTSigner{Secret: []byte("flowsmartly-dev-secret"), Issuer: "flowsmartly"},
		Clock:       store,
		IDGenerator: store,
		SessionTTL:  24 * time.Hour,
		Logger:      logger,
	})
	module.Store = store
	return module
}

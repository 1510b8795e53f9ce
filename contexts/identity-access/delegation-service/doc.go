// Package delegation implements the FlowSmartly delegated-session core inside
// the identity-access context.
//
// Layering:
// - domain: core entities, invariants, errors
// - application: commands/queries/workers using explicit ports
// - ports: stable boundaries for persistence/events
// - adapters: concrete HTTP, memory, postgres, gate, and event publisher implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under identity-access context.
// - Do not import other context adapters into domain/application.
// - Route handlers consume the gate verdicts; they never re-derive them.
package delegation

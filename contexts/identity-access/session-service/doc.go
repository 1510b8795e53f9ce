// Package session owns credential login and bearer-session resolution for
// FlowSmartly. It issues signed session tokens, tracks their lifecycle in a
// session store, and answers "which principal is behind this credential" for
// the other identity-access modules.
//
// Layering follows the usual module shape: domain state under
// domain/entities, sentinel errors under domain/errors, ports under ports/,
// use-cases under application/, and adapters under adapters/. Delegation
// builds on top of this module through its SessionResolver port; nothing in
// here knows about impersonation overlays.
package session

package mapping

import "github.com/pkg/errors"

// The closed set of failure kinds the mapping core can produce. Stage-level
// failures (missing convention, malformed transaction) are soft: they are
// logged and downgraded to zero confidence at the stage boundary. Calling the
// orchestrator before initialization and comparing vectors across
// vocabularies are hard usage errors that propagate.
var (
	ErrNotInitialized        = errors.New("mapping orchestrator not initialized")
	ErrMissingSignConvention = errors.New("accounting standard has no sign convention for account type")
	ErrMalformedTransaction  = errors.New("transaction must have exactly one debit and one credit entry")
)

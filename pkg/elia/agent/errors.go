// errors.go defines the fault taxonomy for message evaluation.
// Faults are local to one message's pipeline and never propagate to
// sibling pipelines or the dashboard; none of them terminate the process.
package agent

import "errors"

var (
	// ErrConfiguration marks a missing or unparsable required
	// configuration value. Aborts the single in-flight evaluation and
	// is surfaced to operators via the log.
	ErrConfiguration = errors.New("configuration fault")

	// ErrModelCall marks a remote model error, timeout, or malformed
	// response. Recovered into a user-visible error reply.
	ErrModelCall = errors.New("model call fault")

	// ErrLookup marks a web lookup failure. Recovered silently into
	// empty context, never surfaced to the user.
	ErrLookup = errors.New("lookup fault")

	// ErrAuthorization marks a privileged command attempted by a
	// non-admin identity. Rejected with a visible denial.
	ErrAuthorization = errors.New("authorization fault")
)

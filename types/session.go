package types

// SessionMeta identifies one CLI invocation for log correlation.
type SessionMeta struct {
	// SessionID is a random identifier generated per invocation.
	SessionID string
	// BaseURL is the backend the session talks to.
	BaseURL string
}

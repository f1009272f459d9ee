package domain

type SessionStatus string

const (
	SessionAnonymous      SessionStatus = "anonymous"
	SessionAuthenticating SessionStatus = "authenticating"
	SessionAuthenticated  SessionStatus = "authenticated"
)

// SessionState is a snapshot of one role's session. IsAuthenticated implies
// Credential is non-nil.
type SessionState struct {
	Role            Role
	Status          SessionStatus
	Principal       *Principal
	Credential      *Credential
	IsAuthenticated bool
	IsLoading       bool
	LastError       string
	// Version increases on every transition.
	Version uint64
}

func AnonymousState(role Role) SessionState {
	return SessionState{Role: role, Status: SessionAnonymous}
}

func (s SessionState) Clone() SessionState {
	s.Principal = s.Principal.Clone()
	s.Credential = s.Credential.Clone()
	return s
}

package domain

// AuthEventKind tags an AuthEvent.
type AuthEventKind string

const (
	AuthEventSignedIn         AuthEventKind = "SIGNED_IN"
	AuthEventSignedOut        AuthEventKind = "SIGNED_OUT"
	AuthEventTokenRefreshed   AuthEventKind = "TOKEN_REFRESHED"
	AuthEventUserUpdated      AuthEventKind = "USER_UPDATED"
	AuthEventPasswordRecovery AuthEventKind = "PASSWORD_RECOVERY"
)

// AuthEvent is emitted by the auth provider client whenever the signed in session changes.
// Session is nil for SIGNED_OUT.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *AuthSession
}

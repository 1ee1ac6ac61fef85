package bwx

// SessionEnv is the environment variable the vault tool reads its session
// token from.
const SessionEnv = "BW_SESSION"

// SessionStore caches the vault session token between invocations.
type SessionStore interface {
	// Load returns the stored token. A missing or unreadable token is
	// reported as absent, never as an error.
	Load() (string, bool)

	// Save stores the token with owner-only permissions, replacing any
	// previous token atomically.
	Save(token string) error

	// Invalidate removes the stored token. Removing an absent token is a no-op.
	Invalidate() error
}

// Sealer protects the token while it sits in the transient directory.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

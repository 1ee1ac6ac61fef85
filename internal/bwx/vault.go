package bwx

import "context"

// Object names accepted by Vault.Fetch.
const (
	ObjectPassword = "password"
	ObjectUsername = "username"
	ObjectTOTP     = "totp"
	ObjectNotes    = "notes"
	ObjectURI      = "uri"
)

// Objects lists every object name Vault.Fetch understands.
var Objects = []string{ObjectPassword, ObjectUsername, ObjectTOTP, ObjectNotes, ObjectURI}

// Vault is the external password vault.
type Vault interface {
	// Unlock prompts for the master credential (the prompt belongs to the
	// vault tool) and returns a fresh session token.
	Unlock(ctx context.Context) (string, error)

	// Fetch returns the named object of an item using the session token.
	// It returns an error wrapping ErrSessionInvalid when the vault rejects
	// the token, and ErrItemNotFound or ErrAmbiguousItem for lookup failures.
	Fetch(ctx context.Context, token, object, item string) (string, error)
}

package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/fs"
)

// AgeSealer implements bwx.Sealer using filippo.io/age with an X25519
// identity kept outside the transient directory. A copy of the transient
// directory alone is then not enough to recover the session token.
type AgeSealer struct {
	identityPath string
}

var _ bwx.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a sealer using the identity file at identityPath.
func NewAgeSealer(identityPath string) *AgeSealer {
	return &AgeSealer{identityPath: identityPath}
}

// Setup generates a new X25519 identity and writes it with owner-only
// permissions. It refuses to overwrite an existing identity, since tokens
// sealed to it would become unreadable.
func (s *AgeSealer) Setup() error {
	if s.IsConfigured() {
		return fmt.Errorf("identity already exists at %s", s.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.identityPath), fs.PrivateDirMode); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	data := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient().String(), identity.String())
	if err := fs.WriteFileAtomic(s.identityPath, []byte(data)); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

// IsConfigured returns true if the identity file exists.
func (s *AgeSealer) IsConfigured() bool {
	_, err := os.Stat(s.identityPath)
	return err == nil
}

// Seal encrypts plaintext to the identity's recipient.
func (s *AgeSealer) Seal(plaintext []byte) ([]byte, error) {
	identity, err := s.loadIdentity()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts data sealed by Seal.
func (s *AgeSealer) Open(sealed []byte) ([]byte, error) {
	identity, err := s.loadIdentity()
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decrypting data: %w", err)
	}
	return plaintext, nil
}

// loadIdentity reads and parses the identity file.
func (s *AgeSealer) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity found in %s", s.identityPath)
}

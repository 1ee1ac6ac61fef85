package encryption

import (
	"bytes"
	"fmt"

	"github.com/msladek/bwx/internal/bwx"
)

// NoneSealer stores the token as is. The transient directory's owner-only
// permissions are its only protection.
type NoneSealer struct{}

var _ bwx.Sealer = NoneSealer{}

func (NoneSealer) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (NoneSealer) Open(sealed []byte) ([]byte, error)    { return sealed, nil }

// testHeader is prepended to data by TestSealer to make sealed output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("BWXSEAL\x00")

// TestSealer is a simple, deterministic sealer for testing.
type TestSealer struct{}

var _ bwx.Sealer = TestSealer{}

func (TestSealer) Seal(plaintext []byte) ([]byte, error) {
	return append(append([]byte{}, testHeader...), plaintext...), nil
}

func (TestSealer) Open(sealed []byte) ([]byte, error) {
	if !bytes.HasPrefix(sealed, testHeader) {
		return nil, fmt.Errorf("invalid test seal header")
	}
	return sealed[len(testHeader):], nil
}

package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/msladek/bwx/internal/bwx"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Tokens it hands out stay valid until expired with Expire, which makes it
// useful for exercising session handling in tests.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	mu       sync.Mutex
	items    map[string]map[string]string // item -> object -> value
	tokens   map[string]bool              // token -> valid
	unlockOK bool
	broken   bool // every token is rejected
	unlocks  int
	fetches  int
}

var _ bwx.Vault = (*MemoryVault)(nil)

// NewMemoryVault creates an unlockable, empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		items:    make(map[string]map[string]string),
		tokens:   make(map[string]bool),
		unlockOK: true,
	}
}

// AddItem stores an object value for an item.
func (m *MemoryVault) AddItem(item, object, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[item] == nil {
		m.items[item] = make(map[string]string)
	}
	m.items[item][object] = value
}

// AcceptToken marks a token as valid without unlocking, as if it came from
// an earlier invocation.
func (m *MemoryVault) AcceptToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = true
}

// Expire invalidates a token.
func (m *MemoryVault) Expire(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = false
}

// ExpireAll invalidates every token handed out so far.
func (m *MemoryVault) ExpireAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t := range m.tokens {
		m.tokens[t] = false
	}
}

// RejectUnlock makes every following Unlock fail, as with a wrong master password.
func (m *MemoryVault) RejectUnlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockOK = false
}

// RejectSessions makes every token invalid, including ones handed out later.
func (m *MemoryVault) RejectSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken = true
}

// Unlocks returns how many times Unlock was called.
func (m *MemoryVault) Unlocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocks
}

// Fetches returns how many times Fetch was called.
func (m *MemoryVault) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *MemoryVault) Unlock(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocks++
	if !m.unlockOK {
		return "", fmt.Errorf("%w: invalid master password", bwx.ErrUnlockFailed)
	}
	token := fmt.Sprintf("token-%d", m.unlocks)
	m.tokens[token] = true
	return token, nil
}

func (m *MemoryVault) Fetch(_ context.Context, token, object, item string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.broken || !m.tokens[token] {
		return "", fmt.Errorf("%w: vault is locked", bwx.ErrSessionInvalid)
	}
	objects, ok := m.items[item]
	if !ok {
		return "", fmt.Errorf("%w: %q", bwx.ErrItemNotFound, item)
	}
	value, ok := objects[object]
	if !ok {
		return "", fmt.Errorf("%w: %q has no %s", bwx.ErrItemNotFound, item, object)
	}
	return value, nil
}

package bwx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CopyState is a step of the copy flow.
type CopyState int

const (
	StateNeedUnlock CopyState = iota
	StateHaveSession
	StateSecretFetched
	StateCopied
	StateClearArmed
	StateFailed
)

func (s CopyState) String() string {
	switch s {
	case StateNeedUnlock:
		return "NEED_UNLOCK"
	case StateHaveSession:
		return "HAVE_SESSION"
	case StateSecretFetched:
		return "SECRET_FETCHED"
	case StateCopied:
		return "COPIED"
	case StateClearArmed:
		return "CLEAR_ARMED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("CopyState(%d)", int(s))
	}
}

// CopyOptions controls a single copy.
type CopyOptions struct {
	Object     string // defaults to ObjectPassword
	Target     Target // defaults to TargetClipboard
	ClearAfter time.Duration
}

// CopyResult reports how far a copy got.
type CopyResult struct {
	State    CopyState
	Unlocked bool // a fresh unlock was needed
	Retried  bool // the cached session was rejected and replaced
	Clear    *ClearHandle
}

// BWXService is the orchestration layer between the CLI and the external
// vault and clipboard tools.
type BWXService struct {
	sessions  SessionStore
	vault     Vault
	clipboard Clipboard
	scheduler Scheduler
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	// envToken is a token handed in through the environment. It takes
	// precedence over the stored one until the vault rejects it.
	envToken string
}

// NewBWXService creates a new BWXService with the provided dependencies.
func NewBWXService(sessions SessionStore, vault Vault, clipboard Clipboard, scheduler Scheduler, logger Logger, clock Clock, idgen IDGenerator) *BWXService {
	return &BWXService{
		sessions:  sessions,
		vault:     vault,
		clipboard: clipboard,
		scheduler: scheduler,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// SetEnvToken registers a session token found in the environment.
func (s *BWXService) SetEnvToken(token string) {
	s.envToken = token
}

// ResolveSession returns a usable session token: the environment token, the
// stored token, or a fresh one obtained by unlocking the vault and saved for
// later invocations. unlocked reports whether the vault had to be unlocked.
func (s *BWXService) ResolveSession(ctx context.Context) (token string, unlocked bool, err error) {
	if s.envToken != "" {
		s.logger.Debug("using session from environment", "env", SessionEnv)
		return s.envToken, false, nil
	}

	if token, ok := s.sessions.Load(); ok {
		s.logger.Debug("using stored session")
		return token, false, nil
	}

	s.logger.Debug("unlocking vault")
	token, err = s.vault.Unlock(ctx)
	if err != nil {
		return "", false, err
	}
	if token == "" {
		return "", false, fmt.Errorf("%w: no session token received", ErrUnlockFailed)
	}

	if err := s.sessions.Save(token); err != nil {
		return "", false, fmt.Errorf("saving session: %w", err)
	}
	s.logger.Debug("saved new session")
	return token, true, nil
}

// Lock forgets the cached session.
func (s *BWXService) Lock() error {
	s.envToken = ""
	if err := s.sessions.Invalidate(); err != nil {
		return fmt.Errorf("invalidating session: %w", err)
	}
	return nil
}

// Copy fetches an item's secret and places it on the clipboard, then arms a
// deferred clear of the selection. Steps whose clipboard command is not
// configured are skipped: with copying disabled the secret is fetched and
// discarded, and nothing is armed.
func (s *BWXService) Copy(ctx context.Context, item string, opts CopyOptions) (*CopyResult, error) {
	if opts.Object == "" {
		opts.Object = ObjectPassword
	}
	if opts.Target == "" {
		opts.Target = TargetClipboard
	}

	res := &CopyResult{State: StateNeedUnlock}
	fail := func(err error) (*CopyResult, error) {
		s.logger.Debug("copy failed", "state", res.State.String(), "error", err)
		res.State = StateFailed
		return res, err
	}

	s.logger.Debug("copy requested", "item", item, "object", opts.Object, "target", string(opts.Target))

	secret, err := s.fetch(ctx, item, opts.Object, res)
	if err != nil {
		return fail(err)
	}
	res.State = StateSecretFetched

	if !s.clipboard.CopyEnabled() {
		s.logger.Debug("clipboard copy not configured, skipping")
		return res, nil
	}

	var revoked *ClearHandle
	if s.clipboard.ClearEnabled() {
		revoked = s.cancelPending(opts.Target)
	}

	if err := s.clipboard.Copy(ctx, opts.Target, secret); err != nil {
		if revoked != nil {
			s.rearm(ctx, *revoked)
		}
		return fail(fmt.Errorf("copying to %s: %w", opts.Target, err))
	}
	res.State = StateCopied
	s.logger.Debug("copied", "target", string(opts.Target))

	if !s.clipboard.ClearEnabled() {
		s.logger.Debug("clipboard clear not configured, skipping")
		return res, nil
	}

	req := ClearRequest{
		ID:          s.idgen.New(),
		Target:      opts.Target,
		ArmedAt:     s.clock.Now(),
		Delay:       opts.ClearAfter,
		Fingerprint: Fingerprint(secret),
	}
	h, err := s.scheduler.Arm(ctx, req)
	if err != nil {
		return fail(fmt.Errorf("arming clipboard clear: %w", err))
	}
	res.Clear = &h
	res.State = StateClearArmed
	s.logger.Debug("clear armed", "target", string(opts.Target), "id", h.ID, "delay", opts.ClearAfter.String())

	return res, nil
}

// fetch resolves a session and fetches the secret. A session the vault
// rejects is invalidated and replaced exactly once.
func (s *BWXService) fetch(ctx context.Context, item, object string, res *CopyResult) (string, error) {
	token, unlocked, err := s.ResolveSession(ctx)
	if err != nil {
		return "", err
	}
	res.Unlocked = unlocked
	res.State = StateHaveSession

	secret, err := s.vault.Fetch(ctx, token, object, item)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, ErrSessionInvalid) {
		return "", err
	}

	s.logger.Info("session rejected by vault, unlocking again")
	if err := s.Lock(); err != nil {
		return "", err
	}
	res.Retried = true
	res.State = StateNeedUnlock

	token, unlocked, err = s.ResolveSession(ctx)
	if err != nil {
		return "", err
	}
	res.Unlocked = res.Unlocked || unlocked
	res.State = StateHaveSession

	secret, err = s.vault.Fetch(ctx, token, object, item)
	if errors.Is(err, ErrSessionInvalid) {
		return "", fmt.Errorf("%w: %w", ErrSessionRetryExhausted, err)
	}
	return secret, err
}

// cancelPending stops the clear pending for target so it cannot fire
// between the new copy and the new clear taking over. It returns the
// cancelled clear, if any.
func (s *BWXService) cancelPending(target Target) *ClearHandle {
	h, ok, err := s.scheduler.Pending(target)
	if err != nil {
		s.logger.Debug("reading pending clear", "target", string(target), "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if err := s.scheduler.Cancel(h); err != nil {
		s.logger.Debug("cancelling pending clear", "target", string(target), "id", h.ID, "error", err)
		return nil
	}
	s.logger.Debug("cancelled pending clear", "target", string(target), "id", h.ID, "pid", h.PID)
	return &h
}

// rearm restores a clear cancelled for a copy that then failed, keeping its
// original deadline. The previous content is still on the selection, and
// its fingerprint is not known here, so the stale check is skipped.
func (s *BWXService) rearm(ctx context.Context, h ClearHandle) {
	req := ClearRequest{
		ID:      s.idgen.New(),
		Target:  h.Target,
		ArmedAt: h.ArmedAt,
		Delay:   h.Deadline.Sub(h.ArmedAt),
	}
	if _, err := s.scheduler.Arm(ctx, req); err != nil {
		s.logger.Warn("re-arming cancelled clear", "target", string(h.Target), "error", err)
		return
	}
	s.logger.Debug("re-armed cancelled clear", "target", string(h.Target), "id", req.ID, "deadline", h.Deadline.Format(time.RFC3339))
}

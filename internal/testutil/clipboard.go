package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/msladek/bwx/internal/bwx"
)

// ClipboardEvent is one recorded clipboard operation.
type ClipboardEvent struct {
	Op      string // "copy" or "clear"
	Target  bwx.Target
	Content string
	At      time.Time
}

// RecordingClipboard keeps selections in memory and records every copy and
// clear. It also serves as the ClipboardReader for the stale guard.
// Safe for concurrent use.
type RecordingClipboard struct {
	mu       sync.Mutex
	content  map[bwx.Target]string
	events   []ClipboardEvent
	noCopy   bool
	noClear  bool
	copyErr  error
	clearErr error
	readErr  error
}

var (
	_ bwx.Clipboard       = (*RecordingClipboard)(nil)
	_ bwx.ClipboardReader = (*RecordingClipboard)(nil)
)

func NewRecordingClipboard() *RecordingClipboard {
	return &RecordingClipboard{content: make(map[bwx.Target]string)}
}

// DisableCopy and DisableClear simulate unconfigured clipboard commands.
func (c *RecordingClipboard) DisableCopy()  { c.mu.Lock(); c.noCopy = true; c.mu.Unlock() }
func (c *RecordingClipboard) DisableClear() { c.mu.Lock(); c.noClear = true; c.mu.Unlock() }

// FailCopy, FailClear and FailRead make the operation return err.
func (c *RecordingClipboard) FailCopy(err error)  { c.mu.Lock(); c.copyErr = err; c.mu.Unlock() }
func (c *RecordingClipboard) FailClear(err error) { c.mu.Lock(); c.clearErr = err; c.mu.Unlock() }
func (c *RecordingClipboard) FailRead(err error)  { c.mu.Lock(); c.readErr = err; c.mu.Unlock() }

// Set changes a selection without recording an event, like another
// program writing to the clipboard.
func (c *RecordingClipboard) Set(target bwx.Target, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content[target] = content
}

func (c *RecordingClipboard) CopyEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.noCopy
}

func (c *RecordingClipboard) ClearEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.noClear
}

func (c *RecordingClipboard) Copy(_ context.Context, target bwx.Target, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.copyErr != nil {
		return c.copyErr
	}
	c.content[target] = secret
	c.events = append(c.events, ClipboardEvent{Op: "copy", Target: target, Content: secret, At: time.Now()})
	return nil
}

func (c *RecordingClipboard) Clear(_ context.Context, target bwx.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.content[target] = ""
	c.events = append(c.events, ClipboardEvent{Op: "clear", Target: target, At: time.Now()})
	return nil
}

func (c *RecordingClipboard) Read(_ context.Context, target bwx.Target) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.content[target], nil
}

// Content returns the current content of target.
func (c *RecordingClipboard) Content(target bwx.Target) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content[target]
}

// Events returns a copy of the recorded events.
func (c *RecordingClipboard) Events() []ClipboardEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ClipboardEvent(nil), c.events...)
}

// Clears returns the recorded clears of target.
func (c *RecordingClipboard) Clears(target bwx.Target) []ClipboardEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ClipboardEvent
	for _, e := range c.events {
		if e.Op == "clear" && e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

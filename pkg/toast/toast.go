package toast

import (
	"log/slog"
	"sync"
)

// Level represents the toast notification level.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a single user-facing transient message.
type Notification struct {
	Level   Level
	Message string
}

// Center holds at most one visible notification at a time.
// Showing a new notification dismisses the previous one first,
// so subscribers never see two messages stacked.
//
// A nil notification delivered to subscribers means "dismissed".
type Center struct {
	mu      sync.Mutex
	current *Notification
	subs    map[int]func(*Notification)
	nextID  int
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{subs: make(map[int]func(*Notification))}
}

// Show displays a notification, replacing any currently visible one.
func (c *Center) Show(level Level, message string) {
	c.mu.Lock()
	if c.current != nil {
		c.current = nil
		c.notifyLocked(nil)
	}
	n := &Notification{Level: level, Message: message}
	c.current = n
	c.notifyLocked(n)
	c.mu.Unlock()
}

// Dismiss removes the currently visible notification, if any.
func (c *Center) Dismiss() {
	c.mu.Lock()
	if c.current != nil {
		c.current = nil
		c.notifyLocked(nil)
	}
	c.mu.Unlock()
}

// Current returns a copy of the visible notification, or nil if none.
func (c *Center) Current() *Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	n := *c.current
	return &n
}

// Subscribe registers a callback invoked on every show and dismiss.
// The returned function unsubscribes.
func (c *Center) Subscribe(fn func(*Notification)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Center) notifyLocked(n *Notification) {
	for _, fn := range c.subs {
		if n == nil {
			fn(nil)
			continue
		}
		cp := *n
		fn(&cp)
	}
}

// Success shows a success notification.
func (c *Center) Success(message string) { c.Show(LevelSuccess, message) }

// Error shows an error notification.
func (c *Center) Error(message string) { c.Show(LevelError, message) }

// Warning shows a warning notification.
func (c *Center) Warning(message string) { c.Show(LevelWarning, message) }

// Info shows an info notification.
func (c *Center) Info(message string) { c.Show(LevelInfo, message) }

// LogTo subscribes a slog.Logger to the center so notifications surface
// in terminal environments. Returns the unsubscribe function.
func LogTo(c *Center, logger *slog.Logger) func() {
	return c.Subscribe(func(n *Notification) {
		if n == nil {
			return
		}
		switch n.Level {
		case LevelError:
			logger.Error(n.Message)
		case LevelWarning:
			logger.Warn(n.Message)
		default:
			logger.Info(n.Message)
		}
	})
}

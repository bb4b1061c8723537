package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is what the router remembers about one sender between messages.
type Session struct {
	RestaurantID uuid.UUID
	Locale       string
	Phone        string
	LastActivity time.Time
}

// SessionCache holds sessions for a fixed idle time-to-live. An expired
// session is dropped on access so the next message resolves it again.
type SessionCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewSessionCache(ttl time.Duration, now func() time.Time) *SessionCache {
	if now == nil {
		now = time.Now
	}
	return &SessionCache{ttl: ttl, now: now, sessions: make(map[string]Session)}
}

// Get returns the live session of sender and refreshes its activity time.
func (c *SessionCache) Get(sender string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sender]
	if !ok {
		return Session{}, false
	}
	now := c.now()
	if now.Sub(s.LastActivity) >= c.ttl {
		delete(c.sessions, sender)
		return Session{}, false
	}
	s.LastActivity = now
	c.sessions[sender] = s
	return s, true
}

func (c *SessionCache) Put(sender string, s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.LastActivity = c.now()
	c.sessions[sender] = s
}

func (c *SessionCache) Forget(sender string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sender)
}

// Sweep drops every expired session and returns how many were removed.
func (c *SessionCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, s := range c.sessions {
		if now.Sub(s.LastActivity) >= c.ttl {
			delete(c.sessions, k)
			n++
		}
	}
	return n
}

func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

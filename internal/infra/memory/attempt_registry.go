package memory

import (
	"sync"

	"quizdesk/internal/app"
)

// AttemptRegistry is an in-memory implementation of app.AttemptRegistry.
type AttemptRegistry struct {
	mu       sync.RWMutex
	attempts map[string]*app.Controller
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		attempts: make(map[string]*app.Controller),
	}
}

// Put registers c, replacing and tearing down any attempt under the same id.
func (r *AttemptRegistry) Put(c *app.Controller) {
	r.mu.Lock()
	prev, ok := r.attempts[c.ID()]
	r.attempts[c.ID()] = c
	r.mu.Unlock()
	if ok && prev != c {
		prev.Close()
	}
}

func (r *AttemptRegistry) Get(attemptID string) (*app.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.attempts[attemptID]
	return c, ok
}

func (r *AttemptRegistry) Delete(attemptID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, attemptID)
}

// CloseAll closes every tracked controller and empties the registry.
func (r *AttemptRegistry) CloseAll() {
	r.mu.Lock()
	attempts := r.attempts
	r.attempts = make(map[string]*app.Controller)
	r.mu.Unlock()
	for _, c := range attempts {
		c.Close()
	}
}

package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizdesk/internal/app"
)

// AttemptRegistry is a Redis-aware implementation of app.AttemptRegistry.
// Notes:
//   - Controllers own live timers, so they stay in a local map.
//   - Redis holds a liveness marker per attempt with the owning user id, which
//     lets operators see attempts across instances.
type AttemptRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Controller
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Controller),
	}
}

func (r *AttemptRegistry) Put(c *app.Controller) {
	r.mu.Lock()
	prev, ok := r.attempts[c.ID()]
	r.attempts[c.ID()] = c
	r.mu.Unlock()
	if ok && prev != c {
		prev.Close()
	}
	if err := r.client.Set(context.Background(), r.key(c.ID()), c.Identity().ID, r.ttl).Err(); err != nil {
		log.Printf("set attempt marker %s: %v", c.ID(), err)
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
	_, ok := r.attempts[attemptID]
	delete(r.attempts, attemptID)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.clearMarkers(attemptID)
}

// CloseAll closes every local controller and clears their markers.
func (r *AttemptRegistry) CloseAll() {
	r.mu.Lock()
	attempts := r.attempts
	r.attempts = make(map[string]*app.Controller)
	r.mu.Unlock()

	ids := make([]string, 0, len(attempts))
	for id, c := range attempts {
		c.Close()
		ids = append(ids, id)
	}
	r.clearMarkers(ids...)
}

func (r *AttemptRegistry) clearMarkers(attemptIDs ...string) {
	if len(attemptIDs) == 0 {
		return
	}
	keys := make([]string, len(attemptIDs))
	for i, id := range attemptIDs {
		keys[i] = r.key(id)
	}
	if err := r.client.Del(context.Background(), keys...).Err(); err != nil {
		log.Printf("clear attempt markers %v: %v", attemptIDs, err)
	}
}

func (r *AttemptRegistry) key(attemptID string) string {
	return "quiz:attempt:" + attemptID
}

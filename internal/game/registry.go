package game

import (
	"context"
	"sync"
	"time"

	"github.com/creature-duel-backend/pkg/logger"
)

// Errors
var (
	ErrSessionNotFound = &RegistryError{Message: "session not found"}
)

// RegistryError represents a session registry error
type RegistryError struct {
	Message string
}

func (e *RegistryError) Error() string {
	return e.Message
}

// Registry tracks live sessions and drives their cooldowns.
// It is the external scheduler the controller relies on: one ticker
// goroutine sweeps all sessions, decrements cooldowns and fires the
// deferred round load when a cooldown elapses.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	interval time.Duration
	log      *logger.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewRegistry creates a registry ticking at the given interval
func NewRegistry(interval time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Add registers a session
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID()] = s
}

// Get retrieves a session by id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return s, nil
}

// Remove discards a session
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return ErrSessionNotFound
	}

	delete(r.sessions, id)
	return nil
}

// Run drives the cooldown ticker until Stop is called.
// Meant to be run on its own goroutine.
func (r *Registry) Run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

// Stop halts the ticker and waits for the sweep loop to exit
func (r *Registry) Stop() {
	close(r.stop)
	<-r.done
}

// sweep ticks every session's cooldown and schedules the deferred
// round load for any cooldown that just elapsed.
func (r *Registry) sweep() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		due, epoch := s.TickCooldown()
		if !due {
			continue
		}
		go func(s *Session, epoch uint64) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := s.ReloadIfCurrent(ctx, epoch); err != nil {
				r.log.Error("deferred round load failed",
					logger.F("session_id", s.ID()),
					logger.F("error", err.Error()))
			}
		}(s, epoch)
	}
}

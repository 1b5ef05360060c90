package service

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"valuator/internal/model"
)

var ErrSessionNotFound = errors.New("form session not found")

// Registry keeps the mounted form sessions of the dashboard
type Registry struct {
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(deps SessionDeps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open mounts a new form for domain
func (r *Registry) Open(domain model.DomainID) (*Session, error) {
	d, ok := model.LookupDomain(domain)
	if !ok {
		return nil, ErrUnknownDomain
	}

	s := NewSession(uuid.NewString(), d, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears down one session
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll tears down every session, used on shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

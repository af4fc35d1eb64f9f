// Package session keeps per-browser state (signed-in email, pending checkout
// reference, flash messages) in a server-side store keyed by a cookie.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

type Session struct {
	ID               string  `json:"id"`
	Email            string  `json:"email,omitempty"`
	PendingReference string  `json:"pending_reference,omitempty"`
	Flashes          []Flash `json:"flashes,omitempty"`

	dirty bool
}

func (s *Session) SetEmail(email string) {
	s.Email = email
	s.dirty = true
}

func (s *Session) SetPendingReference(ref string) {
	s.PendingReference = ref
	s.dirty = true
}

// TakePendingReference returns the stored reference and clears it.
func (s *Session) TakePendingReference() string {
	ref := s.PendingReference
	if ref != "" {
		s.PendingReference = ""
		s.dirty = true
	}
	return ref
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

// PopFlashes returns queued flashes in insertion order and empties the queue.
func (s *Session) PopFlashes() []Flash {
	out := s.Flashes
	if len(out) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return out
}

func (s *Session) Dirty() bool { return s.dirty }

type Store interface {
	// Load returns nil, nil for an unknown or expired id.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
}

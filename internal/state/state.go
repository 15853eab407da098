// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package state persists the router's role. Every write bumps a version so
// readers can tell which completed transition they are looking at.
package state

import (
	"strings"
	"sync"
	"time"

	"grimm.is/vrouter/internal/errors"
)

// Role is the redundancy role of the router.
type Role string

const (
	RoleMaster  Role = "MASTER"
	RoleBackup  Role = "BACKUP"
	RoleFault   Role = "FAULT"
	RoleUnknown Role = "UNKNOWN"
)

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleMaster, RoleBackup, RoleFault:
		return r, nil
	default:
		return RoleUnknown, errors.Errorf(errors.KindValidation, "unknown role %q", s)
	}
}

// Record is the persisted result of the last completed transition.
type Record struct {
	Role         Role      `json:"role"`
	Version      uint64    `json:"version"`
	TransitionID string    `json:"transition_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists the role record.
type Store interface {
	// Load returns the current record, or a RoleUnknown record at version 0
	// if nothing was saved yet.
	Load() (Record, error)
	// Save writes role with the next version.
	Save(role Role, transitionID string) (Record, error)
	// History returns up to limit records, newest first.
	History(limit int) ([]Record, error)
	Close() error
}

func unknownRecord() Record {
	return Record{Role: RoleUnknown}
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	rec     Record
	history []Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rec: unknownRecord(), now: time.Now}
}

func (s *MemoryStore) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

func (s *MemoryStore) Save(role Role, transitionID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Record{
		Role:         role,
		Version:      s.rec.Version + 1,
		TransitionID: transitionID,
		UpdatedAt:    s.now().UTC(),
	}
	s.history = append(s.history, s.rec)
	return s.rec, nil
}

func (s *MemoryStore) History(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

package core

import (
	"strings"
	"time"
)

// Registrations tracks usernames claimed through the registration endpoint.
// It is independent of live connections: joining a room never consults it.
type Registrations struct {
	users *SyncMap[string, time.Time]
	now   func() time.Time
}

func NewRegistrations() *Registrations {
	return &Registrations{
		users: NewSyncMap[string, time.Time](),
		now:   time.Now,
	}
}

// Register claims username. It returns ErrRegistrationConflict when the
// username is blank or already claimed.
func (r *Registrations) Register(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrRegistrationConflict
	}
	if _, loaded := r.users.LoadOrStore(username, r.now()); loaded {
		return ErrRegistrationConflict
	}
	return nil
}

func (r *Registrations) IsRegistered(username string) bool {
	_, ok := r.users.Load(username)
	return ok
}

// Usernames returns every registered username in lexical order.
func (r *Registrations) Usernames() []string {
	return r.users.Keys(strings.Compare)
}

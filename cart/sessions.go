package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSessions = 10000
	DefaultSessionTTL  = 30 * time.Minute
)

// LocalOpener returns the device-storage CartStore for a device.
type LocalOpener func(deviceID uuid.UUID) (CartStore, error)

// Limits bounds the session registry. Zero fields take the defaults.
type Limits struct {
	// MaxSessions caps live sessions; the least recently used is dropped first.
	MaxSessions int
	// IdleTTL drops a session that has not been used for this long.
	IdleTTL time.Duration
}

// Sessions keeps one Manager per recently active device. A dropped session
// costs nothing but a reload: guest state is on the device, signed-in state
// in the database.
type Sessions struct {
	mu       sync.Mutex
	managers *expirable.LRU[uuid.UUID, *Manager]

	local  LocalOpener
	remote RemoteOpener
	logger *slog.Logger
}

func NewSessions(local LocalOpener, remote RemoteOpener, logger *slog.Logger, limits Limits) *Sessions {
	if limits.MaxSessions <= 0 {
		limits.MaxSessions = DefaultMaxSessions
	}
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultSessionTTL
	}
	onEvict := func(deviceID uuid.UUID, _ *Manager) {
		logger.Debug("session dropped", "device_id", deviceID)
	}
	return &Sessions{
		managers: expirable.NewLRU[uuid.UUID, *Manager](limits.MaxSessions, onEvict, limits.IdleTTL),
		local:    local,
		remote:   remote,
		logger:   logger,
	}
}

// Session returns the device's Manager, switched to userID (uuid.Nil for a guest).
// A signed-in Manager is reloaded from the database on every call.
// A non-nil Manager comes back even when loading state failed; the error is
// for the caller to report. The Manager is nil only if it could not be created
// or the identity cannot be served at all.
func (s *Sessions) Session(ctx context.Context, deviceID, userID uuid.UUID) (*Manager, error) {
	m, err := s.manager(deviceID)
	if err != nil {
		return nil, err
	}
	if err := m.SetUser(ctx, userID); err != nil {
		if errors.Is(err, ErrRemoteUnavailable) {
			return nil, err
		}
		return m, err
	}
	return m, nil
}

func (s *Sessions) manager(deviceID uuid.UUID) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.managers.Get(deviceID)
	if !ok {
		local, err := s.local(deviceID)
		if err != nil {
			return nil, fmt.Errorf("open device storage: %w", err)
		}
		m = NewManager(local, s.remote, s.logger.With("device_id", deviceID))
	}
	// re-adding restarts the idle clock
	s.managers.Add(deviceID, m)
	return m, nil
}

// Len reports how many devices have a live session.
func (s *Sessions) Len() int {
	return s.managers.Len()
}

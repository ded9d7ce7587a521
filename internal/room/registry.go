package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/logging"
	"github.com/Devansh-Ruia/Pulse/internal/metrics"
)

const (
	// codeRetryBudget bounds collision retries during room creation.
	// Exhaustion signals a registration failure rather than a silent overwrite.
	codeRetryBudget = 5

	// DefaultRoomTTL is how long a dormant room stays addressable before the
	// sweep reclaims it.
	DefaultRoomTTL = 24 * time.Hour

	// DefaultMaxClientsPerRoom limits connections per room (prevents resource
	// exhaustion).
	DefaultMaxClientsPerRoom = 500

	sweepInterval = 10 * time.Minute
)

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	SnapshotInterval  time.Duration
	RoomTTL           time.Duration
	MaxClientsPerRoom int
}

// Registry maps room codes to live sessions. The map has a single serialized
// writer path (creation and eviction) and is read-only for lookups, so
// concurrent readers share an RWMutex with it.
type Registry struct {
	clock             clockwork.Clock
	snapshotInterval  time.Duration
	roomTTL           time.Duration
	maxClientsPerRoom int
	newCode           func() string

	mu    sync.RWMutex
	rooms map[string]*Session
}

func NewRegistry(clock clockwork.Clock, opts Options) *Registry {
	if opts.SnapshotInterval <= 0 {
		opts.SnapshotInterval = DefaultSnapshotInterval
	}
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = DefaultRoomTTL
	}
	if opts.MaxClientsPerRoom <= 0 {
		opts.MaxClientsPerRoom = DefaultMaxClientsPerRoom
	}
	return &Registry{
		clock:             clock,
		snapshotInterval:  opts.SnapshotInterval,
		roomTTL:           opts.RoomTTL,
		maxClientsPerRoom: opts.MaxClientsPerRoom,
		newCode:           newRoomCode,
		rooms:             make(map[string]*Session),
	}
}

// CreateRoom generates a fresh collision-checked code, constructs the room
// with empty collections, and starts its snapshot scheduler.
func (r *Registry) CreateRoom(title, hostIdentity, payoutDestination string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < codeRetryBudget; attempt++ {
		code := r.newCode()
		if _, taken := r.rooms[code]; taken {
			continue
		}

		info := domain.RoomInfo{
			ID:                code,
			Title:             title,
			HostIdentity:      hostIdentity,
			PayoutDestination: payoutDestination,
			CreatedAt:         r.clock.Now(),
		}
		s := newSession(info, r.clock, r.snapshotInterval, r.maxClientsPerRoom)
		r.rooms[code] = s

		metrics.RoomsCreated.Inc()
		metrics.RoomsActive.Set(float64(len(r.rooms)))

		logging.WithRoom(code).Info("Room created", "title", title)
		return s, nil
	}

	slog.Error("Room code collision retry budget exhausted", "budget", codeRetryBudget)
	return nil, domain.ErrRegistrationFailure
}

// GetRoom is a pure lookup; it never mutates.
func (r *Registry) GetRoom(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[id]
	return s, ok
}

// Summary returns the read-only projection for an external status query.
func (r *Registry) Summary(id string) (domain.RoomSummary, bool) {
	s, ok := r.GetRoom(id)
	if !ok {
		return domain.RoomSummary{}, false
	}
	return s.Summary(), true
}

// Len reports the number of registered rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Run drives the dormancy sweep until ctx is cancelled. Rooms with no
// participants and no connections for longer than the TTL are evicted, which
// also frees their code for reuse.
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	r.mu.RLock()
	candidates := make(map[string]*Session, len(r.rooms))
	for id, s := range r.rooms {
		candidates[id] = s
	}
	r.mu.RUnlock()

	cutoff := r.clock.Now().Add(-r.roomTTL)
	for id, s := range candidates {
		since := s.DormantSince()
		if since.IsZero() || since.After(cutoff) {
			continue
		}

		r.mu.Lock()
		// A join may have raced the dormancy read; re-check before evicting.
		since = s.DormantSince()
		if since.IsZero() || since.After(cutoff) {
			r.mu.Unlock()
			continue
		}
		delete(r.rooms, id)
		metrics.RoomsActive.Set(float64(len(r.rooms)))
		r.mu.Unlock()

		s.Stop()
		metrics.RoomsEvicted.Inc()
		logging.WithRoom(id).Info("Dormant room evicted", "dormant_since", since)
	}
}

// Close stops every registered session. Called on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.rooms))
	for id, s := range r.rooms {
		sessions = append(sessions, s)
		delete(r.rooms, id)
	}
	metrics.RoomsActive.Set(0)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

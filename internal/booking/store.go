// Package booking caches remote booking entities and tracks the lifecycle of
// booking mutations. Bookings are server-owned: the cache only ever adopts
// entities the remote returned, never locally guessed states.
package booking

import (
	"sync"

	"github.com/servana/storefront/internal/domain"
)

// MutationKind names a server-gated booking mutation.
type MutationKind string

const (
	MutationCancel     MutationKind = "cancel"
	MutationReschedule MutationKind = "reschedule"
	MutationPayment    MutationKind = "payment"
)

// Phase is the lifecycle state of one mutation kind on one booking.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// MutationError is the structured rejection stored for display when the
// remote declines a mutation.
type MutationError struct {
	Code           string
	Message        string
	SupportContact string
}

// MutationState pairs a phase with the rejection that produced it, if any.
type MutationState struct {
	Phase Phase
	Err   *MutationError
}

type mutationKey struct {
	bookingID string
	kind      MutationKind
}

// Store is the in-process cache of booking entities plus per-mutation state.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	list      []domain.Booking
	detail    map[string]domain.Booking
	stats     *domain.BookingStats
	mutations map[mutationKey]MutationState
}

// NewStore constructs an empty booking cache.
func NewStore() *Store {
	return &Store{
		detail:    map[string]domain.Booking{},
		mutations: map[mutationKey]MutationState{},
	}
}

// SetList replaces the cached list with a fetched page.
func (s *Store) SetList(bookings []domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append([]domain.Booking(nil), bookings...)
}

// List returns a copy of the cached list.
func (s *Store) List() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Booking(nil), s.list...)
}

// SetDetail caches a single fetched booking.
func (s *Store) SetDetail(booking domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail[booking.ID] = booking
}

// Detail returns the cached detail entity for a booking, if loaded.
func (s *Store) Detail(bookingID string) (domain.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.detail[bookingID]
	return booking, ok
}

// SetStats caches the aggregate figures.
func (s *Store) SetStats(stats domain.BookingStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

// Stats returns the cached aggregate figures, if loaded.
func (s *Store) Stats() (domain.BookingStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return domain.BookingStats{}, false
	}
	return *s.stats, true
}

// Mutation returns the state of one mutation kind on one booking. Unknown
// pairs are idle.
func (s *Store) Mutation(bookingID string, kind MutationKind) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.mutations[mutationKey{bookingID, kind}]
	if !ok {
		return MutationState{Phase: PhaseIdle}
	}
	return state
}

// BeginMutation moves a mutation to pending, clearing any previous rejection
// for that kind. The cached booking is left untouched: the displayed status
// never changes ahead of the server's decision.
func (s *Store) BeginMutation(bookingID string, kind MutationKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations[mutationKey{bookingID, kind}] = MutationState{Phase: PhasePending}
}

// FulfillMutation commits the exact entity returned by the server into the
// list entry and detail cache, then marks the mutation fulfilled. This is the
// only path by which a cached booking's status, payment state or reschedule
// count change.
func (s *Store) FulfillMutation(kind MutationKind, booking domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.list {
		if s.list[i].ID == booking.ID {
			s.list[i] = booking
			break
		}
	}
	if _, ok := s.detail[booking.ID]; ok {
		s.detail[booking.ID] = booking
	}
	s.mutations[mutationKey{booking.ID, kind}] = MutationState{Phase: PhaseFulfilled}
}

// RejectMutation records a structured rejection, leaving the cached booking
// exactly as it was.
func (s *Store) RejectMutation(bookingID string, kind MutationKind, rejection MutationError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations[mutationKey{bookingID, kind}] = MutationState{Phase: PhaseRejected, Err: &rejection}
}

package engine

import (
	"math/rand"
	"sort"

	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
)

// CardAllocator tracks card occupancy within one round and enforces
// the per-user allocation limit. It is owned by a single round actor
// and is not safe for concurrent use; the actor's mailbox serializes
// every call.
type CardAllocator struct {
	roundID    uuid.UUID
	cardCount  int
	maxPerUser int
	rng        *rand.Rand

	cards  map[int]*domain.CardAllocation
	byUser map[uuid.UUID]int
}

// NewCardAllocator creates an allocator for card numbers 1..cardCount
// with at most maxPerUser allocations per user.
func NewCardAllocator(roundID uuid.UUID, cardCount, maxPerUser int, rng *rand.Rand) *CardAllocator {
	return &CardAllocator{
		roundID:    roundID,
		cardCount:  cardCount,
		maxPerUser: maxPerUser,
		rng:        rng,
		cards:      make(map[int]*domain.CardAllocation),
		byUser:     make(map[uuid.UUID]int),
	}
}

// Allocate reserves cardNumber for userID and generates its grid. It
// performs no settlement; the actor pairs the reservation with a
// purchase and calls Release on purchase failure.
func (a *CardAllocator) Allocate(userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error) {
	if cardNumber < 1 || cardNumber > a.cardCount {
		return nil, apperror.ErrInvalidCardNumber(cardNumber)
	}
	if _, taken := a.cards[cardNumber]; taken {
		return nil, apperror.ErrCardTaken(cardNumber)
	}
	if a.byUser[userID] >= a.maxPerUser {
		return nil, apperror.ErrCardLimitExceeded(a.maxPerUser)
	}

	alloc := &domain.CardAllocation{
		ID:         uuid.New(),
		RoundID:    a.roundID,
		UserID:     userID,
		CardNumber: cardNumber,
		Grid:       NewCardGrid(a.rng),
	}
	a.cards[cardNumber] = alloc
	a.byUser[userID]++
	return alloc, nil
}

// Release frees cardNumber if held by userID. The freed number becomes
// available for allocation again.
func (a *CardAllocator) Release(userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error) {
	alloc, ok := a.cards[cardNumber]
	if !ok {
		return nil, apperror.ErrNotFound("allocation")
	}
	if alloc.UserID != userID {
		return nil, apperror.ErrNotCardOwner()
	}
	delete(a.cards, cardNumber)
	a.byUser[userID]--
	if a.byUser[userID] == 0 {
		delete(a.byUser, userID)
	}
	return alloc, nil
}

// Get returns the allocation for cardNumber, or nil.
func (a *CardAllocator) Get(cardNumber int) *domain.CardAllocation {
	return a.cards[cardNumber]
}

// CountFor returns the number of allocations held by userID.
func (a *CardAllocator) CountFor(userID uuid.UUID) int {
	return a.byUser[userID]
}

// DistinctUsers returns the number of users holding at least one card.
func (a *CardAllocator) DistinctUsers() int {
	return len(a.byUser)
}

// Occupied returns the occupied card numbers in ascending order.
func (a *CardAllocator) Occupied() []int {
	out := make([]int, 0, len(a.cards))
	for n := range a.cards {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

package engine

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"live-bingo-engine/config"
	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory SettlementLedger. The engine tests use
// hand-rolled fakes instead of gomock because timer-driven rounds make
// call counts nondeterministic.
type fakeLedger struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]int64
	entries   []domain.LedgerEntry
	payouts   map[uuid.UUID]bool
	payoutCtx context.Context
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[uuid.UUID]int64),
		payouts:  make(map[uuid.UUID]bool),
	}
}

func (f *fakeLedger) credit(userID uuid.UUID, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
}

func (f *fakeLedger) balance(userID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

func (f *fakeLedger) entriesOfKind(kind domain.LedgerEntryKind) []domain.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range f.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeLedger) record(userID uuid.UUID, kind domain.LedgerEntryKind, amount int64, roundID uuid.UUID, reference string) *domain.LedgerEntry {
	entry := domain.LedgerEntry{
		ID:        uuid.New(),
		Reference: reference,
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Status:    domain.LedgerStatusCompleted,
		RoundID:   roundID,
		CreatedAt: time.Now().UTC(),
	}
	f.entries = append(f.entries, entry)
	return &entry
}

func (f *fakeLedger) Purchase(_ context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, _ int) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return nil, apperror.ErrInsufficientFunds()
	}
	f.balances[userID] -= amount
	return f.record(userID, domain.LedgerKindPurchase, amount, roundID, domain.PurchaseReference(allocationID)), nil
}

func (f *fakeLedger) Refund(_ context.Context, userID uuid.UUID, amount int64, roundID, allocationID uuid.UUID, _ int) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	return f.record(userID, domain.LedgerKindRefund, amount, roundID, domain.RefundReference(allocationID)), nil
}

func (f *fakeLedger) Payout(ctx context.Context, userID uuid.UUID, amount int64, roundID uuid.UUID) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payoutCtx = ctx
	if f.payouts[roundID] {
		return nil, apperror.ErrDuplicatePayout()
	}
	f.payouts[roundID] = true
	f.balances[userID] += amount
	return f.record(userID, domain.LedgerKindPayout, amount, roundID, domain.PayoutReference(roundID)), nil
}

func (f *fakeLedger) lastPayoutCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payoutCtx
}

func (f *fakeLedger) Deposit(_ context.Context, userID uuid.UUID, amount int64) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	return f.record(userID, domain.LedgerKindDeposit, amount, uuid.Nil, "TOPUP-"+uuid.NewString()), nil
}

// fakePublisher records every broadcast event in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.RoundEvent
}

func (p *fakePublisher) PublishToRound(_ context.Context, _ uuid.UUID, event domain.RoundEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) all() []domain.RoundEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RoundEvent(nil), p.events...)
}

func (p *fakePublisher) countOf(eventType string) int {
	n := 0
	for _, e := range p.all() {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

type actorTestDeps struct {
	actor    *RoundActor
	ledger   *fakeLedger
	pub      *fakePublisher
	resolved chan domain.RoundSnapshot
}

func testSettings() Settings {
	return Settings{
		Stake:           2000,
		CardCount:       100,
		MaxCardsPerUser: 2,
		MinPlayers:      2,
		LockCountdown:   20 * time.Millisecond,
		Patterns:        allPatterns,
		PayoutMode:      config.PayoutModeStakePool,
		PayoutFactor:    decimal.RequireFromString("0.8"),
		CardPrice:       1000,
	}
}

func setupActor(t *testing.T, settings Settings, interval time.Duration) *actorTestDeps {
	d := &actorTestDeps{
		ledger:   newFakeLedger(),
		pub:      &fakePublisher{},
		resolved: make(chan domain.RoundSnapshot, 1),
	}
	scheduler := NewDrawScheduler(interval, zerolog.Nop())
	d.actor = NewRoundActor(
		context.Background(),
		settings,
		scheduler,
		d.ledger,
		d.pub,
		zerolog.Nop(),
		func(snap domain.RoundSnapshot) { d.resolved <- snap },
	)
	t.Cleanup(d.actor.Stop)
	return d
}

func (d *actorTestDeps) waitResolved(t *testing.T) domain.RoundSnapshot {
	t.Helper()
	select {
	case snap := <-d.resolved:
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("round did not resolve")
		return domain.RoundSnapshot{}
	}
}

// fixedSequence builds a 75-number sequence beginning with head.
func fixedSequence(head ...int) []int {
	seen := make(map[int]bool, len(head))
	seq := append([]int(nil), head...)
	for _, n := range head {
		seen[n] = true
	}
	for n := 1; n <= domain.MaxDrawValue; n++ {
		if !seen[n] {
			seq = append(seq, n)
		}
	}
	return seq
}

// middleRow returns the four real numbers of the card's middle row,
// the cheapest winning line.
func middleRow(grid domain.CardGrid) []int {
	var out []int
	for col := 0; col < domain.GridSize; col++ {
		if n := grid[2][col]; n != domain.FreeCell {
			out = append(out, n)
		}
	}
	return out
}

func TestRoundActor_AllocateAndLock(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	alloc, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, alloc.CardNumber)
	assert.Equal(t, domain.PurchaseReference(alloc.ID), alloc.PurchaseRef)
	assert.Equal(t, int64(8000), d.ledger.balance(u1))

	snap, err := d.actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusForming, snap.Status)

	_, err = d.actor.AllocateCard(ctx, u2, 7)
	require.NoError(t, err)

	snap, err = d.actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundStatusLocking, snap.Status)
	assert.Equal(t, 2, snap.PlayerCount)
	assert.Equal(t, []int{3, 7}, snap.OccupiedCards)

	assert.Equal(t, 2, d.pub.countOf("cardSelected"))
	assert.Equal(t, 1, d.pub.countOf("roundLocked"))
}

func TestRoundActor_LockingRejectsNewPlayers(t *testing.T) {
	settings := testSettings()
	settings.LockCountdown = time.Hour
	d := setupActor(t, settings, time.Hour)
	ctx := context.Background()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{u1, u2, u3} {
		d.ledger.credit(u, 10000)
	}

	_, err := d.actor.AllocateCard(ctx, u1, 1)
	require.NoError(t, err)
	_, err = d.actor.AllocateCard(ctx, u2, 2)
	require.NoError(t, err)

	// New player during the countdown.
	_, err = d.actor.AllocateCard(ctx, u3, 3)
	assertCode(t, err, "GAME_001")

	// Existing player may still take a second card.
	_, err = d.actor.AllocateCard(ctx, u1, 4)
	require.NoError(t, err)
}

func TestRoundActor_InsufficientFundsLeavesCardFree(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	broke, funded := uuid.New(), uuid.New()
	d.ledger.credit(broke, 500)
	d.ledger.credit(funded, 10000)

	_, err := d.actor.AllocateCard(ctx, broke, 5)
	assertCode(t, err, "PAY_001")
	assert.Equal(t, int64(500), d.ledger.balance(broke))

	// The failed allocation did not occupy the card.
	snap, err := d.actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.OccupiedCards)

	_, err = d.actor.AllocateCard(ctx, funded, 5)
	require.NoError(t, err)
}

func TestRoundActor_CancelRefundsAndFreesCard(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	u1 := uuid.New()
	d.ledger.credit(u1, 10000)

	_, err := d.actor.AllocateCard(ctx, u1, 9)
	require.NoError(t, err)
	require.Equal(t, int64(8000), d.ledger.balance(u1))

	require.NoError(t, d.actor.CancelAllocation(ctx, u1, 9))
	assert.Equal(t, int64(10000), d.ledger.balance(u1))

	refunds := d.ledger.entriesOfKind(domain.LedgerKindRefund)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(2000), refunds[0].Amount)

	snap, err := d.actor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.OccupiedCards)
}

func TestRoundActor_RepurchaseAfterCancelIsFreshSettlement(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	first, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	require.NoError(t, d.actor.CancelAllocation(ctx, u1, 3))

	// The freed card sells again under its own settlement identity:
	// the second buyer is debited, not handed the first buyer's entry.
	second, err := d.actor.AllocateCard(ctx, u2, 3)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.PurchaseRef, second.PurchaseRef)
	assert.Equal(t, int64(8000), d.ledger.balance(u2))
	assert.Len(t, d.ledger.entriesOfKind(domain.LedgerKindPurchase), 2)

	// The mirror holds for the refund of the re-sold card.
	require.NoError(t, d.actor.CancelAllocation(ctx, u2, 3))
	assert.Equal(t, int64(10000), d.ledger.balance(u2))
	refunds := d.ledger.entriesOfKind(domain.LedgerKindRefund)
	require.Len(t, refunds, 2)
	assert.NotEqual(t, refunds[0].Reference, refunds[1].Reference)
}

func TestRoundActor_CancelNotOwner(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	u1 := uuid.New()
	d.ledger.credit(u1, 10000)

	_, err := d.actor.AllocateCard(ctx, u1, 9)
	require.NoError(t, err)

	err = d.actor.CancelAllocation(ctx, uuid.New(), 9)
	assertCode(t, err, "GAME_005")
}

func TestRoundActor_ClaimBeforeDrawing(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()
	u1 := uuid.New()
	d.ledger.credit(u1, 10000)

	_, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)

	_, err = d.actor.ClaimWin(ctx, u1, 3)
	assertCode(t, err, "GAME_008")
}

func TestRoundActor_FullLifecycleWithWinner(t *testing.T) {
	settings := testSettings()
	settings.LockCountdown = 10 * time.Millisecond
	d := setupActor(t, settings, 2*time.Millisecond)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	alloc1, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	winningLine := middleRow(alloc1.Grid)
	d.actor.newSequence = func(*rand.Rand) []int { return fixedSequence(winningLine...) }

	_, err = d.actor.AllocateCard(ctx, u2, 7)
	require.NoError(t, err)

	// Wait for the countdown to expire and the winning line to be
	// fully drawn.
	require.Eventually(t, func() bool {
		snap, err := d.actor.Snapshot(ctx)
		return err == nil && snap.Status == domain.RoundStatusDrawing && len(snap.DrawnNumbers) >= len(winningLine)
	}, 5*time.Second, time.Millisecond)

	winner, err := d.actor.ClaimWin(ctx, u1, 3)
	require.NoError(t, err)
	assert.Equal(t, u1, winner.UserID)
	assert.Equal(t, 3, winner.CardNumber)
	assert.Equal(t, domain.PatternRow, winner.Pattern)
	// 2000 * 2 players * 0.8
	assert.Equal(t, int64(3200), winner.Prize)

	snap := d.waitResolved(t)
	assert.Equal(t, domain.RoundStatusResolved, snap.Status)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, u1, snap.Winner.UserID)

	// Winner paid exactly once: 10000 - 2000 + 3200.
	assert.Equal(t, int64(11200), d.ledger.balance(u1))
	payouts := d.ledger.entriesOfKind(domain.LedgerKindPayout)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(3200), payouts[0].Amount)

	// The loser can no longer claim.
	_, err = d.actor.ClaimWin(ctx, u2, 7)
	assertCode(t, err, "GAME_004")

	// Monotonic resolution: the final broadcast is roundResolved.
	events := d.pub.all()
	require.NotEmpty(t, events)
	assert.Equal(t, "roundResolved", events[len(events)-1].EventType())
	assert.Equal(t, 1, d.pub.countOf("roundResolved"))
}

func TestRoundActor_PayoutOutlivesClaimContext(t *testing.T) {
	settings := testSettings()
	settings.LockCountdown = 10 * time.Millisecond
	d := setupActor(t, settings, 2*time.Millisecond)
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	alloc1, err := d.actor.AllocateCard(context.Background(), u1, 3)
	require.NoError(t, err)
	winningLine := middleRow(alloc1.Grid)
	d.actor.newSequence = func(*rand.Rand) []int { return fixedSequence(winningLine...) }

	_, err = d.actor.AllocateCard(context.Background(), u2, 7)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := d.actor.Snapshot(context.Background())
		return err == nil && snap.Status == domain.RoundStatusDrawing && len(snap.DrawnNumbers) >= len(winningLine)
	}, 5*time.Second, time.Millisecond)

	claimCtx, cancel := context.WithCancel(context.Background())
	_, err = d.actor.ClaimWin(claimCtx, u1, 3)
	require.NoError(t, err)
	cancel()

	// The payout is settled on the actor's own context, so the claimant
	// cancelling their request cannot abort the credit.
	payoutCtx := d.ledger.lastPayoutCtx()
	require.NotNil(t, payoutCtx)
	assert.NoError(t, payoutCtx.Err())
	assert.Equal(t, int64(11200), d.ledger.balance(u1))
}

func TestRoundActor_FalseClaimBlocksCardOnly(t *testing.T) {
	settings := testSettings()
	settings.LockCountdown = 10 * time.Millisecond
	d := setupActor(t, settings, 2*time.Millisecond)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	goodAlloc, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	_, err = d.actor.AllocateCard(ctx, u1, 4)
	require.NoError(t, err)
	winningLine := middleRow(goodAlloc.Grid)
	d.actor.newSequence = func(*rand.Rand) []int { return fixedSequence(winningLine...) }

	_, err = d.actor.AllocateCard(ctx, u2, 7)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := d.actor.Snapshot(ctx)
		return err == nil && snap.Status == domain.RoundStatusDrawing && len(snap.DrawnNumbers) >= len(winningLine)
	}, 5*time.Second, time.Millisecond)

	// Card 4 has nothing: the first four draws target card 3's middle
	// row, and at most a handful more numbers have been drawn.
	_, err = d.actor.ClaimWin(ctx, u1, 4)
	assertCode(t, err, "GAME_007")
	assert.Equal(t, 1, d.pub.countOf("claimRejected"))

	// The blocked card stays blocked.
	_, err = d.actor.ClaimWin(ctx, u1, 4)
	assertCode(t, err, "GAME_006")

	// The same user's other card can still win.
	winner, err := d.actor.ClaimWin(ctx, u1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, winner.CardNumber)
}

func TestRoundActor_ExhaustionResolvesWithoutWinner(t *testing.T) {
	settings := testSettings()
	settings.LockCountdown = 5 * time.Millisecond
	d := setupActor(t, settings, 500*time.Microsecond)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	_, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	_, err = d.actor.AllocateCard(ctx, u2, 7)
	require.NoError(t, err)

	snap := d.waitResolved(t)
	assert.Equal(t, domain.RoundStatusResolved, snap.Status)
	assert.Nil(t, snap.Winner)
	assert.Len(t, snap.DrawnNumbers, domain.MaxDrawValue)

	// No payout was issued.
	assert.Empty(t, d.ledger.entriesOfKind(domain.LedgerKindPayout))
	assert.Equal(t, int64(8000), d.ledger.balance(u1))
	assert.Equal(t, int64(8000), d.ledger.balance(u2))

	assert.Equal(t, 1, d.pub.countOf("roundResolved"))
	assert.Equal(t, domain.MaxDrawValue, d.pub.countOf("numberCalled"))
}

func TestRoundActor_FixedPoolPrize(t *testing.T) {
	settings := testSettings()
	settings.PayoutMode = config.PayoutModeFixedPool
	settings.CardPrice = 1500
	settings.CardCount = 10
	settings.LockCountdown = 10 * time.Millisecond
	d := setupActor(t, settings, 2*time.Millisecond)
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()
	d.ledger.credit(u1, 10000)
	d.ledger.credit(u2, 10000)

	alloc1, err := d.actor.AllocateCard(ctx, u1, 3)
	require.NoError(t, err)
	winningLine := middleRow(alloc1.Grid)
	d.actor.newSequence = func(*rand.Rand) []int { return fixedSequence(winningLine...) }

	_, err = d.actor.AllocateCard(ctx, u2, 7)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := d.actor.Snapshot(ctx)
		return err == nil && snap.Status == domain.RoundStatusDrawing && len(snap.DrawnNumbers) >= len(winningLine)
	}, 5*time.Second, time.Millisecond)

	winner, err := d.actor.ClaimWin(ctx, u1, 3)
	require.NoError(t, err)
	// 1500 * 10 cards, independent of purchases.
	assert.Equal(t, int64(15000), winner.Prize)
}

func TestRoundActor_StopRejectsFurtherCalls(t *testing.T) {
	d := setupActor(t, testSettings(), time.Hour)
	ctx := context.Background()

	d.actor.Stop()

	require.Eventually(t, func() bool {
		_, err := d.actor.AllocateCard(ctx, uuid.New(), 1)
		return isRoundResolved(err)
	}, time.Second, time.Millisecond)
}

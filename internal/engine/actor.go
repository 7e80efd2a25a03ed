package engine

import (
	"context"
	"math/rand"
	"time"

	"live-bingo-engine/config"
	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/internal/metrics"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Settings holds the per-round parameters derived from game config.
type Settings struct {
	Stake           int64
	CardCount       int
	MaxCardsPerUser int
	MinPlayers      int
	LockCountdown   time.Duration
	Patterns        []domain.Pattern
	PayoutMode      config.PayoutMode
	PayoutFactor    decimal.Decimal
	CardPrice       int64
}

// RoundActor owns exactly one round. A single goroutine consumes its
// mailbox, so every allocate, cancel, claim, draw tick, and countdown
// expiry against the round is processed one at a time, in arrival
// order. The first valid claim processed wins; there is no other
// tie-break.
type RoundActor struct {
	round      *domain.Round
	alloc      *CardAllocator
	scheduler  *DrawScheduler
	settlement ports.SettlementLedger
	publisher  ports.EventPublisher
	settings   Settings
	log        zerolog.Logger
	rng        *rand.Rand

	mailbox   chan func()
	drawCh    chan DrawTick
	lockTimer *time.Timer

	// quit is closed when the actor goroutine exits; senders blocked on
	// the mailbox or a reply unblock through it.
	quit     chan struct{}
	shutdown chan struct{}

	onResolved func(domain.RoundSnapshot)
	baseCtx    context.Context

	// newSequence produces the draw sequence at lock expiry. Tests
	// replace it to drive deterministic draws.
	newSequence func(*rand.Rand) []int
}

// NewRoundActor creates a round in FORMING state and starts its
// goroutine. onResolved is invoked from the actor goroutine, exactly
// once, after the round reaches RESOLVED.
func NewRoundActor(
	ctx context.Context,
	settings Settings,
	scheduler *DrawScheduler,
	settlement ports.SettlementLedger,
	publisher ports.EventPublisher,
	log zerolog.Logger,
	onResolved func(domain.RoundSnapshot),
) *RoundActor {
	id := uuid.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	a := &RoundActor{
		round: &domain.Round{
			ID:        id,
			Stake:     settings.Stake,
			Status:    domain.RoundStatusForming,
			CreatedAt: time.Now().UTC(),
		},
		alloc:      NewCardAllocator(id, settings.CardCount, settings.MaxCardsPerUser, rng),
		scheduler:  scheduler,
		settlement: settlement,
		publisher:  publisher,
		settings:   settings,
		log: log.With().
			Str("component", "round_actor").
			Str("round_id", id.String()).
			Int64("stake", settings.Stake).
			Logger(),
		rng:        rng,
		mailbox:    make(chan func(), 64),
		drawCh:     make(chan DrawTick, 1),
		quit:       make(chan struct{}),
		shutdown:   make(chan struct{}),
		onResolved:  onResolved,
		baseCtx:     ctx,
		newSequence: NewDrawSequence,
	}

	go a.run()
	return a
}

// ID returns the round id.
func (a *RoundActor) ID() uuid.UUID { return a.round.ID }

// Stop shuts the actor down without resolving the round. Used on
// process shutdown; in-flight callers receive a round-resolved error.
func (a *RoundActor) Stop() {
	select {
	case <-a.shutdown:
	default:
		close(a.shutdown)
	}
}

// AllocateCard reserves cardNumber for userID and settles the purchase.
// The reservation and the debit succeed or fail together.
func (a *RoundActor) AllocateCard(ctx context.Context, userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error) {
	var (
		alloc *domain.CardAllocation
		err   error
	)
	if e := a.do(ctx, func() { alloc, err = a.handleAllocate(ctx, userID, cardNumber) }); e != nil {
		return nil, e
	}
	return alloc, err
}

// CancelAllocation refunds and frees a card. Permitted while the round
// is FORMING or LOCKING.
func (a *RoundActor) CancelAllocation(ctx context.Context, userID uuid.UUID, cardNumber int) error {
	var err error
	if e := a.do(ctx, func() { err = a.handleCancel(ctx, userID, cardNumber) }); e != nil {
		return e
	}
	return err
}

// ClaimWin arbitrates a win claim. A rejected claim permanently blocks
// the card for the remainder of the round.
func (a *RoundActor) ClaimWin(ctx context.Context, userID uuid.UUID, cardNumber int) (*domain.Winner, error) {
	var (
		winner *domain.Winner
		err    error
	)
	if e := a.do(ctx, func() { winner, err = a.handleClaim(userID, cardNumber) }); e != nil {
		return nil, e
	}
	return winner, err
}

// Snapshot returns the round's current state.
func (a *RoundActor) Snapshot(ctx context.Context) (*domain.RoundSnapshot, error) {
	var snap domain.RoundSnapshot
	if e := a.do(ctx, func() { snap = a.snapshot() }); e != nil {
		return nil, e
	}
	return &snap, nil
}

// do runs fn on the actor goroutine and waits for completion. Returns
// a round-resolved error when the actor has already exited.
func (a *RoundActor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case a.mailbox <- cmd:
	case <-a.quit:
		return apperror.ErrRoundResolved()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.quit:
		// The resolving command and the quit signal can race; prefer
		// the completed result when the command did run.
		select {
		case <-done:
			return nil
		default:
			return apperror.ErrRoundResolved()
		}
	}
}

func (a *RoundActor) run() {
	for {
		var timerC <-chan time.Time
		if a.lockTimer != nil {
			timerC = a.lockTimer.C
		}

		select {
		case cmd := <-a.mailbox:
			cmd()
		case tick := <-a.drawCh:
			a.handleDrawTick(tick)
		case <-timerC:
			a.lockTimer = nil
			a.beginDrawing()
		case <-a.shutdown:
			a.scheduler.Stop(a.round.ID)
			if a.lockTimer != nil {
				a.lockTimer.Stop()
			}
			a.exit()
			return
		}

		if a.round.Status == domain.RoundStatusResolved {
			a.exit()
			return
		}
	}
}

// exit closes quit and executes any commands already enqueued, which
// observe the terminal state and reply with rejections.
func (a *RoundActor) exit() {
	close(a.quit)
	for {
		select {
		case cmd := <-a.mailbox:
			cmd()
		default:
			return
		}
	}
}

func (a *RoundActor) handleAllocate(ctx context.Context, userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error) {
	switch a.round.Status {
	case domain.RoundStatusForming:
	case domain.RoundStatusLocking:
		// Players already in the round may add cards during the
		// countdown; new players may not.
		if a.alloc.CountFor(userID) == 0 {
			metrics.RecordAllocation(metrics.ResultRejected)
			return nil, apperror.ErrRoundNotJoinable()
		}
	default:
		metrics.RecordAllocation(metrics.ResultRejected)
		return nil, apperror.ErrRoundNotJoinable()
	}

	alloc, err := a.alloc.Allocate(userID, cardNumber)
	if err != nil {
		metrics.RecordAllocation(metrics.ResultRejected)
		return nil, err
	}

	entry, err := a.settlement.Purchase(ctx, userID, a.settings.Stake, a.round.ID, alloc.ID, cardNumber)
	if err != nil {
		// No allocation without a completed purchase.
		if _, relErr := a.alloc.Release(userID, cardNumber); relErr != nil {
			a.log.Error().Err(relErr).Int("card_number", cardNumber).Msg("releasing unpaid allocation failed")
		}
		metrics.RecordAllocation(metrics.ResultRejected)
		return nil, err
	}
	alloc.PurchaseRef = entry.Reference

	a.publish(domain.CardSelectedEvent{
		CardNumber:  cardNumber,
		UserID:      userID,
		PlayerCount: a.alloc.DistinctUsers(),
	})
	metrics.RecordAllocation(metrics.ResultOK)

	if a.round.Status == domain.RoundStatusForming && a.alloc.DistinctUsers() >= a.settings.MinPlayers {
		a.lock()
	}
	return alloc, nil
}

// lock stops accepting new players and starts the pre-draw countdown.
func (a *RoundActor) lock() {
	a.round.Status = domain.RoundStatusLocking
	a.lockTimer = time.NewTimer(a.settings.LockCountdown)
	a.publish(domain.RoundLockedEvent{
		CountdownSeconds: int(a.settings.LockCountdown / time.Second),
	})
	a.log.Info().
		Int("players", a.alloc.DistinctUsers()).
		Dur("countdown", a.settings.LockCountdown).
		Msg("round locked")
}

func (a *RoundActor) handleCancel(ctx context.Context, userID uuid.UUID, cardNumber int) error {
	switch a.round.Status {
	case domain.RoundStatusForming, domain.RoundStatusLocking:
	case domain.RoundStatusResolved:
		return apperror.ErrRoundResolved()
	default:
		return apperror.ErrRoundNotJoinable()
	}

	alloc := a.alloc.Get(cardNumber)
	if alloc == nil {
		return apperror.ErrNotFound("allocation")
	}
	if alloc.UserID != userID {
		return apperror.ErrNotCardOwner()
	}

	// Refund before releasing; a failed refund keeps the allocation.
	if _, err := a.settlement.Refund(ctx, userID, a.settings.Stake, a.round.ID, alloc.ID, cardNumber); err != nil {
		return err
	}
	if _, err := a.alloc.Release(userID, cardNumber); err != nil {
		return err
	}

	a.log.Info().
		Str("user_id", userID.String()).
		Int("card_number", cardNumber).
		Msg("allocation cancelled and refunded")
	return nil
}

// beginDrawing fires when the lock countdown expires. The draw
// sequence is fixed here and never changes afterwards.
func (a *RoundActor) beginDrawing() {
	if a.round.Status != domain.RoundStatusLocking {
		return
	}
	now := time.Now().UTC()
	a.round.Status = domain.RoundStatusDrawing
	a.round.StartedAt = &now
	a.round.DrawSequence = a.newSequence(a.rng)
	a.scheduler.Start(a.round.ID, a.round.DrawSequence, a.drawCh)
	a.log.Info().Int("players", a.alloc.DistinctUsers()).Msg("drawing started")
}

func (a *RoundActor) handleDrawTick(tick DrawTick) {
	if tick.Err != nil {
		// Fail closed: never leave a round in an ambiguous running
		// state after a scheduler failure.
		a.log.Error().Err(tick.Err).Msg("draw scheduler failed, resolving round without winner")
		a.resolve(nil, metrics.OutcomeFailure)
		return
	}
	if tick.Exhausted {
		a.log.Info().Msg("draw sequence exhausted without a valid claim")
		a.resolve(nil, metrics.OutcomeExhausted)
		return
	}

	a.round.DrawnCount++
	metrics.RecordDraw()
	a.publish(domain.NumberCalledEvent{
		Number:     tick.Number,
		DrawnCount: a.round.DrawnCount,
		Total:      len(a.round.DrawSequence),
	})
}

func (a *RoundActor) handleClaim(userID uuid.UUID, cardNumber int) (*domain.Winner, error) {
	switch a.round.Status {
	case domain.RoundStatusDrawing:
	case domain.RoundStatusResolved:
		metrics.RecordClaim(metrics.ResultRejected)
		return nil, apperror.ErrRoundResolved()
	default:
		metrics.RecordClaim(metrics.ResultRejected)
		return nil, apperror.ErrClaimNotOpen()
	}

	alloc := a.alloc.Get(cardNumber)
	if alloc == nil {
		metrics.RecordClaim(metrics.ResultRejected)
		return nil, apperror.ErrNotFound("allocation")
	}
	if alloc.UserID != userID {
		metrics.RecordClaim(metrics.ResultRejected)
		return nil, apperror.ErrNotCardOwner()
	}
	if alloc.IsBlocked {
		metrics.RecordClaim(metrics.ResultRejected)
		return nil, apperror.ErrCardBlocked()
	}

	drawn := make(map[int]bool, a.round.DrawnCount)
	for _, n := range a.round.DrawnNumbers() {
		drawn[n] = true
	}

	pattern, ok := IsWinningCard(alloc.Grid, drawn, a.settings.Patterns)
	if !ok {
		// A false claim excludes the card for the rest of the round.
		alloc.IsBlocked = true
		a.publish(domain.ClaimRejectedEvent{UserID: userID, CardNumber: cardNumber})
		metrics.RecordClaim(metrics.ResultRejected)
		a.log.Info().
			Str("user_id", userID.String()).
			Int("card_number", cardNumber).
			Msg("claim rejected, card blocked")
		return nil, apperror.ErrClaimRejected()
	}

	alloc.IsWinner = true
	winner := &domain.Winner{
		UserID:     userID,
		CardNumber: cardNumber,
		Pattern:    pattern,
		Prize:      a.prizePool(),
	}
	a.resolve(winner, metrics.OutcomeWinner)
	metrics.RecordClaim(metrics.ResultOK)
	return winner, nil
}

// resolve moves the round to its terminal state, stops the scheduler,
// settles the payout when there is a winner, and broadcasts the
// outcome. Called at most once; RESOLVED is never left. The payout runs
// on the actor's base context: the claimant dropping their connection
// mid-claim cannot abort the winner's credit.
func (a *RoundActor) resolve(winner *domain.Winner, outcome string) {
	a.scheduler.Stop(a.round.ID)
	if a.lockTimer != nil {
		a.lockTimer.Stop()
		a.lockTimer = nil
	}

	now := time.Now().UTC()
	a.round.Status = domain.RoundStatusResolved
	a.round.EndedAt = &now
	a.round.Winner = winner

	event := domain.RoundResolvedEvent{}
	if winner != nil {
		if _, err := a.settlement.Payout(a.baseCtx, winner.UserID, winner.Prize, a.round.ID); err != nil {
			// The resolution stands. The ledger reference keeps a
			// manual payout replay idempotent.
			a.log.Error().Err(err).
				Str("winner_user_id", winner.UserID.String()).
				Int64("prize", winner.Prize).
				Msg("payout failed for resolved round")
		}
		event = domain.RoundResolvedEvent{
			WinnerUserID: &winner.UserID,
			CardNumber:   &winner.CardNumber,
			Prize:        &winner.Prize,
			Pattern:      &winner.Pattern,
		}
	}
	a.publish(event)
	metrics.RecordRoundResolved(outcome)

	a.log.Info().
		Str("outcome", outcome).
		Int("drawn_count", a.round.DrawnCount).
		Msg("round resolved")

	if a.onResolved != nil {
		a.onResolved(a.snapshot())
	}
}

// prizePool computes the winner's prize for the configured payout mode.
func (a *RoundActor) prizePool() int64 {
	if a.settings.PayoutMode == config.PayoutModeFixedPool {
		return a.settings.CardPrice * int64(a.settings.CardCount)
	}
	return decimal.NewFromInt(a.settings.Stake).
		Mul(decimal.NewFromInt(int64(a.alloc.DistinctUsers()))).
		Mul(a.settings.PayoutFactor).
		IntPart()
}

func (a *RoundActor) snapshot() domain.RoundSnapshot {
	return domain.RoundSnapshot{
		RoundID:       a.round.ID,
		Stake:         a.round.Stake,
		Status:        a.round.Status,
		PlayerCount:   a.alloc.DistinctUsers(),
		OccupiedCards: a.alloc.Occupied(),
		DrawnNumbers:  append([]int(nil), a.round.DrawnNumbers()...),
		TotalNumbers:  domain.MaxDrawValue,
		Winner:        a.round.Winner,
		CreatedAt:     a.round.CreatedAt,
		EndedAt:       a.round.EndedAt,
	}
}

func (a *RoundActor) publish(event domain.RoundEvent) {
	if err := a.publisher.PublishToRound(a.baseCtx, a.round.ID, event); err != nil {
		a.log.Warn().Err(err).Str("event", event.EventType()).Msg("event publish failed")
	}
}

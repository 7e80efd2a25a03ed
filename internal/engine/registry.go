package engine

import (
	"context"
	"errors"
	"sync"

	"live-bingo-engine/config"
	"live-bingo-engine/internal/core/domain"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/internal/metrics"
	"live-bingo-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RoundRegistry maps each stake tier to its single open round actor.
// Rounds are created on demand and retired when they resolve; resolved
// snapshots are kept in a bounded in-memory history.
type RoundRegistry struct {
	cfg        config.GameConfig
	patterns   []domain.Pattern
	factor     decimal.Decimal
	scheduler  *DrawScheduler
	settlement ports.SettlementLedger
	publisher  ports.EventPublisher
	log        zerolog.Logger
	baseCtx    context.Context

	mu      sync.Mutex
	open    map[int64]*RoundActor
	history []domain.RoundSnapshot // newest first
}

var _ ports.RoundCoordinator = (*RoundRegistry)(nil)

// NewRoundRegistry validates the game configuration and creates an
// empty registry. ctx bounds the lifetime of every actor it creates.
func NewRoundRegistry(
	ctx context.Context,
	cfg config.GameConfig,
	scheduler *DrawScheduler,
	settlement ports.SettlementLedger,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) (*RoundRegistry, error) {
	patterns, err := domain.ParsePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	factor, err := cfg.Factor()
	if err != nil {
		return nil, err
	}

	return &RoundRegistry{
		cfg:        cfg,
		patterns:   patterns,
		factor:     factor,
		scheduler:  scheduler,
		settlement: settlement,
		publisher:  publisher,
		log:        log.With().Str("component", "round_registry").Logger(),
		baseCtx:    ctx,
		open:       make(map[int64]*RoundActor),
	}, nil
}

// JoinRound returns the snapshot of the open round for the stake tier,
// creating a fresh round when none exists.
func (r *RoundRegistry) JoinRound(ctx context.Context, stake int64) (*domain.RoundSnapshot, error) {
	// One retry covers the window where the fetched actor resolves
	// before the snapshot request reaches it.
	for attempt := 0; attempt < 2; attempt++ {
		actor, err := r.actorFor(stake)
		if err != nil {
			return nil, err
		}
		snap, err := actor.Snapshot(ctx)
		if isRoundResolved(err) {
			continue
		}
		return snap, err
	}
	return nil, apperror.InternalError(errors.New("round kept resolving during join"))
}

// AllocateCard routes the allocation to the stake tier's open round.
func (r *RoundRegistry) AllocateCard(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) (*domain.CardAllocation, error) {
	for attempt := 0; attempt < 2; attempt++ {
		actor, err := r.actorFor(stake)
		if err != nil {
			return nil, err
		}
		alloc, err := actor.AllocateCard(ctx, userID, cardNumber)
		if isRoundResolved(err) {
			continue
		}
		return alloc, err
	}
	return nil, apperror.InternalError(errors.New("round kept resolving during allocation"))
}

// CancelAllocation routes the cancellation to the stake tier's open
// round. A stake with no open round has nothing to cancel.
func (r *RoundRegistry) CancelAllocation(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) error {
	actor, err := r.current(stake)
	if err != nil {
		return err
	}
	return actor.CancelAllocation(ctx, userID, cardNumber)
}

// ClaimWin routes the claim to the stake tier's open round.
func (r *RoundRegistry) ClaimWin(ctx context.Context, stake int64, userID uuid.UUID, cardNumber int) (*domain.Winner, error) {
	actor, err := r.current(stake)
	if err != nil {
		return nil, err
	}
	return actor.ClaimWin(ctx, userID, cardNumber)
}

// History returns resolved round snapshots, newest first.
func (r *RoundRegistry) History(ctx context.Context) []domain.RoundSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RoundSnapshot, len(r.history))
	copy(out, r.history)
	return out
}

// Shutdown stops every open actor. Rounds in progress are abandoned;
// completed ledger entries keep the money trail consistent.
func (r *RoundRegistry) Shutdown() {
	r.mu.Lock()
	actors := make([]*RoundActor, 0, len(r.open))
	for _, a := range r.open {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
}

// actorFor returns the open actor for the stake tier, creating one
// when absent.
func (r *RoundRegistry) actorFor(stake int64) (*RoundActor, error) {
	if !r.cfg.ValidStake(stake) {
		return nil, apperror.ErrInvalidStake(stake)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if actor, ok := r.open[stake]; ok {
		return actor, nil
	}

	settings := Settings{
		Stake:           stake,
		CardCount:       r.cfg.CardCount,
		MaxCardsPerUser: r.cfg.MaxCardsPerUser,
		MinPlayers:      r.cfg.MinPlayers,
		LockCountdown:   r.cfg.LockCountdown,
		Patterns:        r.patterns,
		PayoutMode:      r.cfg.PayoutMode,
		PayoutFactor:    r.factor,
		CardPrice:       r.cfg.CardPrice,
	}
	actor := NewRoundActor(
		r.baseCtx,
		settings,
		r.scheduler,
		r.settlement,
		r.publisher,
		r.log,
		func(snap domain.RoundSnapshot) { r.retire(stake, snap) },
	)
	r.open[stake] = actor
	metrics.RoundOpened()

	r.log.Info().
		Str("round_id", actor.ID().String()).
		Int64("stake", stake).
		Msg("round created")
	return actor, nil
}

// current returns the open actor for the stake tier without creating
// one.
func (r *RoundRegistry) current(stake int64) (*RoundActor, error) {
	if !r.cfg.ValidStake(stake) {
		return nil, apperror.ErrInvalidStake(stake)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.open[stake]
	if !ok {
		return nil, apperror.ErrNotFound("round")
	}
	return actor, nil
}

// retire removes a resolved round from the open map and archives its
// snapshot. Called from the actor goroutine.
func (r *RoundRegistry) retire(stake int64, snap domain.RoundSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actor, ok := r.open[stake]; ok && actor.ID() == snap.RoundID {
		delete(r.open, stake)
		metrics.RoundClosed()
	}

	r.history = append([]domain.RoundSnapshot{snap}, r.history...)
	if max := r.cfg.MaxHistory; max > 0 && len(r.history) > max {
		r.history = r.history[:max]
	}
}

func isRoundResolved(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == "GAME_004"
}

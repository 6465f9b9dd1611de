// Package engine applies vote intents to poll aggregates. It is the only
// writer of poll counters and the vote ledger.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ammoru/pulseroom/internal/model"
	"github.com/ammoru/pulseroom/internal/store"
	"github.com/google/uuid"
)

// ErrContended means the per-poll lock could not be acquired within the
// bounded wait. Callers may retry.
var ErrContended = errors.New("poll is busy, retry")

const defaultLockWait = 2 * time.Second

// Publisher receives the committed snapshot of every state-changing vote.
type Publisher interface {
	Publish(pollID uuid.UUID, snapshot model.Poll)
}

type Engine struct {
	store     store.PollStore
	ledger    store.VoteLedger
	publisher Publisher
	locks     *lockArena
	lockWait  time.Duration
}

func New(pollStore store.PollStore, ledger store.VoteLedger, publisher Publisher, lockWait time.Duration) *Engine {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Engine{
		store:     pollStore,
		ledger:    ledger,
		publisher: publisher,
		locks:     newLockArena(),
		lockWait:  lockWait,
	}
}

// CastVote applies one vote intent and returns the resulting snapshot.
// First vote: +1 on the chosen option. Same option again: idempotent no-op.
// Different option: -1 previous, +1 new, total unchanged. The committed
// snapshot is handed to the publisher before the poll lock is released, so
// subscribers observe snapshots in commit order.
func (e *Engine) CastVote(ctx context.Context, pollID uuid.UUID, voterID string, optionID uuid.UUID) (model.Poll, error) {
	if !validVoterID(voterID) {
		return model.Poll{}, store.ErrInvalidVoter
	}

	// Validate before taking the lock; both checks are re-read inside the
	// critical section via the ledger and counter operations.
	poll, err := e.store.Get(ctx, pollID)
	if err != nil {
		return model.Poll{}, err
	}
	if _, ok := poll.FindOption(optionID); !ok {
		return model.Poll{}, store.ErrOptionNotFound
	}

	if !e.locks.Acquire(pollID, e.lockWait) {
		return model.Poll{}, ErrContended
	}
	defer e.locks.Release(pollID)

	prev, hasPrev, err := e.ledger.GetVote(ctx, pollID, voterID)
	if err != nil {
		return model.Poll{}, err
	}

	if hasPrev && prev == optionID {
		// Idempotent re-vote: no counter change, no updatedAt bump.
		return e.store.Get(ctx, pollID)
	}

	snapshot, err := e.commit(ctx, pollID, voterID, optionID, prev, hasPrev)
	if err != nil {
		return model.Poll{}, err
	}

	// Defensive restore of the core invariant: the published total is
	// always the sum of the option counters.
	snapshot.TotalVotes = snapshot.SumVotes()

	if e.publisher != nil {
		e.publisher.Publish(pollID, snapshot)
	}
	return snapshot, nil
}

// commit records the ledger row and adjusts the counters, as one
// transaction when the backend supports it.
func (e *Engine) commit(ctx context.Context, pollID uuid.UUID, voterID string, optionID, prev uuid.UUID, hasPrev bool) (model.Poll, error) {
	var snapshot model.Poll

	apply := func(ctx context.Context) error {
		if _, _, err := e.ledger.UpsertVote(ctx, pollID, voterID, optionID); err != nil {
			return err
		}
		if hasPrev {
			if _, err := e.store.ApplyCounterDelta(ctx, pollID, prev, -1); err != nil {
				return err
			}
		}
		var err error
		snapshot, err = e.store.ApplyCounterDelta(ctx, pollID, optionID, +1)
		return err
	}

	if runner, ok := e.store.(store.TxRunner); ok {
		if err := runner.RunInVoteTx(ctx, apply); err != nil {
			return model.Poll{}, err
		}
		return snapshot, nil
	}

	if err := apply(ctx); err != nil {
		// Both built-in backends satisfy TxRunner, so this path only runs
		// for a backend that cannot group the writes. Log loudly: a failure
		// here may have left partial state behind.
		log.Printf("vote commit failed for poll %s: %v", pollID, err)
		return model.Poll{}, err
	}
	return snapshot, nil
}

func validVoterID(voterID string) bool {
	if voterID == "" || len(voterID) > 128 {
		return false
	}
	for _, r := range voterID {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return false
		}
	}
	return true
}

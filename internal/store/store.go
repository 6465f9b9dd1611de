// Package store owns poll aggregates and the per-voter vote ledger.
// Mutations flow through the aggregation engine, never through handlers.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/ammoru/pulseroom/internal/model"
	"github.com/google/uuid"
)

const MinQuestionLen = 5

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrOptionNotFound   = errors.New("option does not belong to this poll")
	ErrQuestionTooShort = errors.New("question must be at least 5 characters")
	ErrTooFewOptions    = errors.New("provide at least 2 distinct options")
	ErrInvalidVoter     = errors.New("invalid voter id")
)

// PollStore is the source of truth for poll aggregates.
type PollStore interface {
	Create(ctx context.Context, question string, optionTexts []string) (model.Poll, error)
	Get(ctx context.Context, pollID uuid.UUID) (model.Poll, error)
	List(ctx context.Context) ([]model.Poll, error)

	// ApplyCounterDelta adjusts one option counter, recomputes the total
	// from the option counters and bumps updatedAt. Engine use only,
	// inside the per-poll critical section.
	ApplyCounterDelta(ctx context.Context, pollID, optionID uuid.UUID, delta int) (model.Poll, error)
}

// VoteLedger is the single authority on which option a voter holds.
type VoteLedger interface {
	GetVote(ctx context.Context, pollID uuid.UUID, voterID string) (uuid.UUID, bool, error)

	// UpsertVote records the voter's current option and reports the
	// previous one, if any. Engine use only; linearizable per
	// (pollID, voterID) under the engine's per-poll lock.
	UpsertVote(ctx context.Context, pollID uuid.UUID, voterID string, optionID uuid.UUID) (uuid.UUID, bool, error)
}

// TxRunner is implemented by backends that can commit a ledger upsert and
// its counter deltas as one unit. The engine upgrades to it when present.
type TxRunner interface {
	RunInVoteTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NormalizeOptions trims texts, drops blanks and dedupes by trimmed text,
// keeping first-seen order.
func NormalizeOptions(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// ValidatePollInput applies the creation rules shared by every backend.
// It returns the trimmed question and normalized option texts.
func ValidatePollInput(question string, optionTexts []string) (string, []string, error) {
	q := strings.TrimSpace(question)
	if len([]rune(q)) < MinQuestionLen {
		return "", nil, ErrQuestionTooShort
	}
	opts := NormalizeOptions(optionTexts)
	if len(opts) < 2 {
		return "", nil, ErrTooFewOptions
	}
	return q, opts, nil
}

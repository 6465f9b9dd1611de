package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ammoru/pulseroom/internal/model"
	"github.com/ammoru/pulseroom/util"
	"github.com/google/uuid"
)

type voteKey struct {
	pollID  uuid.UUID
	voterID string
}

type memTxKey struct{}

// MemoryStore keeps polls and the vote ledger in process memory. It is the
// default backend when no DSN is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	polls map[uuid.UUID]*model.Poll
	votes map[voteKey]model.VoteRecord
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		polls: make(map[uuid.UUID]*model.Poll),
		votes: make(map[voteKey]model.VoteRecord),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, question string, optionTexts []string) (model.Poll, error) {
	q, texts, err := ValidatePollInput(question, optionTexts)
	if err != nil {
		return model.Poll{}, err
	}

	now := s.now().UTC()
	poll := &model.Poll{
		ID:        util.GenerateUUID(),
		Question:  q,
		Options:   make([]model.Option, 0, len(texts)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, text := range texts {
		poll.Options = append(poll.Options, model.Option{ID: util.GenerateUUID(), Text: text})
	}

	s.mu.Lock()
	s.polls[poll.ID] = poll
	s.mu.Unlock()

	return poll.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, pollID uuid.UUID) (model.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	poll, ok := s.polls[pollID]
	if !ok {
		return model.Poll{}, ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	polls := make([]model.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		polls = append(polls, p.Clone())
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

// RunInVoteTx holds the store mutex across the whole callback, so a reader
// can never observe a vote half applied (ledger row without its counter
// bump, or the -1 of a re-vote without the matching +1). The marker in ctx
// routes the writes issued by the callback to their non-locking forms, the
// same way PostgresStore carries its transaction.
func (s *MemoryStore) RunInVoteTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, struct{}{}))
}

func inVoteTx(ctx context.Context) bool {
	return ctx.Value(memTxKey{}) != nil
}

func (s *MemoryStore) ApplyCounterDelta(ctx context.Context, pollID, optionID uuid.UUID, delta int) (model.Poll, error) {
	if !inVoteTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.applyCounterDelta(pollID, optionID, delta)
}

func (s *MemoryStore) applyCounterDelta(pollID, optionID uuid.UUID, delta int) (model.Poll, error) {
	poll, ok := s.polls[pollID]
	if !ok {
		return model.Poll{}, ErrPollNotFound
	}
	opt, ok := poll.FindOption(optionID)
	if !ok {
		return model.Poll{}, ErrOptionNotFound
	}

	opt.Votes += delta
	poll.TotalVotes = poll.SumVotes()
	poll.UpdatedAt = s.now().UTC()

	return poll.Clone(), nil
}

func (s *MemoryStore) GetVote(_ context.Context, pollID uuid.UUID, voterID string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.votes[voteKey{pollID: pollID, voterID: voterID}]
	if !ok {
		return uuid.Nil, false, nil
	}
	return rec.OptionID, true, nil
}

func (s *MemoryStore) UpsertVote(ctx context.Context, pollID uuid.UUID, voterID string, optionID uuid.UUID) (uuid.UUID, bool, error) {
	if !inVoteTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	key := voteKey{pollID: pollID, voterID: voterID}
	prev, had := s.votes[key]
	s.votes[key] = model.VoteRecord{
		PollID:   pollID,
		VoterID:  voterID,
		OptionID: optionID,
		VotedAt:  s.now().UTC(),
	}
	return prev.OptionID, had, nil
}

var (
	_ PollStore  = (*MemoryStore)(nil)
	_ VoteLedger = (*MemoryStore)(nil)
	_ TxRunner   = (*MemoryStore)(nil)
)


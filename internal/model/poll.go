package model

import (
	"time"

	"github.com/google/uuid"
)

// Poll is the full aggregate for one poll room. Options keep their
// creation order; that order is authoritative for display.
type Poll struct {
	ID         uuid.UUID `json:"id"`
	Question   string    `json:"question"`
	Options    []Option  `json:"options"`
	TotalVotes int       `json:"totalVotes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Option struct {
	ID    uuid.UUID `json:"id"`
	Text  string    `json:"text"`
	Votes int       `json:"votes"`
}

// VoteRecord is one (poll, voter) row: which option the voter currently holds.
type VoteRecord struct {
	PollID   uuid.UUID `json:"poll_id"`
	VoterID  string    `json:"voter_id"`
	OptionID uuid.UUID `json:"option_id"`
	VotedAt  time.Time `json:"voted_at"`
}

type CreatePollRequest struct {
	Question string   `json:"question" validate:"required,notblank"`
	Options  []string `json:"options" validate:"required,min=2"`
}

type CastVoteRequest struct {
	OptionID string `json:"optionId" validate:"required,notblank"`
	VoterID  string `json:"voterId" validate:"required,notblank"`
}

// Option lookup by id, preserving the not-found distinction for foreign ids.
func (p *Poll) FindOption(optionID uuid.UUID) (*Option, bool) {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// SumVotes recomputes the total from the option counters.
func (p *Poll) SumVotes() int {
	total := 0
	for i := range p.Options {
		total += p.Options[i].Votes
	}
	return total
}

// Clone returns a deep copy so callers never alias live store state.
func (p *Poll) Clone() Poll {
	cp := *p
	cp.Options = make([]Option, len(p.Options))
	copy(cp.Options, p.Options)
	return cp
}

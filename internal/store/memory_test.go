package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCreatePollValidation(t *testing.T) {
	testCases := []struct {
		name     string
		question string
		options  []string
		wantErr  error
	}{
		{"Valid", "Pick a color", []string{"Red", "Blue"}, nil},
		{"Question Too Short", "Hey", []string{"Red", "Blue"}, ErrQuestionTooShort},
		{"Question Whitespace Padded Short", "  hi  ", []string{"Red", "Blue"}, ErrQuestionTooShort},
		{"Single Option", "Pick a color", []string{"Red"}, ErrTooFewOptions},
		{"Blank Options Dropped", "Pick a color", []string{"Red", "   ", ""}, ErrTooFewOptions},
		{"Duplicates Collapse", "Pick a color", []string{"Red", " Red "}, ErrTooFewOptions},
		{"Duplicates Plus Distinct", "Pick a color", []string{"Red", " Red ", "Blue"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMemoryStore()
			poll, err := s.Create(context.Background(), tc.question, tc.options)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Create() error = %v; want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				return
			}

			if poll.ID == uuid.Nil {
				t.Error("expected a poll id to be assigned")
			}
			if poll.TotalVotes != 0 {
				t.Errorf("TotalVotes = %d; want 0", poll.TotalVotes)
			}
			for _, opt := range poll.Options {
				if opt.Votes != 0 {
					t.Errorf("option %q votes = %d; want 0", opt.Text, opt.Votes)
				}
				if opt.ID == uuid.Nil {
					t.Errorf("option %q has no id", opt.Text)
				}
			}
			if !poll.CreatedAt.Equal(poll.UpdatedAt) {
				t.Error("createdAt and updatedAt should match on creation")
			}
		})
	}
}

func TestCreatePollKeepsOptionOrder(t *testing.T) {
	s := NewMemoryStore()
	texts := []string{"Charlie", "Alpha", "Bravo"}

	poll, err := s.Create(context.Background(), "Call sign order?", texts)
	if err != nil {
		t.Fatalf("Create() returned error %v", err)
	}
	if len(poll.Options) != len(texts) {
		t.Fatalf("got %d options; want %d", len(poll.Options), len(texts))
	}
	for i, opt := range poll.Options {
		if opt.Text != texts[i] {
			t.Errorf("option[%d].Text = %q; want %q", i, opt.Text, texts[i])
		}
	}
}

func TestGetPollNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), uuid.New()); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("Get() error = %v; want %v", err, ErrPollNotFound)
	}
}

func TestGetReturnsIsolatedSnapshot(t *testing.T) {
	s := NewMemoryStore()
	poll, err := s.Create(context.Background(), "Pick a color", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("Create() returned error %v", err)
	}

	snap, err := s.Get(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("Get() returned error %v", err)
	}
	snap.Options[0].Votes = 99
	snap.TotalVotes = 99

	fresh, err := s.Get(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("Get() returned error %v", err)
	}
	if fresh.Options[0].Votes != 0 || fresh.TotalVotes != 0 {
		t.Error("mutating a returned snapshot leaked into the store")
	}
}

func TestApplyCounterDelta(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	poll, err := s.Create(ctx, "Pick a color", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("Create() returned error %v", err)
	}
	red := poll.Options[0].ID

	updated, err := s.ApplyCounterDelta(ctx, poll.ID, red, +1)
	if err != nil {
		t.Fatalf("ApplyCounterDelta() returned error %v", err)
	}
	if updated.Options[0].Votes != 1 {
		t.Errorf("red votes = %d; want 1", updated.Options[0].Votes)
	}
	if updated.TotalVotes != 1 {
		t.Errorf("TotalVotes = %d; want 1", updated.TotalVotes)
	}
	if !updated.UpdatedAt.After(poll.UpdatedAt) && !updated.UpdatedAt.Equal(poll.UpdatedAt) {
		t.Error("updatedAt moved backwards")
	}

	if _, err := s.ApplyCounterDelta(ctx, poll.ID, uuid.New(), +1); !errors.Is(err, ErrOptionNotFound) {
		t.Errorf("foreign option error = %v; want %v", err, ErrOptionNotFound)
	}
	if _, err := s.ApplyCounterDelta(ctx, uuid.New(), red, +1); !errors.Is(err, ErrPollNotFound) {
		t.Errorf("unknown poll error = %v; want %v", err, ErrPollNotFound)
	}
}

func TestRunInVoteTxGroupsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	poll, err := s.Create(ctx, "Pick a color", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("Create() returned error %v", err)
	}
	red := poll.Options[0].ID
	blue := poll.Options[1].ID

	// The writes inside the callback must not deadlock against the lock
	// RunInVoteTx already holds.
	err = s.RunInVoteTx(ctx, func(ctx context.Context) error {
		if _, _, err := s.UpsertVote(ctx, poll.ID, "v1", blue); err != nil {
			return err
		}
		if _, err := s.ApplyCounterDelta(ctx, poll.ID, red, -1); err != nil {
			return err
		}
		_, err := s.ApplyCounterDelta(ctx, poll.ID, blue, +1)
		return err
	})
	if err != nil {
		t.Fatalf("RunInVoteTx() returned error %v", err)
	}

	final, err := s.Get(ctx, poll.ID)
	if err != nil {
		t.Fatalf("Get() returned error %v", err)
	}
	if got := final.Options[0].Votes; got != -1 {
		t.Errorf("red votes = %d; want -1", got)
	}
	if got := final.Options[1].Votes; got != 1 {
		t.Errorf("blue votes = %d; want 1", got)
	}
	if final.TotalVotes != 0 {
		t.Errorf("TotalVotes = %d; want 0", final.TotalVotes)
	}
	if got, ok, _ := s.GetVote(ctx, poll.ID, "v1"); !ok || got != blue {
		t.Errorf("GetVote() = (%v, %v); want (%v, true)", got, ok, blue)
	}
}

func TestVoteLedgerUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pollID := uuid.New()
	optA := uuid.New()
	optB := uuid.New()

	if _, ok, err := s.GetVote(ctx, pollID, "v1"); err != nil || ok {
		t.Fatalf("GetVote() = ok=%v err=%v; want absent", ok, err)
	}

	prev, had, err := s.UpsertVote(ctx, pollID, "v1", optA)
	if err != nil {
		t.Fatalf("UpsertVote() returned error %v", err)
	}
	if had || prev != uuid.Nil {
		t.Errorf("first upsert reported previous vote %v", prev)
	}

	prev, had, err = s.UpsertVote(ctx, pollID, "v1", optB)
	if err != nil {
		t.Fatalf("UpsertVote() returned error %v", err)
	}
	if !had || prev != optA {
		t.Errorf("second upsert previous = (%v, %v); want (%v, true)", prev, had, optA)
	}

	got, ok, err := s.GetVote(ctx, pollID, "v1")
	if err != nil || !ok || got != optB {
		t.Errorf("GetVote() = (%v, %v, %v); want (%v, true, nil)", got, ok, err, optB)
	}

	// Same voter id on another poll is an independent slot.
	if _, ok, _ := s.GetVote(ctx, uuid.New(), "v1"); ok {
		t.Error("vote leaked across polls")
	}
}

func TestListPollsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Create(ctx, "First question", []string{"A", "B"}); err != nil {
		t.Fatalf("Create() returned error %v", err)
	}
	if _, err := s.Create(ctx, "Second question", []string{"A", "B"}); err != nil {
		t.Fatalf("Create() returned error %v", err)
	}

	polls, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() returned error %v", err)
	}
	if len(polls) != 2 {
		t.Fatalf("got %d polls; want 2", len(polls))
	}
	if polls[0].CreatedAt.Before(polls[1].CreatedAt) {
		t.Error("polls are not sorted newest first")
	}
}

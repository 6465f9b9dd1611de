package store

import (
	"context"

	"github.com/ammoru/pulseroom/internal/db"
	"github.com/ammoru/pulseroom/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
    CREATE TABLE IF NOT EXISTS polls (
        id UUID PRIMARY KEY,
        question TEXT NOT NULL,
        total_votes INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS poll_options (
        id UUID PRIMARY KEY,
        poll_id UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
        text TEXT NOT NULL,
        votes INT NOT NULL DEFAULT 0,
        position INT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS votes (
        poll_id UUID NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
        voter_id TEXT NOT NULL,
        option_id UUID NOT NULL REFERENCES poll_options(id),
        voted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (poll_id, voter_id)
    );
`

type txKey struct{}

// PostgresStore persists polls and the vote ledger in Postgres. It is
// selected when a DSN is configured and satisfies TxRunner so vote
// commits run as one transaction.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(ctx context.Context, database *db.DB) (*PostgresStore, error) {
	if _, err := database.Pool().Exec(ctx, schema); err != nil {
		return nil, err
	}
	return &PostgresStore{db: database}, nil
}

// pgxQuerier abstracts the pool and an in-flight vote transaction.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) conn(ctx context.Context) pgxQuerier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.db.Pool()
}

func (s *PostgresStore) RunInVoteTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *PostgresStore) Create(ctx context.Context, question string, optionTexts []string) (model.Poll, error) {
	q, texts, err := ValidatePollInput(question, optionTexts)
	if err != nil {
		return model.Poll{}, err
	}

	pollID := uuid.New()
	err = s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, txErr := tx.Exec(ctx,
			`INSERT INTO polls (id, question) VALUES ($1, $2)`, pollID, q); txErr != nil {
			return txErr
		}
		for i, text := range texts {
			if _, txErr := tx.Exec(ctx,
				`INSERT INTO poll_options (id, poll_id, text, position) VALUES ($1, $2, $3, $4)`,
				uuid.New(), pollID, text, i); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return model.Poll{}, err
	}

	return s.Get(ctx, pollID)
}

func (s *PostgresStore) Get(ctx context.Context, pollID uuid.UUID) (model.Poll, error) {
	conn := s.conn(ctx)

	var poll model.Poll
	err := conn.QueryRow(ctx,
		`SELECT id, question, total_votes, created_at, updated_at FROM polls WHERE id = $1`,
		pollID,
	).Scan(&poll.ID, &poll.Question, &poll.TotalVotes, &poll.CreatedAt, &poll.UpdatedAt)
	if err == pgx.ErrNoRows {
		return model.Poll{}, ErrPollNotFound
	}
	if err != nil {
		return model.Poll{}, err
	}

	rows, err := conn.Query(ctx,
		`SELECT id, text, votes FROM poll_options WHERE poll_id = $1 ORDER BY position`,
		pollID,
	)
	if err != nil {
		return model.Poll{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var opt model.Option
		if err := rows.Scan(&opt.ID, &opt.Text, &opt.Votes); err != nil {
			return model.Poll{}, err
		}
		poll.Options = append(poll.Options, opt)
	}
	return poll, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Poll, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id FROM polls ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	polls := make([]model.Poll, 0, len(ids))
	for _, id := range ids {
		poll, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	return polls, nil
}

func (s *PostgresStore) ApplyCounterDelta(ctx context.Context, pollID, optionID uuid.UUID, delta int) (model.Poll, error) {
	conn := s.conn(ctx)

	tag, err := conn.Exec(ctx,
		`UPDATE poll_options SET votes = votes + $3 WHERE id = $2 AND poll_id = $1`,
		pollID, optionID, delta,
	)
	if err != nil {
		return model.Poll{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Poll{}, ErrOptionNotFound
	}

	// Recompute the total from the option counters rather than trusting
	// an incrementally maintained value.
	tag, err = conn.Exec(ctx, `
        UPDATE polls SET
            total_votes = (SELECT COALESCE(SUM(votes), 0) FROM poll_options WHERE poll_id = $1),
            updated_at = NOW()
        WHERE id = $1`,
		pollID,
	)
	if err != nil {
		return model.Poll{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Poll{}, ErrPollNotFound
	}

	return s.Get(ctx, pollID)
}

func (s *PostgresStore) GetVote(ctx context.Context, pollID uuid.UUID, voterID string) (uuid.UUID, bool, error) {
	var optionID uuid.UUID
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT option_id FROM votes WHERE poll_id = $1 AND voter_id = $2`,
		pollID, voterID,
	).Scan(&optionID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return optionID, true, nil
}

func (s *PostgresStore) UpsertVote(ctx context.Context, pollID uuid.UUID, voterID string, optionID uuid.UUID) (uuid.UUID, bool, error) {
	prev, had, err := s.GetVote(ctx, pollID, voterID)
	if err != nil {
		return uuid.Nil, false, err
	}

	_, err = s.conn(ctx).Exec(ctx, `
        INSERT INTO votes (poll_id, voter_id, option_id, voted_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (poll_id, voter_id)
        DO UPDATE SET option_id = EXCLUDED.option_id, voted_at = NOW()`,
		pollID, voterID, optionID,
	)
	if err != nil {
		return uuid.Nil, false, err
	}
	return prev, had, nil
}

var (
	_ PollStore  = (*PostgresStore)(nil)
	_ VoteLedger = (*PostgresStore)(nil)
	_ TxRunner   = (*PostgresStore)(nil)
)

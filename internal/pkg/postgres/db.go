package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// DB provides transcript operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

// Put inserts a new transcript, version starts at 1
func (db *DB) Put(ctx context.Context, t *persistence.Transcript) error {
	quotes, err := marshalQuotes(t.Quotes)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx, `INSERT INTO transcripts(id, title, speaker, tags, date, duration, status, 
	quotes, transcript_text, media_path, created, version) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)`, t.ID, t.Title, t.Speaker, nonNil(t.Tags), t.Date,
		t.Duration, t.Status, quotes, t.Text, t.MediaPath, t.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("can't insert transcript '%s': %w", t.ID, utils.ErrConflict)
		}
		return fmt.Errorf("can't insert transcript: %w", err)
	}
	return nil
}

// Get loads transcript
func (db *DB) Get(ctx context.Context, id string) (*persistence.Transcript, error) {
	res, err := scanTranscript(db.pool.QueryRow(ctx, `SELECT id, title, speaker, tags, date, duration, status, 
	quotes, transcript_text, media_path, created, version FROM transcripts
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("can't load transcript: %w", err)
	}
	return res, nil
}

// List loads summaries, newest first
func (db *DB) List(ctx context.Context) ([]*persistence.Summary, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, title, speaker, tags, date, duration, status, quotes, created 
	FROM transcripts ORDER BY created DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("can't list transcripts: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Summary{}
	for rows.Next() {
		var s persistence.Summary
		var quotes []byte
		if err := rows.Scan(&s.ID, &s.Title, &s.Speaker, &s.Tags, &s.Date, &s.Duration, &s.Status,
			&quotes, &s.Created); err != nil {
			return nil, fmt.Errorf("can't scan transcript: %w", err)
		}
		if s.Quotes, err = unmarshalQuotes(quotes); err != nil {
			return nil, err
		}
		s.Tags = nonNil(s.Tags)
		res = append(res, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list transcripts: %w", err)
	}
	return res, nil
}

// UpdateQuotes replaces quotes if the record is still at version
func (db *DB) UpdateQuotes(ctx context.Context, id string, quotes []persistence.Quote, version int64) error {
	qs, err := marshalQuotes(quotes)
	if err != nil {
		return err
	}
	tag, err := db.pool.Exec(ctx, `UPDATE transcripts SET 
	quotes = $3, 
	updated = now(),
	version = $2 + 1 
	WHERE id = $1 and version = $2`, id, version, qs)
	if err != nil {
		return fmt.Errorf("can't update quotes: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM transcripts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("can't check transcript: %w", err)
	}
	if !exists {
		return utils.ErrNotFound
	}
	return fmt.Errorf("can't update quotes '%s' at version %d: %w", id, version, utils.ErrConflict)
}

// Delete removes transcript and returns the removed record
func (db *DB) Delete(ctx context.Context, id string) (*persistence.Transcript, error) {
	res, err := scanTranscript(db.pool.QueryRow(ctx, `DELETE FROM transcripts WHERE id = $1 
	RETURNING id, title, speaker, tags, date, duration, status, 
	quotes, transcript_text, media_path, created, version`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNotFound
		}
		return nil, fmt.Errorf("can't delete transcript: %w", err)
	}
	return res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'transcripts')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

func scanTranscript(row pgx.Row) (*persistence.Transcript, error) {
	var res persistence.Transcript
	var quotes []byte
	if err := row.Scan(&res.ID, &res.Title, &res.Speaker, &res.Tags, &res.Date, &res.Duration, &res.Status,
		&quotes, &res.Text, &res.MediaPath, &res.Created, &res.Version); err != nil {
		return nil, err
	}
	var err error
	if res.Quotes, err = unmarshalQuotes(quotes); err != nil {
		return nil, err
	}
	res.Tags = nonNil(res.Tags)
	return &res, nil
}

func marshalQuotes(q []persistence.Quote) ([]byte, error) {
	res, err := json.Marshal(persistence.CopyQuotes(q))
	if err != nil {
		return nil, fmt.Errorf("can't marshal quotes: %w", err)
	}
	return res, nil
}

func unmarshalQuotes(b []byte) ([]persistence.Quote, error) {
	res := []persistence.Quote{}
	if len(b) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("can't unmarshal quotes: %w", err)
	}
	return persistence.CopyQuotes(res), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

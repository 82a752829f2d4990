package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSource = "postgres:faq_entries"

// LoadPostgres reads faq_entries ordered by position. The database is only
// read; a missing table is reported as a *LoadError like any other failure.
func LoadPostgres(ctx context.Context, databaseURL string) (*Base, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &LoadError{Source: postgresSource, Err: fmt.Errorf("connect postgres: %w", err)}
	}
	defer pool.Close()

	rows, err := pool.Query(ctx,
		`SELECT question, answer FROM faq_entries ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, &LoadError{Source: postgresSource, Err: fmt.Errorf("query faq entries: %w", err)}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Question, &e.Answer); err != nil {
			return nil, &LoadError{Source: postgresSource, Err: fmt.Errorf("scan faq row: %w", err)}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: postgresSource, Err: fmt.Errorf("iterate faq rows: %w", err)}
	}

	base, err := NewBase(entries)
	if err != nil {
		return nil, &LoadError{Source: postgresSource, Err: err}
	}
	return base, nil
}

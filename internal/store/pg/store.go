package pg

import (
	"context"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5/pgxpool"

	"smsbridge/internal/store"
)

// Store keeps subscriptions in the subscriptions table (see migrations/001_init.sql).
type Store struct {
	DB       *pgxpool.Pool
	PageSize int32
}

func New(db *pgxpool.Pool, pageSize int32) *Store {
	if pageSize <= 0 {
		pageSize = store.DefaultScanPageSize
	}
	return &Store{DB: db, PageSize: pageSize}
}

// ActiveIdentities walks active rows in user_number order using keyset
// pagination. Each page is one query issued only when the caller asks for
// more, so breaking out early stops the walk.
func (s *Store) ActiveIdentities(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after := ""
		for {
			page, err := s.page(ctx, after)
			if err != nil {
				yield("", err)
				return
			}
			for _, id := range page {
				if !yield(id, nil) {
					return
				}
			}
			if len(page) < int(s.PageSize) {
				return
			}
			after = page[len(page)-1]
		}
	}
}

func (s *Store) page(ctx context.Context, after string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT user_number FROM subscriptions
		WHERE active AND user_number > $1
		ORDER BY user_number
		LIMIT $2
	`, after, s.PageSize)
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, s.PageSize)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriptions: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return out, nil
}

// PutActive upserts the row for identity. Last write wins.
func (s *Store) PutActive(ctx context.Context, identity string, active bool) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO subscriptions (user_number, active, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_number)
		DO UPDATE SET active = EXCLUDED.active, updated_at = now()
	`, identity, active)
	if err != nil {
		return fmt.Errorf("put subscription: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

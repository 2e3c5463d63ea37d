package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"oriyet/internal/domain"
)

type lookupRepository struct {
	DB *sql.DB
}

func NewLookupRepository(db *sql.DB) domain.LookupRepository {
	return &lookupRepository{DB: db}
}

func (r *lookupRepository) ListByDomain(ctx context.Context, d domain.LookupDomain) ([]domain.LookupEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown lookup domain %q", d)
	}
	query := fmt.Sprintf(`SELECT id, code FROM %s ORDER BY id`, d)
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LookupEntry, 0)
	for rows.Next() {
		var e domain.LookupEntry
		if err := rows.Scan(&e.ID, &e.Code); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *lookupRepository) GetByCode(ctx context.Context, d domain.LookupDomain, code string) (*domain.LookupEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown lookup domain %q", d)
	}
	query := fmt.Sprintf(`SELECT id, code FROM %s WHERE code = $1`, d)
	e := &domain.LookupEntry{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, code).Scan(&e.ID, &e.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

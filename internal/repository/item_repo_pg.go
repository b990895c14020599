package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/tourbooking/internal/catalog"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGItemRepository reads destinations and hotels as raw JSON rows so every
// column variant reaches the catalog adapters untouched.
type PGItemRepository struct {
	db *pgxpool.Pool
}

func NewItemRepository(db *pgxpool.Pool) *PGItemRepository {
	return &PGItemRepository{db: db}
}

func tableFor(t domain.ItemType) (string, error) {
	switch t {
	case domain.ItemTypeHotel:
		return "hotels", nil
	case domain.ItemTypeDestination:
		return "destinations", nil
	}
	return "", fmt.Errorf("unknown item type %q", t)
}

func (r *PGItemRepository) FindRecord(ctx context.Context, itemType domain.ItemType, idOrSlug string) (catalog.Record, error) {
	table, err := tableFor(itemType)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = r.db.QueryRow(ctx, `SELECT row_to_json(t) FROM `+table+` t WHERE t.id::text = $1 OR t.slug = $1 LIMIT 1`, idOrSlug).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	var rec catalog.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s row: %w", table, err)
	}
	return rec, nil
}

var _ catalog.ItemSource = (*PGItemRepository)(nil)

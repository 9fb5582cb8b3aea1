package contacts

import (
	"context"
	"fmt"

	"github.com/mzhurin/convo/internal/dbx"
	"github.com/mzhurin/convo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreatePair races on the contacts_owner_peer_idx unique index: concurrent
// calls for the same pair cannot produce duplicate rows, and the returned
// flag reports whether this call inserted the row.
func (r *PostgresRepository) CreatePair(ctx context.Context, contact *models.Contact) (bool, error) {

	query :=
		`INSERT INTO contacts (owner_unique, peer_unique, room_id)
         VALUES ($1, $2, $3)
		 ON CONFLICT (owner_unique, peer_unique) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, contact.OwnerUnique, contact.PeerUnique, contact.RoomID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUnique string) ([]*models.Contact, error) {

	query :=
		`SELECT id, owner_unique, peer_unique, room_id, created_at FROM contacts
		 WHERE owner_unique = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerUnique)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Contact
	for rows.Next() {
		c := &models.Contact{}
		if err := rows.Scan(&c.ID, &c.OwnerUnique, &c.PeerUnique, &c.RoomID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

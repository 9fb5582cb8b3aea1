package messages

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

func (r *PostgresRepository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {

	query :=
		`INSERT INTO messages (sender_unique, recipient_unique, content, delivered)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		message.SenderUnique, message.RecipientUnique, message.Content, message.Delivered).
		Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return message, nil
}

// SelectUndeliveredAndMarkDelivered drains the recipient's pending messages
// in one statement. The UPDATE ... RETURNING runs atomically per call, so a
// message is handed to exactly one concurrent poller.
func (r *PostgresRepository) SelectUndeliveredAndMarkDelivered(ctx context.Context, recipientUnique string) ([]*models.Message, error) {

	query :=
		`UPDATE messages SET delivered = true
		 WHERE recipient_unique = $1 AND NOT delivered
		 RETURNING id, sender_unique, recipient_unique, content, created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientUnique)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.SenderUnique, &m.RecipientUnique, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

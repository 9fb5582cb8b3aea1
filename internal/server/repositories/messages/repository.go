package messages

import (
	"context"

	"github.com/mzhurin/convo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, message *models.Message) (*models.Message, error)
	// SelectUndeliveredAndMarkDelivered atomically flips every undelivered
	// message for the recipient to delivered and returns them. Two
	// concurrent calls partition the pending set between them.
	SelectUndeliveredAndMarkDelivered(ctx context.Context, recipientUnique string) ([]*models.Message, error)
}

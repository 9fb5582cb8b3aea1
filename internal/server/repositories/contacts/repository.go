package contacts

import (
	"context"

	"github.com/mzhurin/convo/internal/server/models"
)

type Repository interface {
	// CreatePair inserts one directed contact row unless it already exists.
	// Returns true when a row was actually inserted. The existence check and
	// insert are a single atomic step backed by the (owner, peer) unique index.
	CreatePair(ctx context.Context, contact *models.Contact) (bool, error)
	ListByOwner(ctx context.Context, ownerUnique string) ([]*models.Contact, error)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/dbx"
	"github.com/mzhurin/convo/internal/server/models"
	"github.com/mzhurin/convo/internal/server/repositories/repomanager"
)

// Seam for tests.
var runInTx = dbx.WithTx

// Sentinel wrappers so callers can tell which participant failed to resolve.
var (
	ErrSenderNotFound    = fmt.Errorf("sender: %w", common.ErrorNotFound)
	ErrRecipientNotFound = fmt.Errorf("recipient: %w", common.ErrorNotFound)
)

// MessageService owns Message entities. Messages are stored undelivered and
// flip to delivered exactly once, when the recipient polls.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// SendResult carries the stored message plus the resolved participants for
// the response body.
type SendResult struct {
	Message   *models.Message
	Sender    *models.User
	Recipient *models.User
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager) *MessageService {
	return &MessageService{db: db, repomanager: m}
}

// Send persists a message from sender to recipient. The message is stored
// with delivered=false; only the recipient's fetch marks it delivered.
//
// The sender is also added to the recipient's contact ledger if not already
// there (one directed row, no notification), so an unsolicited first message
// surfaces in the recipient's contacts.
func (s *MessageService) Send(ctx context.Context, senderUnique, recipientUnique, content string) (*SendResult, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message is required", common.ErrorValidation)
	}

	userRepo := s.repomanager.Users(s.db)

	recipient, err := userRepo.GetByUnique(ctx, recipientUnique)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, common.ErrorInternal
	}

	sender, err := userRepo.GetByUnique(ctx, senderUnique)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, common.ErrorInternal
	}

	message := &models.Message{
		SenderUnique:    sender.Unique,
		RecipientUnique: recipient.Unique,
		Content:         content,
	}

	// The stored message and the recipient's ledger row land together.
	err = runInTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		message, err = s.repomanager.Messages(tx).Create(ctx, message)
		if err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}

		if _, err := s.repomanager.Contacts(tx).CreatePair(ctx, &models.Contact{
			OwnerUnique: recipient.Unique,
			PeerUnique:  sender.Unique,
			RoomID:      ComputeRoomID(sender.Unique, recipient.Unique),
		}); err != nil {
			return fmt.Errorf("error recording sender contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SendResult{Message: message, Sender: sender, Recipient: recipient}, nil
}

// FetchUndeliveredAndMarkDelivered atomically drains the recipient's pending
// messages. Two concurrent polls for the same recipient partition the
// pending set; no message is returned twice.
func (s *MessageService) FetchUndeliveredAndMarkDelivered(ctx context.Context, recipientUnique string) ([]*models.Message, error) {
	if _, err := s.repomanager.Users(s.db).GetByUnique(ctx, recipientUnique); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, common.ErrorInternal
	}

	return s.repomanager.Messages(s.db).SelectUndeliveredAndMarkDelivered(ctx, recipientUnique)
}

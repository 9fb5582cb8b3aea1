package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/logging"
	"github.com/mzhurin/convo/internal/server/models"
	"github.com/mzhurin/convo/internal/server/notify"
	"github.com/mzhurin/convo/internal/server/repositories/repomanager"
)

// roomIDSeparator joins the two sorted participant uniques into a room id.
const roomIDSeparator = "_"

// notifyTimeout bounds the detached dispatch of a contact.added event.
const notifyTimeout = 5 * time.Second

// ComputeRoomID derives the shared conversation identifier for two users.
// Symmetric: ComputeRoomID(a, b) == ComputeRoomID(b, a), so either side
// computes the same value independently.
func ComputeRoomID(uniqueA, uniqueB string) string {
	ids := []string{uniqueA, uniqueB}
	sort.Strings(ids)
	return strings.Join(ids, roomIDSeparator)
}

// ContactService owns the contact ledger: directed (owner, peer) rows that
// come in symmetric pairs sharing one room id.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	dispatcher  notify.Dispatcher
	logger      logging.Logger
}

// AddContactResult reports the outcome of AddMutualContact. CreatedPeerSide
// is true only for the call that actually created the peer-side row, which
// is also the only call that fires a notification.
type AddContactResult struct {
	RoomID          string
	CreatedPeerSide bool
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager, d notify.Dispatcher, l logging.Logger) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		dispatcher:  d,
		logger:      l.With("module", "contact_service"),
	}
}

// AddMutualContact links two users symmetrically. Both directed rows are
// independently idempotent atomic upserts, so the operation is safe to call
// twice and safe to retry after a partial failure; duplicate rows cannot
// occur even under concurrent calls for the same pair.
//
// When the peer-side row is created, the peer is notified about the
// initiator. Dispatch is fire-and-forget: it runs detached from the request
// and a failure is logged, never returned.
func (s *ContactService) AddMutualContact(ctx context.Context, currentUnique, contactUnique string) (*AddContactResult, error) {
	userRepo := s.repomanager.Users(s.db)

	current, err := userRepo.GetByUnique(ctx, currentUnique)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	contact, err := userRepo.GetByUnique(ctx, contactUnique)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	roomID := ComputeRoomID(current.Unique, contact.Unique)
	contactRepo := s.repomanager.Contacts(s.db)

	if _, err := contactRepo.CreatePair(ctx, &models.Contact{
		OwnerUnique: current.Unique,
		PeerUnique:  contact.Unique,
		RoomID:      roomID,
	}); err != nil {
		return nil, fmt.Errorf("error creating owner-side contact: %w", err)
	}

	createdPeerSide, err := contactRepo.CreatePair(ctx, &models.Contact{
		OwnerUnique: contact.Unique,
		PeerUnique:  current.Unique,
		RoomID:      roomID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating peer-side contact: %w", err)
	}

	if createdPeerSide {
		s.notifyPeer(contact.Unique, notify.ContactAddedEvent{
			Username: current.Username,
			Email:    current.Email,
			Unique:   current.Unique,
			RoomID:   roomID,
		})
	}

	return &AddContactResult{RoomID: roomID, CreatedPeerSide: createdPeerSide}, nil
}

// ListContacts returns the ledger rows owned by the given user.
func (s *ContactService) ListContacts(ctx context.Context, ownerUnique string) ([]*models.Contact, error) {
	if _, err := s.repomanager.Users(s.db).GetByUnique(ctx, ownerUnique); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return s.repomanager.Contacts(s.db).ListByOwner(ctx, ownerUnique)
}

// notifyPeer dispatches on its own goroutine with a detached context so the
// HTTP response never waits on the transport.
func (s *ContactService) notifyPeer(targetUnique string, event notify.ContactAddedEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.dispatcher.NotifyContactAdded(ctx, targetUnique, event); err != nil {
			s.logger.Warn(ctx, "contact.added dispatch failed", "target", targetUnique, "error", err.Error())
		}
	}()
}

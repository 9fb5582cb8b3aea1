package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/dbx"
	"github.com/mzhurin/convo/internal/logging"
	"github.com/mzhurin/convo/internal/server/config"
	"github.com/mzhurin/convo/internal/server/models"
	contactsrepo "github.com/mzhurin/convo/internal/server/repositories/contacts"
	messagesrepo "github.com/mzhurin/convo/internal/server/repositories/messages"
	usersrepo "github.com/mzhurin/convo/internal/server/repositories/users"
)

// --- in-memory fakes backing the service tests ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	users []*models.User
	seq   int
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return nil, common.ErrorConflict
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("%d", f.seq)
	u.CreatedAt = time.Now()
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByUsernameAndEmail(ctx context.Context, username, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username && u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByUnique(ctx context.Context, unique string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Unique == unique {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Unique == user.Unique {
			u.Username = user.Username
			u.Email = user.Email
			u.AvatarKey = user.AvatarKey
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeMessagesRepo struct {
	mu       sync.Mutex
	messages []*models.Message
	seq      int
}

func (f *fakeMessagesRepo) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	m.ID = fmt.Sprintf("m-%d", f.seq)
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, m)
	return m, nil
}

// SelectUndeliveredAndMarkDelivered holds the lock for the whole
// select+mark step, mirroring the single-statement atomicity of the
// real UPDATE ... RETURNING.
func (f *fakeMessagesRepo) SelectUndeliveredAndMarkDelivered(ctx context.Context, recipientUnique string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Message
	for _, m := range f.messages {
		if m.RecipientUnique == recipientUnique && !m.Delivered {
			m.Delivered = true
			snapshot := *m
			snapshot.Delivered = false
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

type fakeContactsRepo struct {
	mu    sync.Mutex
	pairs map[string]*models.Contact
	seq   int
}

func newFakeContactsRepo() *fakeContactsRepo {
	return &fakeContactsRepo{pairs: make(map[string]*models.Contact)}
}

func (f *fakeContactsRepo) CreatePair(ctx context.Context, c *models.Contact) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := c.OwnerUnique + "|" + c.PeerUnique
	if _, ok := f.pairs[key]; ok {
		return false, nil
	}
	f.seq++
	c.ID = fmt.Sprintf("c-%d", f.seq)
	c.CreatedAt = time.Now()
	f.pairs[key] = c
	return true, nil
}

func (f *fakeContactsRepo) ListByOwner(ctx context.Context, ownerUnique string) ([]*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Contact
	for _, c := range f.pairs {
		if c.OwnerUnique == ownerUnique {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeContactsRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pairs)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	m *fakeMessagesRepo
	c *fakeContactsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{},
		m: &fakeMessagesRepo{},
		c: newFakeContactsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository { return m.m }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contactsrepo.Repository { return m.c }

// --- shared helpers ---

// stubTx bypasses the real transaction wrapper; the fakes carry no DB handle.
func stubTx(t *testing.T) {
	t.Helper()
	orig := runInTx
	runInTx = func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(context.Context, dbx.DBTX) error) error {
		return fn(ctx, nil)
	}
	t.Cleanup(func() { runInTx = orig })
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: time.Hour,
		BcryptCost:            bcrypt.MinCost,
		S3Bucket:              "avatars",
		S3Region:              "us-east-1",
		S3BaseEndpoint:        "http://127.0.0.1:9000/",
	}
}

func seedUser(t *testing.T, rm *fakeRepoManager, unique, username, email string) *models.User {
	t.Helper()
	u, err := rm.u.Create(context.Background(), &models.User{
		Unique:   unique,
		Username: username,
		Email:    email,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

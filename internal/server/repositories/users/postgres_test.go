package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userColumns() []string {
	return []string{"id", "unique_id", "username", "email", "password_hash", "avatar_key", "is_active"}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(unique_id,\s*username,\s*email,\s*password_hash,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id\s*$`

	rows := sqlmock.NewRows([]string{"id"}).AddRow("42")
	mock.ExpectQuery(q).
		WithArgs("u-1", "alice", "alice@example.com", "hash", true).
		WillReturnRows(rows)

	u := &models.User{Unique: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsActive: true}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("u-1", "alice", "alice@example.com", "hash", true).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Unique: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsActive: true})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userColumns()).
		AddRow("1", "u-1", "alice", "alice@example.com", "hash", "", true)
	mock.ExpectQuery(`SELECT\s+id,\s*unique_id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.Unique != "u-1" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*unique_id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestGetByUsernameAndEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	good := sqlmock.NewRows(userColumns()).
		AddRow("1", "u-1", "alice", "alice@example.com", "hash", "", true)
	mock.ExpectQuery(`SELECT\s+id,\s*unique_id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+AND\s+email\s*=\s*\$2`).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(good)

	got, err := repo.GetByUsernameAndEmail(context.Background(), "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GetByUsernameAndEmail error: %v", err)
	}
	if got.Unique != "u-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUnique_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*unique_id,.*FROM\s+users\s+WHERE\s+unique_id\s*=\s*\$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUnique(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+username\s*=\s*\$1`).
		WithArgs("alice", "alice@example.com", "avatars/1", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProfile(context.Background(), &models.User{
		Unique: "nope", Username: "alice", Email: "alice@example.com", AvatarKey: "avatars/1",
	})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+username\s*=\s*\$1`).
		WithArgs("alice", "alice@example.com", "avatars/1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProfile(context.Background(), &models.User{
		Unique: "u-1", Username: "alice", Email: "alice@example.com", AvatarKey: "avatars/1",
	})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
}

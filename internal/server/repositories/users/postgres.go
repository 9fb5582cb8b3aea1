package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/dbx"
	"github.com/mzhurin/convo/internal/server/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (unique_id, username, email, password_hash, is_active)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Unique, user.Username, user.Email, user.PasswordHash, user.IsActive).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, unique_id, username, email, password_hash, avatar_key, is_active FROM users
		 WHERE username = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByUsernameAndEmail(ctx context.Context, username, email string) (*models.User, error) {
	query :=
		`SELECT id, unique_id, username, email, password_hash, avatar_key, is_active FROM users
		 WHERE username = $1 AND email = $2
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *PostgresRepository) GetByUnique(ctx context.Context, unique string) (*models.User, error) {
	query :=
		`SELECT id, unique_id, username, email, password_hash, avatar_key, is_active FROM users
		 WHERE unique_id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, unique))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET username = $1, email = $2, avatar_key = $3
		 WHERE unique_id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.AvatarKey, user.Unique)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Unique, &user.Username, &user.Email,
		&user.PasswordHash, &user.AvatarKey, &user.IsActive)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

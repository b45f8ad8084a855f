package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"notes-otp/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool DBTX
}

func NewPgUserRepository(pool DBTX) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, dob, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var name interface{}
	if user.Name != "" {
		name = user.Name
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		name,
		user.DOB,
		user.Email,
		user.CreatedAt,
	)
	return translateError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, name, dob, email, created_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT id, name, dob, email, created_at
		FROM users
		WHERE email = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		name *string
		dob  *time.Time
	)
	err := row.Scan(
		&u.ID,
		&name,
		&dob,
		&u.Email,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, err
	}
	if name != nil {
		u.Name = *name
	}
	u.DOB = dob
	return u, nil
}

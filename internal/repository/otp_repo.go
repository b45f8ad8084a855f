package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"notes-otp/internal/domain"
)

// OTPRepository persiste codigos de un solo uso.
type OTPRepository interface {
	// Create inserta el codigo y completa ID y CreatedAt asignados por la base.
	Create(ctx context.Context, otp domain.OTP) (domain.OTP, error)
	// GetLatestByUserID devuelve el codigo con mayor ID del usuario.
	GetLatestByUserID(ctx context.Context, userID string) (domain.OTP, error)
	// DeleteByID reporta si la fila existia al momento del borrado.
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PgOTPRepository struct {
	pool DBTX
}

func NewPgOTPRepository(pool DBTX) *PgOTPRepository {
	return &PgOTPRepository{pool: pool}
}

func (r *PgOTPRepository) Create(ctx context.Context, otp domain.OTP) (domain.OTP, error) {
	const query = `
		INSERT INTO otps (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		otp.UserID,
		otp.Code,
		otp.ExpiresAt,
	).Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		return domain.OTP{}, err
	}
	return otp, nil
}

func (r *PgOTPRepository) GetLatestByUserID(ctx context.Context, userID string) (domain.OTP, error) {
	const query = `
		SELECT id, user_id, code, expires_at, created_at
		FROM otps
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var otp domain.OTP
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OTP{}, err
	}
	return otp, err
}

func (r *PgOTPRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgOTPRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

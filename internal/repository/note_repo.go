package repository

import (
	"context"

	"notes-otp/internal/domain"
)

// NoteRepository define el contrato de persistencia para notas.
// Todas las operaciones de lectura y borrado filtran por dueño.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) error
	ListByUserID(ctx context.Context, userID string) ([]domain.Note, error)
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error)
}

type PgNoteRepository struct {
	pool DBTX
}

func NewPgNoteRepository(pool DBTX) *PgNoteRepository {
	return &PgNoteRepository{pool: pool}
}

func (r *PgNoteRepository) Create(ctx context.Context, note domain.Note) error {
	const query = `
		INSERT INTO notes (id, user_id, heading, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		note.ID,
		note.UserID,
		note.Heading,
		note.Content,
		note.CreatedAt,
	)
	return err
}

func (r *PgNoteRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Note, error) {
	const query = `
		SELECT id, user_id, heading, content, created_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var note domain.Note
		err = rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Heading,
			&note.Content,
			&note.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}

func (r *PgNoteRepository) DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	const query = `
		DELETE FROM notes
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

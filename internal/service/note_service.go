package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"notes-otp/internal/domain"
	"notes-otp/internal/repository"
)

var (
	ErrNoteFieldsRequired = errors.New("heading and content are required")
	ErrNoteNotFound       = errors.New("note not found")
)

// NoteService aplica las reglas de propiedad sobre las notas.
type NoteService struct {
	notes repository.NoteRepository
	now   func() time.Time
}

func NewNoteService(notes repository.NoteRepository) *NoteService {
	return &NoteService{
		notes: notes,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *NoteService) Create(ctx context.Context, ownerID, heading, content string) (domain.Note, error) {
	if strings.TrimSpace(heading) == "" || strings.TrimSpace(content) == "" {
		return domain.Note{}, ErrNoteFieldsRequired
	}
	note := domain.Note{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Heading:   heading,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// ListByOwner devuelve las notas del dueño, la mas reciente primero.
func (s *NoteService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Note, error) {
	return s.notes.ListByUserID(ctx, ownerID)
}

// Delete borra la nota solo si pertenece a ownerID; en otro caso responde ErrNoteNotFound.
func (s *NoteService) Delete(ctx context.Context, ownerID, noteID string) error {
	if _, err := uuid.Parse(noteID); err != nil {
		return ErrNoteNotFound
	}
	deleted, err := s.notes.DeleteByIDAndUserID(ctx, noteID, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNoteNotFound
	}
	return nil
}

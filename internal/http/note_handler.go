package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-otp/internal/service"
)

// NoteHandler expone el CRUD de notas del usuario autenticado.
type NoteHandler struct {
	logger   *zap.Logger
	noteServ *service.NoteService
}

func NewNoteHandler(logger *zap.Logger, noteServ *service.NoteService) *NoteHandler {
	return &NoteHandler{
		logger:   logger,
		noteServ: noteServ,
	}
}

// CreateNote maneja POST /notes.
func (h *NoteHandler) CreateNote(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Heading string `json:"heading"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.noteServ.Create(c.Request.Context(), claims.UserID, req.Heading, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrNoteFieldsRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("create note failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create note"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Note added successfully", "note": note})
}

// ListNotes maneja GET /notes.
func (h *NoteHandler) ListNotes(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	notes, err := h.noteServ.ListByOwner(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list notes failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// DeleteNote maneja DELETE /notes/:id.
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	err := h.noteServ.Delete(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("delete note failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete note"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully"})
}

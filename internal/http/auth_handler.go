package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-otp/internal/domain"
	"notes-otp/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	jwtServ  *service.JWTService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
		jwtServ:  jwtServ,
	}
}

type userResponse struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	DOB   *string `json:"dob"`
}

func newUserResponse(user domain.User) userResponse {
	resp := userResponse{ID: user.ID, Email: user.Email}
	if user.Name != "" {
		name := user.Name
		resp.Name = &name
	}
	if user.DOB != nil {
		dob := user.DOB.Format("2006-01-02")
		resp.DOB = &dob
	}
	return resp
}

// emailField recorta espacios al decodificar, antes de que corra el validador de gin.
type emailField string

func (e *emailField) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = emailField(strings.TrimSpace(raw))
	return nil
}

type emailRequest struct {
	Email emailField `json:"email" binding:"omitempty,email"`
}

// Signup maneja POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name  string     `json:"name"`
		DOB   string     `json:"dob"`
		Email emailField `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.Signup(c.Request.Context(), service.SignupInput{
		Name:  req.Name,
		DOB:   req.DOB,
		Email: string(req.Email),
	})
	if err != nil {
		h.writeError(c, "signup", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful. OTP sent to email for verification.",
		"user":    newUserResponse(user),
	})
}

// SignIn maneja POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signin request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.SignIn(c.Request.Context(), string(req.Email)); err != nil {
		h.writeError(c, "signin", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully. Please verify to login."})
}

// VerifySignIn maneja POST /auth/verify-signin.
func (h *AuthHandler) VerifySignIn(c *gin.Context) {
	var req struct {
		Email emailField `json:"email" binding:"omitempty,email"`
		OTP   string     `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify signin request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.VerifySignIn(c.Request.Context(), string(req.Email), req.OTP)
	if err != nil {
		h.writeError(c, "verify otp", err)
		return
	}

	if h.jwtServ == nil {
		h.logger.Error("jwt issue failed", zap.Error(errors.New("jwt not configured")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	session, err := h.jwtServ.Issue(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Sign-in successful",
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       newUserResponse(user),
	})
}

// RequestOTP maneja POST /auth/request-otp.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.authServ.RequestOTP(c.Request.Context(), string(req.Email)); err != nil {
		h.writeError(c, "request otp", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

// ResendOTP maneja POST /auth/resend-otp.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.ResendOTP(c.Request.Context(), string(req.Email)); err != nil {
		h.writeError(c, "resend otp", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A new OTP has been sent successfully."})
}

func (h *AuthHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOTPNotFound),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrOTPInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmailSendFailure):
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send otp email"})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
	}
}

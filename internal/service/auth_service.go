package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notes-otp/internal/domain"
	"notes-otp/internal/email"
	"notes-otp/internal/repository"
)

// AuthService coordina el alta de cuentas y el inicio de sesion por OTP.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	otps        *OTPService
	emailSender email.Sender
	now         func() time.Time
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, otps *OTPService, emailSender email.Sender) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		otps:        otps,
		emailSender: emailSender,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type SignupInput struct {
	Name  string
	DOB   string
	Email string
}

var (
	ErrSignupFieldsRequired = errors.New("name, dob and email are required")
	ErrEmailRequired        = errors.New("email is required")
	ErrOTPFieldsRequired    = errors.New("email and otp are required")
	ErrInvalidDOB           = errors.New("invalid dob format")
	ErrUserExists           = errors.New("user already exists, please sign in")
	ErrUserNotFound         = errors.New("user not found, please sign up first")
	ErrEmailSendFailure     = errors.New("email send failed")
)

// IsValidationError reporta si err proviene de datos de entrada incompletos o mal formados.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSignupFieldsRequired) ||
		errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrOTPFieldsRequired) ||
		errors.Is(err, ErrInvalidDOB) ||
		errors.Is(err, ErrNoteFieldsRequired)
}

// Signup crea una cuenta completa y envia el primer codigo de verificacion.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr := normalizeEmail(input.Email)
	dobRaw := strings.TrimSpace(input.DOB)
	if name == "" || emailAddr == "" || dobRaw == "" {
		return domain.User{}, ErrSignupFieldsRequired
	}
	dob, err := parseDOB(dobRaw)
	if err != nil {
		return domain.User{}, err
	}

	_, err = s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, ErrUserExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		DOB:       &dob,
		Email:     emailAddr,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}

	if err := s.issueAndSend(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SignIn envia un codigo a una cuenta existente.
func (s *AuthService) SignIn(ctx context.Context, emailAddr string) error {
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	return s.issueAndSend(ctx, user)
}

// VerifySignIn consume el codigo y devuelve el usuario autenticado.
func (s *AuthService) VerifySignIn(ctx context.Context, emailAddr, code string) (domain.User, error) {
	if normalizeEmail(emailAddr) == "" || code == "" {
		return domain.User{}, ErrOTPFieldsRequired
	}
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.otps.Verify(ctx, user.ID, code); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// RequestOTP envia un codigo creando una cuenta minima si el email no existe.
// Esta via y Signup pueden producir registros distintos para el mismo email;
// no se fusionan datos entre ambas.
func (s *AuthService) RequestOTP(ctx context.Context, emailAddr string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
		user, err = s.provision(ctx, emailAddr)
		if err != nil {
			return domain.User{}, err
		}
	}

	if err := s.issueAndSend(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ResendOTP invalida los codigos previos y envia uno nuevo.
func (s *AuthService) ResendOTP(ctx context.Context, emailAddr string) error {
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if err := s.otps.InvalidateAll(ctx, user.ID); err != nil {
		return err
	}
	return s.issueAndSend(ctx, user)
}

func (s *AuthService) provision(ctx context.Context, emailAddr string) (domain.User, error) {
	user := domain.User{
		ID:        uuid.NewString(),
		Email:     emailAddr,
		CreatedAt: s.now(),
	}
	err := s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, repository.ErrDuplicate) {
		// Otra request creo la cuenta en paralelo.
		return s.users.GetByEmail(ctx, emailAddr)
	}
	return domain.User{}, err
}

func (s *AuthService) findByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrEmailRequired
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) issueAndSend(ctx context.Context, user domain.User) error {
	otp, err := s.otps.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendOTP(ctx, user.Email, otp.Code, otp.ExpiresAt); err != nil {
		s.logger.Warn("send otp failed", zap.Error(err), zap.String("email", user.Email))
		return ErrEmailSendFailure
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var dobLayouts = []string{"2006-01-02", time.RFC3339}

func parseDOB(raw string) (time.Time, error) {
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDOB
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notes-otp/internal/domain"
	"notes-otp/internal/repository"
)

var (
	ErrOTPNotFound = errors.New("no otp found, please request a new one")
	ErrOTPExpired  = errors.New("otp expired, please request a new one")
	ErrOTPInvalid  = errors.New("invalid otp")
)

const (
	defaultOTPTTL = 5 * time.Minute
	otpMin        = 100000
	otpSpan       = 900000
)

// OTPConfig ajusta el ciclo de vida de los codigos.
type OTPConfig struct {
	TTL time.Duration
	// SweepOnIssue borra los codigos vencidos de todos los usuarios antes de emitir uno nuevo.
	SweepOnIssue bool
}

// OTPService emite, valida e invalida codigos de un solo uso.
type OTPService struct {
	logger       *zap.Logger
	otps         repository.OTPRepository
	locker       OTPLocker
	ttl          time.Duration
	sweepOnIssue bool
	now          func() time.Time
	generate     func() (string, error)
}

func NewOTPService(logger *zap.Logger, otps repository.OTPRepository, locker OTPLocker, cfg OTPConfig) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewMemoryOTPLocker()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultOTPTTL
	}
	return &OTPService{
		logger:       logger,
		otps:         otps,
		locker:       locker,
		ttl:          cfg.TTL,
		sweepOnIssue: cfg.SweepOnIssue,
		now:          func() time.Time { return time.Now().UTC() },
		generate:     generateOTPCode,
	}
}

// Issue genera y persiste un codigo nuevo para el usuario.
func (s *OTPService) Issue(ctx context.Context, userID string) (domain.OTP, error) {
	now := s.now()
	if s.sweepOnIssue {
		if _, err := s.otps.DeleteExpired(ctx, now); err != nil {
			s.logger.Warn("otp sweep before issue failed", zap.Error(err))
		}
	}

	code, err := s.generate()
	if err != nil {
		return domain.OTP{}, fmt.Errorf("generate otp: %w", err)
	}

	return s.otps.Create(ctx, domain.OTP{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
	})
}

// InvalidateAll borra todos los codigos del usuario, vigentes o no.
func (s *OTPService) InvalidateAll(ctx context.Context, userID string) error {
	_, err := s.otps.DeleteByUserID(ctx, userID)
	return err
}

// Verify valida el codigo mas reciente del usuario y lo consume.
// El orden de los chequeos es: existencia, vencimiento, coincidencia y borrado.
// Un codigo vencido no se borra aca; lo elimina el barrido.
func (s *OTPService) Verify(ctx context.Context, userID, code string) error {
	unlock, err := s.locker.Lock(ctx, otpLockKey(userID))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("otp lock unavailable", zap.Error(err), zap.String("user_id", userID))
		unlock = func() {}
	}
	defer unlock()

	otp, err := s.otps.GetLatestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOTPNotFound
		}
		return err
	}

	if otp.IsExpired(s.now()) {
		return ErrOTPExpired
	}
	if otp.Code != code {
		return ErrOTPInvalid
	}

	deleted, err := s.otps.DeleteByID(ctx, otp.ID)
	if err != nil {
		return err
	}
	if !deleted {
		// Otro verificador consumio el codigo entre la lectura y el borrado.
		return ErrOTPNotFound
	}
	return nil
}

func otpLockKey(userID string) string {
	return "otp:verify:" + userID
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

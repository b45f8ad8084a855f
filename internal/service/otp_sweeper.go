package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiredOTPDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OTPSweeper elimina periodicamente los codigos vencidos, fuera del camino de las requests.
type OTPSweeper struct {
	logger   *zap.Logger
	otps     expiredOTPDeleter
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewOTPSweeper(logger *zap.Logger, otps expiredOTPDeleter, interval time.Duration) *OTPSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPSweeper{
		logger:   logger,
		otps:     otps,
		interval: interval,
		timeout:  10 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run bloquea hasta que ctx se cancele. Con intervalo no positivo retorna de inmediato.
func (s *OTPSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("otp sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce borra los codigos con expires_at anterior al instante actual.
func (s *OTPSweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.otps.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("otp sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired otps removed", zap.Int64("count", n))
	}
	return n, nil
}

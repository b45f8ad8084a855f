package domain

import "time"

// OTP es un codigo de un solo uso asociado a un usuario.
// ID es secuencial: el mayor ID de un usuario es el codigo vigente.
type OTP struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reporta si el codigo ya no es valido en el instante now.
func (o OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

package domain

import "time"

// User representa una cuenta identificada por email.
// Name y DOB solo se completan en el alta explicita.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	DOB       *time.Time `json:"dob,omitempty"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
}

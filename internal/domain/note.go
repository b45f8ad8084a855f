package domain

import "time"

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Heading   string    `json:"heading"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

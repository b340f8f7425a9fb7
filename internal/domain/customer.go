package domain

import "time"

// Customer is the person who raises tickets and chats with support.
// Guest customers created by the chat bot have no password.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

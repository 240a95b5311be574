package domain

import "time"

// Participant is a connection's membership record inside one room.
type Participant struct {
	ConnectionID string    `db:"connection_id"`
	UserID       string    `db:"user_id"`
	JoinedAt     time.Time `db:"joined_at"`
}

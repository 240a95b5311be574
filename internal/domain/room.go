package domain

import "time"

type Room struct {
	ID           string        `db:"room_id"`
	Participants []Participant `db:"participants"`
	Capacity     int           `db:"capacity"` // 0 = unlimited
	IsActive     bool          `db:"is_active"`
	Version      int64         `db:"version"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Participants = append([]Participant(nil), r.Participants...)
	return &out
}

func (r *Room) Full() bool {
	return r.Capacity > 0 && len(r.Participants) >= r.Capacity
}

func (r *Room) IndexOf(connectionID string) int {
	for i, p := range r.Participants {
		if p.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

func (r *Room) Has(connectionID string) bool {
	return r.IndexOf(connectionID) >= 0
}

// Remove drops the participant and reports whether anything changed.
func (r *Room) Remove(connectionID string) bool {
	i := r.IndexOf(connectionID)
	if i < 0 {
		return false
	}
	r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
	return true
}

// ConnectionIDs lists member connections, optionally skipping one.
func (r *Room) ConnectionIDs(except string) []string {
	out := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.ConnectionID == except {
			continue
		}
		out = append(out, p.ConnectionID)
	}
	return out
}

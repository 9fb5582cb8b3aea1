package models

import "time"

// Contact is one directed half of a mutual contact link. A mutual link is
// two rows, (owner=A, peer=B) and (owner=B, peer=A), both carrying the same
// RoomID. At most one row exists per (owner, peer) pair.
type Contact struct {
	ID          string
	OwnerUnique string
	PeerUnique  string
	RoomID      string
	CreatedAt   time.Time
}

package models

import "time"

// Message is a direct message between two users. Sender and recipient are
// referenced by their uniques, not by row ids. Delivered flips false→true
// exactly once, when the recipient drains its pending messages.
type Message struct {
	ID              string
	SenderUnique    string
	RecipientUnique string
	Content         string
	Delivered       bool
	CreatedAt       time.Time
}

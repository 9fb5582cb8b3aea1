// Package notify delivers real-time events to a user's live session channel.
// Delivery is best-effort and at-most-once: if the target has no live
// session the event is lost, and senders never wait on the outcome.
package notify

import "context"

// EventContactAdded is the event type fanned out to the non-initiating peer
// when a mutual contact link is created.
const EventContactAdded = "contact.added"

// ContactAddedEvent identifies the initiator of a contact link. It is
// delivered on the peer's channel.
type ContactAddedEvent struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Unique   string `json:"unique"`
	RoomID   string `json:"room_id"`
}

// Envelope is the wire form of a dispatched event.
type Envelope struct {
	Type    string            `json:"type"`
	Message ContactAddedEvent `json:"message"`
}

// Dispatcher publishes events to per-user channels.
type Dispatcher interface {
	NotifyContactAdded(ctx context.Context, targetUnique string, event ContactAddedEvent) error
}

// ChannelForUser is the pub/sub channel name carrying events for one user.
func ChannelForUser(unique string) string {
	return "user:" + unique
}

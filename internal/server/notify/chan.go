package notify

import "context"

// Dispatched pairs a target with the event sent to it.
type Dispatched struct {
	TargetUnique string
	Event        ContactAddedEvent
}

// ChanDispatcher delivers events onto an in-process channel. It backs tests
// and single-instance deployments that run without Redis.
type ChanDispatcher struct {
	Events chan Dispatched
}

func NewChanDispatcher(buffer int) *ChanDispatcher {
	return &ChanDispatcher{Events: make(chan Dispatched, buffer)}
}

// NotifyContactAdded drops the event when the channel is full rather than
// blocking the caller. Lost events are within the at-most-once contract.
func (d *ChanDispatcher) NotifyContactAdded(ctx context.Context, targetUnique string, event ContactAddedEvent) error {
	select {
	case d.Events <- Dispatched{TargetUnique: targetUnique, Event: event}:
	default:
	}
	return nil
}

package leave

import "context"

type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventApproved  EventType = "approved"
	EventDenied    EventType = "denied"
	EventCancelled EventType = "cancelled"
)

// Event is published after a transition has committed.
type Event struct {
	Type    EventType
	Request LeaveRequest
	ActorID string
	Notes   string
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Publishers fans an event out to every publisher in order.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, event Event) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, event)
		}
	}
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) { f(ctx, event) }

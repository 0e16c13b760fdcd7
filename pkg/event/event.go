// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Mission event types
const (
	StatusChanged    Type = "status_changed"
	StageAdvanced    Type = "stage_advanced"
	MissionSucceeded Type = "mission_succeeded"
	MissionFailed    Type = "mission_failed"
	BurnStarted      Type = "burn_started"
	BurnStopped      Type = "burn_stopped"
	BurnFired        Type = "burn_fired"
	PerigeeReached   Type = "perigee_reached"
	AlignmentLocked  Type = "alignment_lockout"
	BurnUndone       Type = "burn_undone"
	MissionReset     Type = "mission_reset"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it from the bus.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run synchronously
// on the publisher's goroutine, in subscription order.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	sub := &Subscription{ID: id, Type: eventType}
	sub.Cancel = func() { b.Unsubscribe(sub) }
	return sub
}

// SubscribeAll registers one handler for several event types.
func (b *Bus) SubscribeAll(handler Handler, types ...Type) []*Subscription {
	subs := make([]*Subscription, 0, len(types))
	for _, t := range types {
		subs = append(subs, b.Subscribe(t, handler))
	}
	return subs
}

// Unsubscribe removes a previously registered handler
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[sub.Type]
	for i, s := range handlers {
		if s.id == sub.ID {
			b.handlers[sub.Type] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]subscriber(nil), b.handlers[event.GetType()]...)
	b.mu.RUnlock()

	for _, s := range handlers {
		s.handler(event)
	}
}

// Specific event implementations

// StatusEvent reports a mission status transition.
type StatusEvent struct {
	BaseEvent
	Mission string
	From    string
	To      string
}

// NewStatusEvent creates a new status transition event
func NewStatusEvent(source interface{}, mission, from, to string) *StatusEvent {
	return &StatusEvent{
		BaseEvent: BaseEvent{EventType: StatusChanged, Source: source},
		Mission:   mission,
		From:      from,
		To:        to,
	}
}

// StageEvent reports a stage index change or mission completion.
type StageEvent struct {
	BaseEvent
	Mission    string
	StageIndex int
	Label      string
	Metric     float64
}

// NewStageEvent creates a new stage event
func NewStageEvent(eventType Type, source interface{}, mission string, index int, label string, metric float64) *StageEvent {
	return &StageEvent{
		BaseEvent:  BaseEvent{EventType: eventType, Source: source},
		Mission:    mission,
		StageIndex: index,
		Label:      label,
		Metric:     metric,
	}
}

// FailureEvent reports a terminal mission failure.
type FailureEvent struct {
	BaseEvent
	Mission string
	Label   string
	Cause   string
}

// NewFailureEvent creates a new failure event
func NewFailureEvent(source interface{}, mission, label, cause string) *FailureEvent {
	return &FailureEvent{
		BaseEvent: BaseEvent{EventType: MissionFailed, Source: source},
		Mission:   mission,
		Label:     label,
		Cause:     cause,
	}
}

// BurnEvent reports burn activity: hold start/stop or a discrete fire.
type BurnEvent struct {
	BaseEvent
	Mission  string
	Strength string
	InWindow bool
	FuelCost float64
	Fuel     float64
}

// NewBurnEvent creates a new burn event
func NewBurnEvent(eventType Type, source interface{}, mission, strength string, inWindow bool, cost, fuel float64) *BurnEvent {
	return &BurnEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		Mission:   mission,
		Strength:  strength,
		InWindow:  inWindow,
		FuelCost:  cost,
		Fuel:      fuel,
	}
}

package events

import (
	"context"
	"sync"

	"noblechain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserRegistered        EventType = "user_registered"
	EventTypeUserLoggedIn          EventType = "user_logged_in"
	EventTypeFirstLogin            EventType = "first_login"
	EventTypeTransferCompleted     EventType = "transfer_completed"
	EventTypeTransactionRecorded   EventType = "transaction_recorded"
	EventTypePinChanged            EventType = "pin_changed"
	EventTypePinVerificationFailed EventType = "pin_verification_failed"
	EventTypeNotificationAdded     EventType = "notification_added"
	EventTypeMarketUpdated         EventType = "market_updated"
)

// AllEventTypes lists every event type, used by sinks that forward everything
var AllEventTypes = []EventType{
	EventTypeUserRegistered,
	EventTypeUserLoggedIn,
	EventTypeFirstLogin,
	EventTypeTransferCompleted,
	EventTypeTransactionRecorded,
	EventTypePinChanged,
	EventTypePinVerificationFailed,
	EventTypeNotificationAdded,
	EventTypeMarketUpdated,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserRegisteredEvent is emitted after a successful signup
type UserRegisteredEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (e UserRegisteredEvent) Type() EventType {
	return EventTypeUserRegistered
}

// UserLoggedInEvent is emitted after every successful authentication
type UserLoggedInEvent struct {
	UserID string `json:"user_id"`
	Device string `json:"device"`
}

func (e UserLoggedInEvent) Type() EventType {
	return EventTypeUserLoggedIn
}

// FirstLoginEvent is emitted exactly once per account, on its first successful login
type FirstLoginEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (e FirstLoginEvent) Type() EventType {
	return EventTypeFirstLogin
}

// TransferCompletedEvent describes a committed peer-to-peer transfer
type TransferCompletedEvent struct {
	SenderID          string          `json:"sender_id"`
	SenderUsername    string          `json:"sender_username"`
	RecipientID       string          `json:"recipient_id"`
	RecipientUsername string          `json:"recipient_username"`
	Asset             string          `json:"asset"`
	Amount            decimal.Decimal `json:"amount"`
	OutgoingTxID      string          `json:"outgoing_tx_id"`
	IncomingTxID      string          `json:"incoming_tx_id"`
}

func (e TransferCompletedEvent) Type() EventType {
	return EventTypeTransferCompleted
}

// TransactionRecordedEvent is emitted for every transaction log append.
// FromTransfer marks the legs of a transfer, which are announced by TransferCompletedEvent.
type TransactionRecordedEvent struct {
	Transaction  models.Transaction `json:"transaction"`
	FromTransfer bool               `json:"from_transfer"`
}

func (e TransactionRecordedEvent) Type() EventType {
	return EventTypeTransactionRecorded
}

// PinChangedEvent is emitted when a transfer PIN is set
type PinChangedEvent struct {
	UserID string `json:"user_id"`
}

func (e PinChangedEvent) Type() EventType {
	return EventTypePinChanged
}

// PinVerificationFailedEvent is emitted when a PIN check does not match
type PinVerificationFailedEvent struct {
	UserID string `json:"user_id"`
}

func (e PinVerificationFailedEvent) Type() EventType {
	return EventTypePinVerificationFailed
}

// NotificationAddedEvent announces a stored notification
type NotificationAddedEvent struct {
	Notification models.Notification `json:"notification"`
}

func (e NotificationAddedEvent) Type() EventType {
	return EventTypeNotificationAdded
}

// MarketUpdatedEvent announces that market prices changed
type MarketUpdatedEvent struct {
	Assets []models.MarketAsset `json:"assets"`
}

func (e MarketUpdatedEvent) Type() EventType {
	return EventTypeMarketUpdated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds one handler to every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers.
// Handlers run on their own goroutines; a panicking handler is logged and
// never reaches the emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Publish emits immediately; it lets the bus stand in wherever a Publisher is expected
func (b *Bus) Publish(e Event) {
	b.Emit(context.Background(), e)
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus once the work commits.
type TransactionalBus struct {
	real    *Bus
	mu      sync.Mutex
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	log.WithField("pendingEventCount", len(pending)).Debug("Flushing pending events to main event bus")

	// Handlers outlive the unit of work, so they get a fresh context
	eventCtx := context.Background()
	for _, ev := range pending {
		b.real.Emit(eventCtx, ev)
	}
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

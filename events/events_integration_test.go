package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan TransferCompletedEvent, 1)
	mainBus.Subscribe(EventTypeTransferCompleted, func(ctx context.Context, event Event) {
		if transfer, ok := event.(TransferCompletedEvent); ok {
			eventReceived <- transfer
		} else {
			t.Errorf("Expected TransferCompletedEvent, got %T", event)
		}
	})

	testEvent := TransferCompletedEvent{
		SenderID:          "u1",
		SenderUsername:    "alice",
		RecipientID:       "u2",
		RecipientUsername: "bob",
		Asset:             "USD",
		Amount:            decimal.NewFromInt(40),
	}

	// Publish event to transactional bus (simulating service layer)
	transactionalBus.Publish(testEvent)

	// Nothing is delivered before commit
	select {
	case <-eventReceived:
		t.Fatal("Event delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case received := <-eventReceived:
		assert.Equal(t, "bob", received.RecipientUsername)
		assert.True(t, received.Amount.Equal(decimal.NewFromInt(40)))
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	userIDs := make(map[string]bool)
	mainBus.Subscribe(EventTypeUserRegistered, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		userIDs[event.(UserRegisteredEvent).UserID] = true
	})

	for _, id := range []string{"u1", "u2", "u3"} {
		transactionalBus.Publish(UserRegisteredEvent{UserID: id})
	}

	assert.NoError(t, transactionalBus.Flush(context.Background()))
	mainBus.Wait()

	// Order may vary due to goroutines
	assert.Equal(t, map[string]bool{"u1": true, "u2": true, "u3": true}, userIDs)
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var delivered atomic.Int32
	mainBus.Subscribe(EventTypePinChanged, func(ctx context.Context, event Event) {
		delivered.Add(1)
	})

	transactionalBus.Publish(PinChangedEvent{UserID: "u1"})

	// Discard instead of flush (simulating transaction rollback)
	transactionalBus.Discard()
	assert.NoError(t, transactionalBus.Flush(context.Background()))
	mainBus.Wait()

	assert.Equal(t, int32(0), delivered.Load())
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()

	var delivered atomic.Int32
	bus.Subscribe(EventTypeFirstLogin, func(ctx context.Context, event Event) {
		panic("subscriber blew up")
	})
	bus.Subscribe(EventTypeFirstLogin, func(ctx context.Context, event Event) {
		delivered.Add(1)
	})

	assert.NotPanics(t, func() {
		bus.Publish(FirstLoginEvent{UserID: "u1"})
		bus.Wait()
	})
	assert.Equal(t, int32(1), delivered.Load())
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := map[EventType]int{}
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[event.Type()]++
	})

	bus.Publish(MarketUpdatedEvent{})
	bus.Publish(NotificationAddedEvent{})
	bus.Publish(PinVerificationFailedEvent{UserID: "u1"})
	bus.Wait()

	assert.Equal(t, map[EventType]int{
		EventTypeMarketUpdated:         1,
		EventTypeNotificationAdded:     1,
		EventTypePinVerificationFailed: 1,
	}, seen)
}

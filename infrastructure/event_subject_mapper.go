package infrastructure

import (
	"fmt"

	"noblechain/events"
)

// SubjectPrefix namespaces every forwarded event subject
const SubjectPrefix = "noblechain"

// EventSubjectMapper maps domain events to message bus subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeUserRegistered:
		return SubjectPrefix + ".users.registered"
	case events.EventTypeUserLoggedIn:
		return SubjectPrefix + ".users.logged_in"
	case events.EventTypeFirstLogin:
		return SubjectPrefix + ".users.first_login"
	case events.EventTypeTransferCompleted:
		return SubjectPrefix + ".ledger.transfer_completed"
	case events.EventTypeTransactionRecorded:
		return SubjectPrefix + ".ledger.transaction_recorded"
	case events.EventTypePinChanged:
		return SubjectPrefix + ".security.pin_changed"
	case events.EventTypePinVerificationFailed:
		return SubjectPrefix + ".security.pin_failed"
	case events.EventTypeNotificationAdded:
		return SubjectPrefix + ".notifications.added"
	case events.EventTypeMarketUpdated:
		return SubjectPrefix + ".market.updated"
	default:
		return fmt.Sprintf("%s.unknown.%s", SubjectPrefix, event.Type())
	}
}

// GetAllSubjects returns every subject this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		subjects = append(subjects, m.MapEventToSubject(typedEvent(t)))
	}
	return subjects
}

// typedEvent lets the mapper be asked about a type without a concrete event
type typedEvent events.EventType

func (e typedEvent) Type() events.EventType { return events.EventType(e) }

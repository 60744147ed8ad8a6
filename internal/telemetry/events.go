package telemetry

import "time"

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(ev any)
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(any) {}

// ContactEventType names a change to the contact list.
type ContactEventType string

const (
	ContactCreated   ContactEventType = "contact.created"
	ContactUpdated   ContactEventType = "contact.updated"
	ContactDeleted   ContactEventType = "contact.deleted"
	ContactMerged    ContactEventType = "contact.merged"
	ContactsImported ContactEventType = "contacts.imported"
)

// ContactEvent is emitted after a change has been written to the store.
type ContactEvent struct {
	Timestamp time.Time        `json:"@timestamp"`
	Type      ContactEventType `json:"type"`
	ContactID string           `json:"contact_id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Count     int              `json:"count,omitempty"`
}

// RequestAuditEvent describes one served HTTP request.
type RequestAuditEvent struct {
	Timestamp  time.Time `json:"@timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Bytes      int       `json:"bytes"`
	DurationMs int64     `json:"duration_ms"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

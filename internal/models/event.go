package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventPlanned    EventStatus = "planned"
	EventInProgress EventStatus = "in_progress"
	EventCompleted  EventStatus = "completed"
	EventCancelled  EventStatus = "cancelled"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventPlanned, EventInProgress, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// Event is a managed event scoped to a region.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Region      Region      `json:"region"`
	EventDate   time.Time   `json:"event_date"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	Status      EventStatus `json:"status"`
	ManagerID   *uuid.UUID  `json:"manager_id,omitempty"`
	Location    string      `json:"location"`
	CreatedBy   *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Manager is joined in on detail views, nil elsewhere.
	Manager *ProfilePublic `json:"manager,omitempty"`
}

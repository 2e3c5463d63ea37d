package domain

import (
	"context"
	"time"
)

// Event is a scheduled activity users can register for.
// swagger:model Event
type Event struct {
	ID                   string             `json:"id"`
	Title                string             `json:"title"`
	Slug                 string             `json:"slug"`
	Description          *string            `json:"description,omitempty"`
	StartDate            time.Time          `json:"start_date"`
	EndDate              time.Time          `json:"end_date"`
	RegistrationDeadline *time.Time         `json:"registration_deadline,omitempty"`
	MaxParticipants      *int               `json:"max_participants,omitempty"`
	CurrentParticipants  int                `json:"current_participants"`
	IsFree               bool               `json:"is_free"`
	Price                float64            `json:"price"`
	Currency             string             `json:"currency"`
	EventType            EventType          `json:"event_type"`
	EventMode            EventMode          `json:"event_mode"`
	Status               EventStatus        `json:"event_status"`
	RegistrationStatus   RegistrationWindow `json:"registration_status"`
	IsPublished          bool               `json:"is_published"`
	HasCertificate       bool               `json:"has_certificate"`
	VideoLink            *string            `json:"video_link,omitempty"`
	SessionSummary       *string            `json:"session_summary,omitempty"`
	OnlinePlatform       *OnlinePlatform    `json:"online_platform,omitempty"`
	OnlineLink           *string            `json:"online_link,omitempty"`
	CreatedBy            string             `json:"created_by"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsFull reports whether a capacity is set and has been reached.
func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants
}

// Ended reports whether the event is past its end date but still marked active.
func (e *Event) Ended(now time.Time) bool {
	return now.After(e.EndDate) && e.Status.Active()
}

// HasOnlineAccess reports whether attendees should receive a join link.
func (e *Event) HasOnlineAccess() bool {
	return e.EventMode != EventModeOffline && e.OnlineLink != nil && *e.OnlineLink != ""
}

// EventRefs carries resolved lookup ids for an event write.
type EventRefs struct {
	EventTypeID          int64
	EventModeID          int64
	EventStatusID        int64
	RegistrationStatusID int64
	OnlinePlatformID     *int64
}

// EventUpdate is a partial update. Nil fields are left unchanged.
type EventUpdate struct {
	Title                *string
	Description          *string
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	IsFree               *bool
	Price                *float64
	Currency             *string
	EventType            *EventType
	EventMode            *EventMode
	Status               *EventStatus
	RegistrationStatus   *RegistrationWindow
	IsPublished          *bool
	HasCertificate       *bool
	VideoLink            *string
	SessionSummary       *string
	OnlinePlatform       *OnlinePlatform
	OnlineLink           *string
}

// EventPatch is an EventUpdate after slug regeneration and lookup resolution.
type EventPatch struct {
	Title                *string
	Slug                 *string
	Description          *string
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	IsFree               *bool
	Price                *float64
	Currency             *string
	EventTypeID          *int64
	EventModeID          *int64
	EventStatusID        *int64
	RegistrationStatusID *int64
	IsPublished          *bool
	HasCertificate       *bool
	VideoLink            *string
	SessionSummary       *string
	OnlinePlatformID     *int64
	OnlineLink           *string
}

// EventFilter narrows event listings.
type EventFilter struct {
	Status        *EventStatus
	PublishedOnly bool
	Search        string
}

// StatusTransition describes one batch status move: rows in From with the time
// predicate satisfied move to To (and optionally to a new registration status).
type StatusTransition struct {
	FromStatusIDs        []int64
	ToStatusID           int64
	RegistrationStatusID *int64
}

// SweepResult counts the rows moved by one batch sweep.
type SweepResult struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event, refs EventRefs) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	// GetByIDForUpdate locks the event row for the rest of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	Update(ctx context.Context, id string, patch *EventPatch) (*Event, error)
	Delete(ctx context.Context, id string) error
	// CompleteEnded moves a single event past its end date to the completed transition.
	// It reports whether a row was written.
	CompleteEnded(ctx context.Context, id string, now time.Time, t StatusTransition) (bool, error)
	// StartDue applies t to every event with start_date <= now <= end_date.
	StartDue(ctx context.Context, now time.Time, t StatusTransition) (int64, error)
	// CompleteDue applies t to every event with end_date < now.
	CompleteDue(ctx context.Context, now time.Time, t StatusTransition) (int64, error)
	// IncrementParticipants adds one seat unless capacity is reached; returns ErrCapacityReached otherwise.
	IncrementParticipants(ctx context.Context, id string) (*Event, error)
	DecrementParticipants(ctx context.Context, id string) (*Event, error)
	SetRegistrationStatus(ctx context.Context, id string, registrationStatusID int64) error
}

// EventService defines event reads, administration and the status engine.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, id string) (*Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, id string, update *EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	SweepStatuses(ctx context.Context, now time.Time) (SweepResult, error)
}

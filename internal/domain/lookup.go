package domain

import "context"

// LookupDomain names a reference table of (id, code) rows.
type LookupDomain string

const (
	LookupEventType          LookupDomain = "event_types"
	LookupEventMode          LookupDomain = "event_modes"
	LookupEventStatus        LookupDomain = "event_statuses"
	LookupRegistrationWindow LookupDomain = "registration_statuses"
	LookupRegistrationStatus LookupDomain = "event_registration_statuses"
	LookupPaymentStatus      LookupDomain = "payment_statuses"
	LookupOnlinePlatform     LookupDomain = "online_platforms"
)

// LookupDomains lists every reference table in a stable order.
var LookupDomains = []LookupDomain{
	LookupEventType,
	LookupEventMode,
	LookupEventStatus,
	LookupRegistrationWindow,
	LookupRegistrationStatus,
	LookupPaymentStatus,
	LookupOnlinePlatform,
}

// Valid reports whether d is one of the known reference tables.
func (d LookupDomain) Valid() bool {
	for _, known := range LookupDomains {
		if d == known {
			return true
		}
	}
	return false
}

// EventStatus is the lifecycle stage of an event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the event has not yet reached a terminal stage.
func (s EventStatus) Active() bool {
	return s == EventStatusUpcoming || s == EventStatusOngoing
}

// RegistrationWindow is whether an event currently accepts registrations.
type RegistrationWindow string

const (
	RegistrationOpen   RegistrationWindow = "open"
	RegistrationClosed RegistrationWindow = "closed"
	RegistrationFull   RegistrationWindow = "full"
)

func (w RegistrationWindow) Valid() bool {
	switch w {
	case RegistrationOpen, RegistrationClosed, RegistrationFull:
		return true
	}
	return false
}

// RegistrationStatus is the state of a single user's registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return true
	}
	return false
}

// PaymentStatus is shared by payment transactions and the payment summary on registrations.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentConfirmed   PaymentStatus = "confirmed"
	PaymentExpired     PaymentStatus = "expired"
	PaymentFailed      PaymentStatus = "failed"
	PaymentCancelled   PaymentStatus = "cancelled"
	PaymentRefunded    PaymentStatus = "refunded"
	PaymentNotRequired PaymentStatus = "not_required"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentConfirmed, PaymentExpired, PaymentFailed,
		PaymentCancelled, PaymentRefunded, PaymentNotRequired:
		return true
	}
	return false
}

// EventType categorises events.
type EventType string

const (
	EventTypeSeminar    EventType = "seminar"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeWebinar    EventType = "webinar"
	EventTypeBootcamp   EventType = "bootcamp"
	EventTypeConference EventType = "conference"
	EventTypeHackathon  EventType = "hackathon"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeSeminar, EventTypeWorkshop, EventTypeWebinar,
		EventTypeBootcamp, EventTypeConference, EventTypeHackathon:
		return true
	}
	return false
}

// EventMode is where an event takes place.
type EventMode string

const (
	EventModeOnline  EventMode = "online"
	EventModeOffline EventMode = "offline"
	EventModeHybrid  EventMode = "hybrid"
)

func (m EventMode) Valid() bool {
	switch m {
	case EventModeOnline, EventModeOffline, EventModeHybrid:
		return true
	}
	return false
}

// OnlinePlatform is the meeting service used for online events.
type OnlinePlatform string

const (
	PlatformZoom       OnlinePlatform = "zoom"
	PlatformGoogleMeet OnlinePlatform = "google_meet"
	PlatformTeams      OnlinePlatform = "microsoft_teams"
	PlatformOther      OnlinePlatform = "other"
)

func (p OnlinePlatform) Valid() bool {
	switch p {
	case PlatformZoom, PlatformGoogleMeet, PlatformTeams, PlatformOther:
		return true
	}
	return false
}

// LookupCode is implemented by every closed enumeration backed by a reference table.
type LookupCode interface {
	~string
	Valid() bool
}

// LookupEntry is a single reference row.
type LookupEntry struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// LookupRepository reads reference tables.
type LookupRepository interface {
	ListByDomain(ctx context.Context, domain LookupDomain) ([]LookupEntry, error)
	GetByCode(ctx context.Context, domain LookupDomain, code string) (*LookupEntry, error)
}

// LookupResolver maps codes to stable ids. Implementations cache per process.
type LookupResolver interface {
	Resolve(ctx context.Context, domain LookupDomain, code string) (int64, error)
	Warm(ctx context.Context) error
	Invalidate()
}

package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotifyPaymentConfirmed      NotificationKind = "payment_confirmed"
	NotifyPaymentFailed         NotificationKind = "payment_failed"
	NotifyPaymentCancelled      NotificationKind = "payment_cancelled"
	NotifyRefundIssued          NotificationKind = "refund_issued"
	NotifyRegistrationConfirmed NotificationKind = "registration_confirmed"
	NotifyOnlineAccess          NotificationKind = "online_access"
	NotifyRegistrationCancelled NotificationKind = "registration_cancelled"
)

// NotificationData is the template payload shared by all kinds.
type NotificationData struct {
	RecipientName      string
	EventTitle         string
	EventStartDate     time.Time
	RegistrationNumber string
	TransactionID      string
	Amount             float64
	Currency           string
	PaymentMethod      string
	Reason             string
	OnlinePlatform     string
	OnlineLink         string
}

// Notification is one message to one registrant.
type Notification struct {
	Kind NotificationKind
	To   string
	Data NotificationData
}

// NotificationDispatcher delivers notifications best-effort after a business
// transaction committed. Dispatch never reports failure to the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, batch ...Notification)
	Wait()
}

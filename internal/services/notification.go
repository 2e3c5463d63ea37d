package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"oriyet/internal/domain"
)

type notificationDispatcher struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewNotificationDispatcher returns a dispatcher that renders each notification with
// renderer and sends it with mailer in the background.
func NewNotificationDispatcher(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.NotificationDispatcher {
	return &notificationDispatcher{mailer: mailer, renderer: renderer, logger: logger}
}

// Dispatch sends the batch in order on a goroutine detached from ctx cancellation.
// A failed item is logged and the rest of the batch still goes out.
func (d *notificationDispatcher) Dispatch(ctx context.Context, batch ...domain.Notification) {
	if len(batch) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, n := range batch {
			if err := d.send(n); err != nil {
				d.logger.ErrorContext(ctx, "notification failed", "kind", n.Kind, "to", n.To, "err", err)
				continue
			}
			d.logger.InfoContext(ctx, "notification sent", "kind", n.Kind, "to", n.To)
		}
	}()
}

func (d *notificationDispatcher) send(n domain.Notification) error {
	if n.To == "" {
		return fmt.Errorf("no recipient")
	}
	subject, htmlBody, textBody, err := d.renderer.Render(string(n.Kind), n.Data)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.Kind, err)
	}
	if err := d.mailer.Send(n.To, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %s: %w", n.Kind, err)
	}
	return nil
}

// Wait blocks until every dispatched batch has finished.
func (d *notificationDispatcher) Wait() {
	d.wg.Wait()
}

// recipient loads the user a notification goes to. A lookup failure skips the notification.
func recipient(ctx context.Context, users domain.UserRepository, logger *slog.Logger, userID string) (*domain.User, bool) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		logger.WarnContext(ctx, "notification skipped: recipient unavailable", "user_id", userID, "err", err)
		return nil, false
	}
	return user, true
}

func newNotification(kind domain.NotificationKind, user *domain.User, reg *domain.Registration, event *domain.Event, reason string) domain.Notification {
	data := domain.NotificationData{
		RecipientName:  user.Name,
		EventTitle:     event.Title,
		EventStartDate: event.StartDate,
		Reason:         reason,
	}
	if reg != nil {
		data.RegistrationNumber = reg.RegistrationNumber
	}
	if event.OnlineLink != nil {
		data.OnlineLink = *event.OnlineLink
	}
	data.OnlinePlatform = "Online"
	if event.OnlinePlatform != nil {
		data.OnlinePlatform = string(*event.OnlinePlatform)
	}
	return domain.Notification{Kind: kind, To: user.Email, Data: data}
}

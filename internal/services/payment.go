package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oriyet/internal/domain"
)

const gatewayName = "uddoktapay"

// PaymentSettings configures the paid registration flow.
type PaymentSettings struct {
	// PendingTimeout is how long a pending transaction stays payable.
	PendingTimeout time.Duration
	FrontendURL    string
	BackendURL     string
	// WebhookAPIKey must be presented by gateway webhook calls.
	WebhookAPIKey string
}

type paymentService struct {
	tx               domain.Transactor
	validator        domain.PaymentValidator
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	paymentRepo      domain.PaymentRepository
	certificateRepo  domain.CertificateRepository
	userRepo         domain.UserRepository
	lookups          domain.LookupResolver
	gateway          domain.PaymentGateway
	notifier         domain.NotificationDispatcher
	seats            seatLedger
	settings         PaymentSettings
	logger           *slog.Logger
	contextTimeout   time.Duration
	now              func() time.Time
}

func NewPaymentService(
	tx domain.Transactor,
	validator domain.PaymentValidator,
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	paymentRepo domain.PaymentRepository,
	certificateRepo domain.CertificateRepository,
	userRepo domain.UserRepository,
	lookups domain.LookupResolver,
	gateway domain.PaymentGateway,
	notifier domain.NotificationDispatcher,
	settings PaymentSettings,
	logger *slog.Logger,
	timeout time.Duration,
) domain.PaymentService {
	return &paymentService{
		tx:               tx,
		validator:        validator,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		certificateRepo:  certificateRepo,
		userRepo:         userRepo,
		lookups:          lookups,
		gateway:          gateway,
		notifier:         notifier,
		seats:            seatLedger{eventRepo: eventRepo},
		settings:         settings,
		logger:           logger,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, userID string, input domain.InitiatePaymentInput) (*domain.InitiatePaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input.EventID == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "event_id is required")
	}
	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var (
		user  *domain.User
		reg   *domain.Registration
		txn   *domain.PaymentTransaction
		event *domain.Event
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err = s.validator.ValidateEvent(ctx, input.EventID)
		if err != nil {
			return err
		}
		existing, err := s.validator.CheckExistingRegistrations(ctx, input.EventID, userID)
		if err != nil {
			return err
		}
		amount := event.Price
		if input.Amount != nil && *input.Amount > 0 {
			amount = *input.Amount
		}
		if err := s.validator.ValidateAmount(amount, event.Price); err != nil {
			return err
		}

		user, err = s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewError(domain.KindNotFound, "User not found")
			}
			return fmt.Errorf("load user: %w", err)
		}

		now := s.now()
		if existing != nil {
			reg, err = s.registrationRepo.Update(ctx, existing.ID, &domain.RegistrationUpdate{
				StatusID:        &ids.regPending,
				PaymentStatusID: &ids.payPending,
				PaymentAmount:   &amount,
			})
			if err != nil {
				return fmt.Errorf("reuse registration: %w", err)
			}
		} else {
			number, err := newRegistrationNumber(now)
			if err != nil {
				return fmt.Errorf("registration number: %w", err)
			}
			reg = domain.NewRegistration(input.EventID, userID, number, domain.RegistrationPending, domain.PaymentPending, now)
			reg.PaymentAmount = &amount
			if err := s.registrationRepo.Create(ctx, reg, ids.regPending, ids.payPending); err != nil {
				return fmt.Errorf("create registration: %w", err)
			}
		}

		txn = &domain.PaymentTransaction{
			TransactionID:  newTransactionID(),
			RegistrationID: reg.ID,
			EventID:        input.EventID,
			UserID:         userID,
			Amount:         amount,
			Currency:       event.Currency,
			Gateway:        gatewayName,
			Status:         domain.PaymentPending,
			ExpiresAt:      now.Add(s.settings.PendingTimeout),
			IPAddress:      optionalString(input.IPAddress),
			UserAgent:      optionalString(input.UserAgent),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.paymentRepo.Create(ctx, txn, ids.payPending); err != nil {
			return fmt.Errorf("create payment transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Transient(err)
	}

	s.logger.InfoContext(ctx, "payment initiated",
		"transaction_id", txn.TransactionID, "user_id", userID, "event_id", input.EventID, "amount", txn.Amount)

	charge, err := s.gateway.CreateCharge(ctx, domain.ChargeRequest{
		FullName: user.Name,
		Email:    user.Email,
		Amount:   txn.Amount,
		Metadata: domain.PaymentMetadata{
			UserID:         userID,
			EventID:        input.EventID,
			RegistrationID: reg.ID,
			TransactionID:  txn.TransactionID,
		},
		RedirectURL: s.settings.FrontendURL + "/payment/success",
		CancelURL:   s.settings.FrontendURL + "/payment/cancel?transaction_id=" + txn.TransactionID,
		WebhookURL:  s.settings.BackendURL + "/api/payments/webhook",
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway charge failed", "transaction_id", txn.TransactionID, "err", err)
		if _, uerr := s.paymentRepo.Update(ctx, txn.ID, &domain.PaymentUpdate{StatusID: &ids.payFailed}); uerr != nil {
			s.logger.ErrorContext(ctx, "mark payment failed", "transaction_id", txn.TransactionID, "err", uerr)
		}
		return nil, domain.Transient(fmt.Errorf("create charge: %w", err))
	}

	if _, err := s.paymentRepo.Update(ctx, txn.ID, &domain.PaymentUpdate{PaymentURL: &charge.PaymentURL}); err != nil {
		s.logger.WarnContext(ctx, "store payment url", "transaction_id", txn.TransactionID, "err", err)
	}

	return &domain.InitiatePaymentResult{
		PaymentURL:     charge.PaymentURL,
		TransactionID:  txn.TransactionID,
		RegistrationID: reg.ID,
		Amount:         txn.Amount,
		ExpiresAt:      txn.ExpiresAt,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, invoiceID, requesterID string) (*domain.VerifyPaymentResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "Invoice ID is required for payment verification")
	}

	verification, err := s.gateway.Verify(ctx, invoiceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway verify failed", "invoice_id", invoiceID, "err", err)
		return nil, domain.Transient(fmt.Errorf("verify payment: %w", err))
	}

	switch verification.Status {
	case domain.GatewayPending:
		return pendingResult(), nil
	case domain.GatewayCompleted:
		return s.ConfirmPayment(ctx, verification, requesterID)
	default:
		return s.failPayment(ctx, verification, requesterID)
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, apiKey string, payload *domain.GatewayVerification) (*domain.VerifyPaymentResult, error) {
	if s.settings.WebhookAPIKey == "" ||
		subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.settings.WebhookAPIKey)) != 1 {
		s.logger.WarnContext(ctx, "webhook rejected: bad api key")
		return nil, domain.NewError(domain.KindUnauthorized, "Unauthorized webhook request")
	}
	if payload == nil || payload.Metadata.TransactionID == "" {
		return nil, domain.NewError(domain.KindInvalidMetadata, "Invalid webhook payload - missing metadata")
	}

	txn, err := s.paymentRepo.GetByTransactionID(ctx, payload.Metadata.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Transaction not found")
		}
		return nil, domain.Transient(fmt.Errorf("load transaction: %w", err))
	}

	switch payload.Status {
	case domain.GatewayPending:
		return pendingResult(), nil
	case domain.GatewayCompleted:
		return s.ConfirmPayment(ctx, payload, txn.UserID)
	default:
		return s.failPayment(ctx, payload, txn.UserID)
	}
}

func pendingResult() *domain.VerifyPaymentResult {
	return &domain.VerifyPaymentResult{
		Success: false,
		Status:  domain.PaymentPending,
		Message: "Payment is still being processed. Please wait a few moments and try again.",
	}
}

// ConfirmPayment applies a COMPLETED gateway verdict. Metadata is checked before
// any write; the seat, the transaction and the registration change together.
func (s *paymentService) ConfirmPayment(ctx context.Context, v *domain.GatewayVerification, requesterID string) (*domain.VerifyPaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if v == nil {
		return nil, domain.ErrInvalidMetadata
	}
	if err := s.validator.ValidateMetadata(&v.Metadata, requesterID); err != nil {
		s.logger.WarnContext(ctx, "payment metadata rejected",
			"transaction_id", v.Metadata.TransactionID, "requester_id", requesterID, "err", err)
		return nil, err
	}
	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var (
		result *domain.VerifyPaymentResult
		txn    *domain.PaymentTransaction
		reg    *domain.Registration
		event  *domain.Event
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err = s.lockTransaction(ctx, v.Metadata.TransactionID)
		if err != nil {
			return err
		}
		reg, err = s.registrationRepo.GetByID(ctx, txn.RegistrationID)
		if err != nil {
			return fmt.Errorf("load registration: %w", err)
		}

		if txn.Status == domain.PaymentConfirmed {
			title := ""
			if e, err := s.eventRepo.GetByID(ctx, txn.EventID); err == nil {
				title = e.Title
			}
			result = &domain.VerifyPaymentResult{
				Success:            true,
				Status:             domain.PaymentConfirmed,
				Message:            "Payment already verified",
				RegistrationNumber: reg.RegistrationNumber,
				EventTitle:         title,
				AlreadyProcessed:   true,
			}
			return nil
		}

		if txn.EventID != v.Metadata.EventID {
			return domain.ErrInvalidMetadata
		}
		if requesterID != "" && txn.UserID != requesterID {
			return domain.ErrUserMismatch
		}
		switch txn.Status {
		case domain.PaymentCancelled, domain.PaymentRefunded:
			return domain.NewError(domain.KindInvalidState, fmt.Sprintf("Cannot confirm payment with status: %s", txn.Status))
		}
		if reg.Status == domain.RegistrationConfirmed {
			s.logger.WarnContext(ctx, "payment captured for an already confirmed registration",
				"transaction_id", txn.TransactionID, "registration_id", reg.ID)
			return domain.ErrAlreadyRegistered
		}

		event, err = s.eventRepo.GetByIDForUpdate(ctx, txn.EventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := s.validator.ValidateAmount(v.Amount, txn.Amount); err != nil {
			return err
		}
		if err := s.validator.ValidateAmount(txn.Amount, event.Price); err != nil {
			return err
		}

		if event, err = s.seats.take(ctx, txn.EventID, ids); err != nil {
			return err
		}

		now := s.now()
		if txn, err = s.paymentRepo.Update(ctx, txn.ID, &domain.PaymentUpdate{
			StatusID:             &ids.payConfirmed,
			InvoiceID:            optionalString(v.InvoiceID),
			PaymentMethod:        optionalString(v.PaymentMethod),
			SenderNumber:         optionalString(v.SenderNumber),
			GatewayTransactionID: optionalString(v.TransactionID),
			GatewayResponse:      v.Raw,
			PaidAt:               &now,
		}); err != nil {
			return fmt.Errorf("confirm transaction: %w", err)
		}
		if reg, err = s.registrationRepo.Update(ctx, reg.ID, &domain.RegistrationUpdate{
			StatusID:        &ids.regConfirmed,
			PaymentStatusID: &ids.payConfirmed,
			PaymentAmount:   &txn.Amount,
			ConfirmedAt:     &now,
		}); err != nil {
			return fmt.Errorf("confirm registration: %w", err)
		}

		result = &domain.VerifyPaymentResult{
			Success:            true,
			Status:             domain.PaymentConfirmed,
			Message:            "Payment verified and enrollment confirmed successfully",
			RegistrationNumber: reg.RegistrationNumber,
			EventTitle:         event.Title,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityReached) {
			s.logger.ErrorContext(ctx, "payment captured but event is full, refund required",
				"transaction_id", v.Metadata.TransactionID, "event_id", v.Metadata.EventID)
		}
		return nil, domain.Transient(err)
	}
	if result.AlreadyProcessed {
		return result, nil
	}

	s.logger.InfoContext(ctx, "payment confirmed",
		"transaction_id", txn.TransactionID, "registration_id", reg.ID, "user_id", reg.UserID)

	if user, ok := recipient(ctx, s.userRepo, s.logger, reg.UserID); ok {
		batch := []domain.Notification{
			s.notification(domain.NotifyPaymentConfirmed, user, reg, event, txn, ""),
			s.notification(domain.NotifyRegistrationConfirmed, user, reg, event, txn, ""),
		}
		if event.HasOnlineAccess() {
			batch = append(batch, s.notification(domain.NotifyOnlineAccess, user, reg, event, txn, ""))
		}
		s.notifier.Dispatch(ctx, batch...)
	}
	return result, nil
}

// failPayment records a non-completed gateway verdict on a pending transaction.
func (s *paymentService) failPayment(ctx context.Context, v *domain.GatewayVerification, requesterID string) (*domain.VerifyPaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	failed := &domain.VerifyPaymentResult{
		Success: false,
		Status:  domain.PaymentFailed,
		Message: "Payment failed or was cancelled. Please try again.",
	}
	if v.Metadata.TransactionID == "" {
		return failed, nil
	}
	if err := s.validator.ValidateMetadata(&v.Metadata, requesterID); err != nil {
		return nil, err
	}
	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var txn *domain.PaymentTransaction
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.lockTransaction(ctx, v.Metadata.TransactionID)
		if err != nil {
			return err
		}
		if requesterID != "" && locked.UserID != requesterID {
			return domain.ErrUserMismatch
		}
		if locked.Status != domain.PaymentPending {
			return nil
		}
		txn, err = s.paymentRepo.Update(ctx, locked.ID, &domain.PaymentUpdate{
			StatusID:             &ids.payFailed,
			InvoiceID:            optionalString(v.InvoiceID),
			GatewayTransactionID: optionalString(v.TransactionID),
			GatewayResponse:      v.Raw,
		})
		if err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Transient(err)
	}
	if txn == nil {
		return failed, nil
	}

	s.logger.InfoContext(ctx, "payment failed", "transaction_id", txn.TransactionID, "gateway_status", v.Status)
	if reg, event, user, ok := s.loadContext(ctx, txn); ok {
		reason := "The payment gateway reported the payment as " + strings.ToLower(string(v.Status))
		s.notifier.Dispatch(ctx, s.notification(domain.NotifyPaymentFailed, user, reg, event, txn, reason))
	}
	return failed, nil
}

func (s *paymentService) lockTransaction(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	txn, err := s.paymentRepo.GetByTransactionIDForUpdate(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Transaction not found")
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	return txn, nil
}

func (s *paymentService) CancelPayment(ctx context.Context, transactionID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return err
	}
	reason := "User cancelled payment"

	var (
		txn *domain.PaymentTransaction
		reg *domain.Registration
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err = s.lockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.UserID != userID {
			return domain.NewError(domain.KindNotFound, "Transaction not found")
		}
		if txn.Status != domain.PaymentPending {
			return domain.NewError(domain.KindInvalidState, fmt.Sprintf("Cannot cancel payment with status: %s", txn.Status))
		}
		if txn, err = s.paymentRepo.Update(ctx, txn.ID, &domain.PaymentUpdate{StatusID: &ids.payCancelled}); err != nil {
			return fmt.Errorf("cancel transaction: %w", err)
		}
		now := s.now()
		if reg, err = s.registrationRepo.Update(ctx, txn.RegistrationID, &domain.RegistrationUpdate{
			StatusID:        &ids.regCancelled,
			PaymentStatusID: &ids.payCancelled,
			CancelledAt:     &now,
			CancelReason:    &reason,
		}); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Transient(err)
	}

	s.logger.InfoContext(ctx, "payment cancelled", "transaction_id", transactionID, "user_id", userID)
	if _, event, user, ok := s.loadContext(ctx, txn); ok {
		s.notifier.Dispatch(ctx, s.notification(domain.NotifyPaymentCancelled, user, reg, event, txn, reason))
	}
	return nil
}

func (s *paymentService) RefundPayment(ctx context.Context, transactionID, adminID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewError(domain.KindInvalidInput, "refund reason is required")
	}
	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return err
	}

	var (
		txn   *domain.PaymentTransaction
		reg   *domain.Registration
		event *domain.Event
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err = s.lockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status != domain.PaymentConfirmed {
			return domain.NewError(domain.KindInvalidState, "Can only refund confirmed payments")
		}
		if _, err := s.eventRepo.GetByIDForUpdate(ctx, txn.EventID); err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		now := s.now()
		if txn, err = s.paymentRepo.Update(ctx, txn.ID, &domain.PaymentUpdate{
			StatusID:     &ids.payRefunded,
			RefundedAt:   &now,
			RefundReason: &reason,
			RefundedBy:   &adminID,
		}); err != nil {
			return fmt.Errorf("refund transaction: %w", err)
		}
		if reg, err = s.registrationRepo.Update(ctx, txn.RegistrationID, &domain.RegistrationUpdate{
			StatusID:        &ids.regCancelled,
			PaymentStatusID: &ids.payRefunded,
			CancelledAt:     &now,
			CancelReason:    &reason,
		}); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		if event, err = s.seats.release(ctx, txn.EventID, ids); err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
		if _, err := s.certificateRepo.RevokeByRegistrationID(ctx, reg.ID, "Payment refunded: "+reason, now); err != nil {
			return fmt.Errorf("revoke certificates: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Transient(err)
	}

	s.logger.InfoContext(ctx, "payment refunded", "transaction_id", transactionID, "admin_id", adminID, "reason", reason)
	if user, ok := recipient(ctx, s.userRepo, s.logger, reg.UserID); ok {
		s.notifier.Dispatch(ctx, s.notification(domain.NotifyRefundIssued, user, reg, event, txn, reason))
	}
	return nil
}

// ExpirePendingPayments marks overdue pending transactions expired. Registrations are left pending.
func (s *paymentService) ExpirePendingPayments(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return 0, err
	}
	n, err := s.paymentRepo.ExpireOverdue(ctx, now, ids.payPending, ids.payExpired)
	if err != nil {
		return 0, domain.Transient(fmt.Errorf("expire overdue payments: %w", err))
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "overdue payments expired", "count", n)
	}
	return n, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, transactionID, userID string, isAdmin bool) (*domain.PaymentTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	txn, err := s.paymentRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Transaction not found")
		}
		return nil, domain.Transient(fmt.Errorf("get transaction: %w", err))
	}
	if !isAdmin && txn.UserID != userID {
		return nil, domain.NewError(domain.KindNotFound, "Transaction not found")
	}
	return txn, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter domain.PaymentFilter, params domain.PaginationParams) ([]*domain.PaymentTransaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, domain.NewError(domain.KindInvalidInput, "invalid payment status filter")
	}
	txns, total, err := s.paymentRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, domain.Transient(fmt.Errorf("list payments: %w", err))
	}
	if txns == nil {
		txns = []*domain.PaymentTransaction{}
	}
	return txns, total, nil
}

// loadContext fetches what a notification about txn needs. Failures are logged only.
func (s *paymentService) loadContext(ctx context.Context, txn *domain.PaymentTransaction) (*domain.Registration, *domain.Event, *domain.User, bool) {
	reg, err := s.registrationRepo.GetByID(ctx, txn.RegistrationID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "transaction_id", txn.TransactionID, "err", err)
		return nil, nil, nil, false
	}
	event, err := s.eventRepo.GetByID(ctx, txn.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "transaction_id", txn.TransactionID, "err", err)
		return nil, nil, nil, false
	}
	user, ok := recipient(ctx, s.userRepo, s.logger, txn.UserID)
	return reg, event, user, ok
}

func (s *paymentService) notification(kind domain.NotificationKind, user *domain.User, reg *domain.Registration, event *domain.Event, txn *domain.PaymentTransaction, reason string) domain.Notification {
	n := newNotification(kind, user, reg, event, reason)
	n.Data.TransactionID = txn.TransactionID
	n.Data.Amount = txn.Amount
	n.Data.Currency = txn.Currency
	if txn.PaymentMethod != nil {
		n.Data.PaymentMethod = *txn.PaymentMethod
	}
	return n
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

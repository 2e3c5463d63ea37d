package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/delivery/http/middleware"
	"oriyet/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func withUser(req *http.Request, userID string, roles ...string) *http.Request {
	claims := domain.Claims{UserID: userID, Email: userID + "@example.com", Roles: append([]string{domain.RoleUser}, roles...)}
	return req.WithContext(middleware.SetClaims(req.Context(), claims))
}

// decodeEnvelope decodes the response envelope and, when data is non-nil, data into dest.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err          error
	event        *domain.Event
	events       []*domain.Event
	total        int
	sweep        domain.SweepResult
	lastCreate   *domain.Event
	lastUpdateID string
	lastUpdate   *domain.EventUpdate
	lastDeleteID string
	lastFilter   domain.EventFilter
	lastParams   domain.PaginationParams
	lastSweepAt  time.Time
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastCreate = event
	if f.err != nil {
		return f.err
	}
	event.ID = "ev-created"
	event.Slug = "created-slug"
	return nil
}

func (f *fakeEventService) GetEventByID(_ context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) GetEventBySlug(_ context.Context, slug string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) ListEvents(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter = filter
	f.lastParams = params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.events, f.total, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	f.lastUpdateID = id
	f.lastUpdate = update
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, id string) error {
	f.lastDeleteID = id
	return f.err
}

func (f *fakeEventService) SweepStatuses(_ context.Context, now time.Time) (domain.SweepResult, error) {
	f.lastSweepAt = now
	return f.sweep, f.err
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	err          error
	registration *domain.Registration
	view         *domain.RegistrationStatusView
	myEvents     *domain.MyEvents
	list         []*domain.Registration
	total        int
	lastEventID  string
	lastUserID   string
	lastReason   string
	lastStatus   *domain.RegistrationStatus
	lastParams   domain.PaginationParams
}

func (f *fakeRegistrationService) RegisterFree(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	f.lastEventID, f.lastUserID = eventID, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.registration, nil
}

func (f *fakeRegistrationService) CancelRegistration(_ context.Context, eventID, userID, reason string) (*domain.Registration, error) {
	f.lastEventID, f.lastUserID, f.lastReason = eventID, userID, reason
	if f.err != nil {
		return nil, f.err
	}
	return f.registration, nil
}

func (f *fakeRegistrationService) GetRegistrationStatus(_ context.Context, eventID, userID string) (*domain.RegistrationStatusView, error) {
	f.lastEventID, f.lastUserID = eventID, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func (f *fakeRegistrationService) ListMyEvents(_ context.Context, userID string) (*domain.MyEvents, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.myEvents, nil
}

func (f *fakeRegistrationService) ListEventRegistrations(_ context.Context, eventID string, status *domain.RegistrationStatus, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.lastEventID, f.lastStatus, f.lastParams = eventID, status, params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.list, f.total, nil
}

// fakePaymentService implements domain.PaymentService for handler tests.
type fakePaymentService struct {
	err            error
	initiate       *domain.InitiatePaymentResult
	verify         *domain.VerifyPaymentResult
	txn            *domain.PaymentTransaction
	txns           []*domain.PaymentTransaction
	total          int
	lastUserID     string
	lastInput      domain.InitiatePaymentInput
	lastInvoiceID  string
	lastAPIKey     string
	lastPayload    *domain.GatewayVerification
	webhookCalled  bool
	lastTxnID      string
	lastAdminID    string
	lastReason     string
	lastIsAdmin    bool
	lastFilter     domain.PaymentFilter
	lastListParams domain.PaginationParams
}

func (f *fakePaymentService) InitiatePayment(_ context.Context, userID string, input domain.InitiatePaymentInput) (*domain.InitiatePaymentResult, error) {
	f.lastUserID, f.lastInput = userID, input
	if f.err != nil {
		return nil, f.err
	}
	return f.initiate, nil
}

func (f *fakePaymentService) VerifyPayment(_ context.Context, invoiceID, requesterID string) (*domain.VerifyPaymentResult, error) {
	f.lastInvoiceID, f.lastUserID = invoiceID, requesterID
	if f.err != nil {
		return nil, f.err
	}
	return f.verify, nil
}

func (f *fakePaymentService) HandleWebhook(_ context.Context, apiKey string, payload *domain.GatewayVerification) (*domain.VerifyPaymentResult, error) {
	f.webhookCalled = true
	f.lastAPIKey, f.lastPayload = apiKey, payload
	if f.err != nil {
		return nil, f.err
	}
	return f.verify, nil
}

func (f *fakePaymentService) ConfirmPayment(_ context.Context, _ *domain.GatewayVerification, _ string) (*domain.VerifyPaymentResult, error) {
	return f.verify, f.err
}

func (f *fakePaymentService) CancelPayment(_ context.Context, transactionID, userID string) error {
	f.lastTxnID, f.lastUserID = transactionID, userID
	return f.err
}

func (f *fakePaymentService) RefundPayment(_ context.Context, transactionID, adminID, reason string) error {
	f.lastTxnID, f.lastAdminID, f.lastReason = transactionID, adminID, reason
	return f.err
}

func (f *fakePaymentService) ExpirePendingPayments(_ context.Context, _ time.Time) (int64, error) {
	return 0, f.err
}

func (f *fakePaymentService) GetTransaction(_ context.Context, transactionID, userID string, isAdmin bool) (*domain.PaymentTransaction, error) {
	f.lastTxnID, f.lastUserID, f.lastIsAdmin = transactionID, userID, isAdmin
	if f.err != nil {
		return nil, f.err
	}
	return f.txn, nil
}

func (f *fakePaymentService) ListPayments(_ context.Context, filter domain.PaymentFilter, params domain.PaginationParams) ([]*domain.PaymentTransaction, int, error) {
	f.lastFilter, f.lastListParams = filter, params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.txns, f.total, nil
}

// fakeCertificateService implements domain.CertificateService for handler tests.
type fakeCertificateService struct {
	err        error
	cert       *domain.Certificate
	lastRegID  string
	lastUserID string
	lastCertID string
}

func (f *fakeCertificateService) IssueCertificate(_ context.Context, registrationID, userID string) (*domain.Certificate, error) {
	f.lastRegID, f.lastUserID = registrationID, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.cert, nil
}

func (f *fakeCertificateService) VerifyCertificate(_ context.Context, certificateID string) (*domain.Certificate, error) {
	f.lastCertID = certificateID
	if f.err != nil {
		return nil, f.err
	}
	return f.cert, nil
}

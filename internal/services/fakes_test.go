package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"oriyet/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// lookupTable mirrors the seeded reference tables: id = index + 1.
var lookupTable = map[domain.LookupDomain][]string{
	domain.LookupEventType:          {"seminar", "workshop", "webinar", "bootcamp", "conference", "hackathon"},
	domain.LookupEventMode:          {"online", "offline", "hybrid"},
	domain.LookupEventStatus:        {"upcoming", "ongoing", "completed", "cancelled"},
	domain.LookupRegistrationWindow: {"open", "closed", "full"},
	domain.LookupRegistrationStatus: {"pending", "confirmed", "cancelled"},
	domain.LookupPaymentStatus:      {"pending", "confirmed", "expired", "failed", "cancelled", "refunded", "not_required"},
	domain.LookupOnlinePlatform:     {"zoom", "google_meet", "microsoft_teams", "other"},
}

func lookupID(d domain.LookupDomain, code string) int64 {
	i := slices.Index(lookupTable[d], code)
	if i < 0 {
		panic(fmt.Sprintf("unknown %s code %q", d, code))
	}
	return int64(i + 1)
}

func lookupCode(d domain.LookupDomain, id int64) string {
	return lookupTable[d][id-1]
}

type fakeLookups struct{}

func (fakeLookups) Resolve(ctx context.Context, d domain.LookupDomain, code string) (int64, error) {
	i := slices.Index(lookupTable[d], code)
	if i < 0 {
		return 0, domain.ErrLookupNotFound
	}
	return int64(i + 1), nil
}

func (fakeLookups) Warm(ctx context.Context) error { return nil }
func (fakeLookups) Invalidate()                    {}

// memStore is an in-memory database shared by the fake repositories. Rows are
// stored by value so callers never alias stored state.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int

	events   map[string]domain.Event
	regs     map[string]domain.Registration
	payments map[string]domain.PaymentTransaction
	certs    map[string]domain.Certificate
	users    map[string]domain.User

	statusWrites int
	failOn       map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[string]domain.Event),
		regs:     make(map[string]domain.Registration),
		payments: make(map[string]domain.PaymentTransaction),
		certs:    make(map[string]domain.Certificate),
		users:    make(map[string]domain.User),
		failOn:   make(map[string]error),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

type memSnapshot struct {
	events   map[string]domain.Event
	regs     map[string]domain.Registration
	payments map[string]domain.PaymentTransaction
	certs    map[string]domain.Certificate
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{cloneMap(s.events), cloneMap(s.regs), cloneMap(s.payments), cloneMap(s.certs)}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events, s.regs, s.payments, s.certs = snap.events, snap.regs, snap.payments, snap.certs
}

// event returns a copy of the stored event for assertions.
func (s *memStore) event(id string) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

func (s *memStore) registration(id string) domain.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[id]
}

func (s *memStore) payment(transactionID string) domain.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TransactionID == transactionID {
			return p
		}
	}
	return domain.PaymentTransaction{}
}

func (s *memStore) registrationsFor(eventID, userID string) []domain.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Registration
	for _, r := range s.regs {
		if r.EventID == eventID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) paymentsFor(registrationID string) []domain.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PaymentTransaction
	for _, p := range s.payments {
		if p.RegistrationID == registrationID {
			out = append(out, p)
		}
	}
	return out
}

type memTxKey struct{}

// memTx serialises transactions and rolls the store back when fn fails.
type memTx struct {
	s *memStore
}

func (t memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	if err := t.s.fail("commit"); err != nil {
		t.s.restore(snap)
		return domain.Transient(err)
	}
	return nil
}

type memEventRepo struct{ s *memStore }

func (r memEventRepo) Create(ctx context.Context, e *domain.Event, refs domain.EventRefs) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("event.Create"); err != nil {
		return err
	}
	for _, other := range r.s.events {
		if other.Slug == e.Slug {
			return domain.ErrDuplicateSlug
		}
	}
	e.ID = r.s.nextID("ev")
	e.EventType = domain.EventType(lookupCode(domain.LookupEventType, refs.EventTypeID))
	e.EventMode = domain.EventMode(lookupCode(domain.LookupEventMode, refs.EventModeID))
	e.Status = domain.EventStatus(lookupCode(domain.LookupEventStatus, refs.EventStatusID))
	e.RegistrationStatus = domain.RegistrationWindow(lookupCode(domain.LookupRegistrationWindow, refs.RegistrationStatusID))
	r.s.events[e.ID] = *e
	return nil
}

func (r memEventRepo) get(id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r memEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(id)
}

func (r memEventRepo) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.Slug == slug {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memEventRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(id)
}

func (r memEventRepo) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.s.events {
		if filter.PublishedOnly && !e.IsPublished {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(filter.Search)) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	slices.SortFunc(out, func(a, b *domain.Event) int { return a.StartDate.Compare(b.StartDate) })
	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (r memEventRepo) Update(ctx context.Context, id string, p *domain.EventPatch) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Slug != nil {
		for otherID, other := range r.s.events {
			if otherID != id && other.Slug == *p.Slug {
				return nil, domain.ErrDuplicateSlug
			}
		}
		e.Slug = *p.Slug
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.MaxParticipants != nil {
		e.MaxParticipants = p.MaxParticipants
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.IsFree != nil {
		e.IsFree = *p.IsFree
	}
	if p.IsPublished != nil {
		e.IsPublished = *p.IsPublished
	}
	if p.EventStatusID != nil {
		e.Status = domain.EventStatus(lookupCode(domain.LookupEventStatus, *p.EventStatusID))
	}
	if p.RegistrationStatusID != nil {
		e.RegistrationStatus = domain.RegistrationWindow(lookupCode(domain.LookupRegistrationWindow, *p.RegistrationStatusID))
	}
	r.s.events[id] = e
	return &e, nil
}

func (r memEventRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

func (r memEventRepo) apply(e *domain.Event, t domain.StatusTransition) bool {
	if !slices.Contains(t.FromStatusIDs, lookupID(domain.LookupEventStatus, string(e.Status))) {
		return false
	}
	e.Status = domain.EventStatus(lookupCode(domain.LookupEventStatus, t.ToStatusID))
	if t.RegistrationStatusID != nil {
		e.RegistrationStatus = domain.RegistrationWindow(lookupCode(domain.LookupRegistrationWindow, *t.RegistrationStatusID))
	}
	r.s.statusWrites++
	return true
}

func (r memEventRepo) CompleteEnded(ctx context.Context, id string, now time.Time, t domain.StatusTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || !e.EndDate.Before(now) {
		return false, nil
	}
	written := r.apply(&e, t)
	r.s.events[id] = e
	return written, nil
}

func (r memEventRepo) sweep(pred func(e domain.Event) bool, t domain.StatusTransition) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.events {
		if pred(e) && r.apply(&e, t) {
			r.s.events[id] = e
			n++
		}
	}
	return n
}

func (r memEventRepo) StartDue(ctx context.Context, now time.Time, t domain.StatusTransition) (int64, error) {
	return r.sweep(func(e domain.Event) bool {
		return !e.StartDate.After(now) && !e.EndDate.Before(now)
	}, t), nil
}

func (r memEventRepo) CompleteDue(ctx context.Context, now time.Time, t domain.StatusTransition) (int64, error) {
	if err := r.s.fail("event.CompleteDue"); err != nil {
		return 0, err
	}
	return r.sweep(func(e domain.Event) bool { return e.EndDate.Before(now) }, t), nil
}

func (r memEventRepo) IncrementParticipants(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || (e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants) {
		return nil, domain.ErrCapacityReached
	}
	e.CurrentParticipants++
	r.s.events[id] = e
	return &e, nil
}

func (r memEventRepo) DecrementParticipants(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.CurrentParticipants = max(e.CurrentParticipants-1, 0)
	r.s.events[id] = e
	return &e, nil
}

func (r memEventRepo) SetRegistrationStatus(ctx context.Context, id string, registrationStatusID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.RegistrationStatus = domain.RegistrationWindow(lookupCode(domain.LookupRegistrationWindow, registrationStatusID))
	r.s.events[id] = e
	return nil
}

type memRegistrationRepo struct{ s *memStore }

func regStatusID(r domain.Registration) int64 {
	return lookupID(domain.LookupRegistrationStatus, string(r.Status))
}

func (r memRegistrationRepo) Create(ctx context.Context, reg *domain.Registration, statusID, paymentStatusID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.regs {
		if other.EventID == reg.EventID && other.UserID == reg.UserID && other.Status != domain.RegistrationCancelled {
			return domain.ErrAlreadyRegistered
		}
	}
	reg.ID = r.s.nextID("reg")
	reg.Status = domain.RegistrationStatus(lookupCode(domain.LookupRegistrationStatus, statusID))
	reg.PaymentStatus = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, paymentStatusID))
	r.s.regs[reg.ID] = *reg
	return nil
}

func (r memRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reg, nil
}

func (r memRegistrationRepo) FindByEventAndUser(ctx context.Context, eventID, userID string, statusIDs []int64) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.Registration
	for _, reg := range r.s.regs {
		if reg.EventID != eventID || reg.UserID != userID || !slices.Contains(statusIDs, regStatusID(reg)) {
			continue
		}
		if found == nil || reg.CreatedAt.After(found.CreatedAt) {
			reg := reg
			found = &reg
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (r memRegistrationRepo) DeleteByEventAndUser(ctx context.Context, eventID, userID string, statusID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, reg := range r.s.regs {
		if reg.EventID == eventID && reg.UserID == userID && regStatusID(reg) == statusID {
			delete(r.s.regs, id)
			n++
		}
	}
	return n, nil
}

func (r memRegistrationRepo) Update(ctx context.Context, id string, u *domain.RegistrationUpdate) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("registration.Update"); err != nil {
		return nil, err
	}
	reg, ok := r.s.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.StatusID != nil {
		reg.Status = domain.RegistrationStatus(lookupCode(domain.LookupRegistrationStatus, *u.StatusID))
	}
	if u.PaymentStatusID != nil {
		reg.PaymentStatus = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, *u.PaymentStatusID))
	}
	if u.PaymentAmount != nil {
		reg.PaymentAmount = u.PaymentAmount
	}
	if u.ConfirmedAt != nil {
		reg.ConfirmedAt = u.ConfirmedAt
	}
	if u.CancelledAt != nil {
		reg.CancelledAt = u.CancelledAt
	}
	if u.CancelReason != nil {
		reg.CancelReason = u.CancelReason
	}
	r.s.regs[id] = reg
	return &reg, nil
}

func (r memRegistrationRepo) ListByUserID(ctx context.Context, userID string, statusIDs []int64) ([]*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Registration
	for _, reg := range r.s.regs {
		if reg.UserID == userID && slices.Contains(statusIDs, regStatusID(reg)) {
			reg := reg
			out = append(out, &reg)
		}
	}
	return out, nil
}

func (r memRegistrationRepo) ListByEventID(ctx context.Context, eventID string, statusID *int64, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Registration
	for _, reg := range r.s.regs {
		if reg.EventID != eventID || (statusID != nil && regStatusID(reg) != *statusID) {
			continue
		}
		reg := reg
		out = append(out, &reg)
	}
	return out, len(out), nil
}

type memPaymentRepo struct{ s *memStore }

func payStatusID(p domain.PaymentTransaction) int64 {
	return lookupID(domain.LookupPaymentStatus, string(p.Status))
}

func (r memPaymentRepo) Create(ctx context.Context, txn *domain.PaymentTransaction, statusID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn.ID = r.s.nextID("pay")
	txn.Status = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, statusID))
	r.s.payments[txn.ID] = *txn
	return nil
}

func (r memPaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memPaymentRepo) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r memPaymentRepo) LatestForRegistration(ctx context.Context, registrationID string, statusID int64) (*domain.PaymentTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.PaymentTransaction
	for _, p := range r.s.payments {
		if p.RegistrationID == registrationID && payStatusID(p) == statusID {
			if found == nil || p.CreatedAt.After(found.CreatedAt) {
				p := p
				found = &p
			}
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (r memPaymentRepo) Update(ctx context.Context, id string, u *domain.PaymentUpdate) (*domain.PaymentTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.StatusID != nil {
		p.Status = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, *u.StatusID))
	}
	if u.PaymentURL != nil {
		p.PaymentURL = u.PaymentURL
	}
	if u.InvoiceID != nil {
		p.InvoiceID = u.InvoiceID
	}
	if u.PaymentMethod != nil {
		p.PaymentMethod = u.PaymentMethod
	}
	if u.GatewayTransactionID != nil {
		p.GatewayTransactionID = u.GatewayTransactionID
	}
	if u.PaidAt != nil {
		p.PaidAt = u.PaidAt
	}
	if u.RefundedAt != nil {
		p.RefundedAt = u.RefundedAt
	}
	if u.RefundReason != nil {
		p.RefundReason = u.RefundReason
	}
	if u.RefundedBy != nil {
		p.RefundedBy = u.RefundedBy
	}
	r.s.payments[id] = p
	return &p, nil
}

func (r memPaymentRepo) TransitionForRegistration(ctx context.Context, registrationID string, fromStatusID, toStatusID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.payments {
		if p.RegistrationID == registrationID && payStatusID(p) == fromStatusID {
			p.Status = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, toStatusID))
			r.s.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (r memPaymentRepo) ExpireOverdue(ctx context.Context, now time.Time, fromStatusID, toStatusID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.payments {
		if payStatusID(p) == fromStatusID && p.ExpiresAt.Before(now) {
			p.Status = domain.PaymentStatus(lookupCode(domain.LookupPaymentStatus, toStatusID))
			r.s.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (r memPaymentRepo) List(ctx context.Context, filter domain.PaymentFilter, params domain.PaginationParams) ([]*domain.PaymentTransaction, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.PaymentTransaction
	for _, p := range r.s.payments {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.EventID != "" && p.EventID != filter.EventID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, len(out), nil
}

type memCertificateRepo struct{ s *memStore }

func (r memCertificateRepo) Create(ctx context.Context, c *domain.Certificate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID("cert")
	r.s.certs[c.ID] = *c
	return nil
}

func (r memCertificateRepo) find(match func(domain.Certificate) bool) (*domain.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.certs {
		if match(c) {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memCertificateRepo) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Certificate, error) {
	return r.find(func(c domain.Certificate) bool { return c.RegistrationID == registrationID })
}

func (r memCertificateRepo) GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return r.find(func(c domain.Certificate) bool { return c.CertificateID == certificateID })
}

func (r memCertificateRepo) RecordVerification(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.certs[id]
	c.VerificationCount++
	c.LastVerifiedAt = &at
	r.s.certs[id] = c
	return nil
}

func (r memCertificateRepo) RevokeByRegistrationID(ctx context.Context, registrationID, reason string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.certs {
		if c.RegistrationID == registrationID && c.IsValid {
			c.IsValid = false
			c.RevokedAt = &at
			c.RevokeReason = &reason
			r.s.certs[id] = c
			n++
		}
	}
	return n, nil
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// fakeGateway answers charges and verifications from canned values.
type fakeGateway struct {
	mu            sync.Mutex
	chargeErr     error
	charges       []domain.ChargeRequest
	verifications map[string]*domain.GatewayVerification
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.charges = append(g.charges, req)
	return &domain.Charge{PaymentURL: "https://pay.example/" + req.Metadata.TransactionID}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, invoiceID string) (*domain.GatewayVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.verifications[invoiceID]
	if !ok {
		return nil, fmt.Errorf("gateway: unknown invoice %s", invoiceID)
	}
	return v, nil
}

// recordingDispatcher captures notifications synchronously.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, batch ...domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, batch...)
}

func (d *recordingDispatcher) Wait() {}

func (d *recordingDispatcher) kinds() []domain.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(d.sent))
	for _, n := range d.sent {
		out = append(out, n.Kind)
	}
	return out
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testEnv wires every service over one memStore with a fixed clock.
type testEnv struct {
	store         *memStore
	gateway       *fakeGateway
	notifier      *recordingDispatcher
	events        *eventService
	validator     domain.PaymentValidator
	payments      *paymentService
	registrations *registrationService
	certificates  *certificateService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	tx := memTx{s: store}
	eventRepo := memEventRepo{s: store}
	regRepo := memRegistrationRepo{s: store}
	payRepo := memPaymentRepo{s: store}
	certRepo := memCertificateRepo{s: store}
	userRepo := memUserRepo{s: store}
	lookups := fakeLookups{}
	gw := &fakeGateway{verifications: make(map[string]*domain.GatewayVerification)}
	notifier := &recordingDispatcher{}
	clock := func() time.Time { return testNow }

	events := NewEventService(eventRepo, lookups, tx, testLogger, time.Second).(*eventService)
	events.now = clock
	validator := NewPaymentValidator(eventRepo, regRepo, payRepo, lookups, testLogger)
	payments := NewPaymentService(tx, validator, eventRepo, regRepo, payRepo, certRepo, userRepo, lookups, gw, notifier,
		PaymentSettings{
			PendingTimeout: 30 * time.Minute,
			FrontendURL:    "https://oriyet.test",
			BackendURL:     "https://api.oriyet.test",
			WebhookAPIKey:  "hook-key",
		}, testLogger, time.Second).(*paymentService)
	payments.now = clock
	registrations := NewRegistrationService(tx, eventRepo, regRepo, payRepo, certRepo, userRepo, lookups, notifier, testLogger, time.Second).(*registrationService)
	registrations.now = clock
	certificates := NewCertificateService(certRepo, regRepo, eventRepo, testLogger, time.Second).(*certificateService)
	certificates.now = clock

	return &testEnv{
		store:         store,
		gateway:       gw,
		notifier:      notifier,
		events:        events,
		validator:     validator,
		payments:      payments,
		registrations: registrations,
		certificates:  certificates,
	}
}

func (e *testEnv) addUser(id string) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.users[id] = domain.User{ID: id, Email: id + "@example.com", Name: "User " + id}
}

// addEvent stores an upcoming open event starting tomorrow. mutate adjusts it before insert.
func (e *testEnv) addEvent(mutate func(ev *domain.Event)) domain.Event {
	ev := domain.Event{
		Title:              "Go Workshop",
		StartDate:          testNow.Add(24 * time.Hour),
		EndDate:            testNow.Add(26 * time.Hour),
		Price:              500,
		Currency:           "BDT",
		EventType:          domain.EventTypeWorkshop,
		EventMode:          domain.EventModeOffline,
		Status:             domain.EventStatusUpcoming,
		RegistrationStatus: domain.RegistrationOpen,
		IsPublished:        true,
		CreatedBy:          "admin",
	}
	if mutate != nil {
		mutate(&ev)
	}
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	ev.ID = e.store.nextID("ev")
	ev.Slug = slugify(ev.Title) + "-" + ev.ID
	e.store.events[ev.ID] = ev
	return ev
}

func (e *testEnv) addRegistration(eventID, userID string, status domain.RegistrationStatus, payment domain.PaymentStatus) domain.Registration {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	reg := *domain.NewRegistration(eventID, userID, "REG-"+userID, status, payment, testNow.Add(-time.Hour))
	reg.ID = e.store.nextID("reg")
	e.store.regs[reg.ID] = reg
	return reg
}

func (e *testEnv) addPayment(reg domain.Registration, amount float64, status domain.PaymentStatus, expiresAt time.Time) domain.PaymentTransaction {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	txn := domain.PaymentTransaction{
		TransactionID:  "TXN-" + reg.ID + "-" + fmt.Sprint(e.store.seq+1),
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		Amount:         amount,
		Currency:       "BDT",
		Gateway:        gatewayName,
		Status:         status,
		ExpiresAt:      expiresAt,
		CreatedAt:      testNow.Add(-time.Hour),
	}
	txn.ID = e.store.nextID("pay")
	e.store.payments[txn.ID] = txn
	return txn
}

func completedVerification(txn domain.PaymentTransaction) *domain.GatewayVerification {
	return &domain.GatewayVerification{
		FullName:  "User " + txn.UserID,
		Email:     txn.UserID + "@example.com",
		Amount:    txn.Amount,
		InvoiceID: "INV-" + txn.TransactionID,
		Metadata: domain.PaymentMetadata{
			UserID:         txn.UserID,
			EventID:        txn.EventID,
			RegistrationID: txn.RegistrationID,
			TransactionID:  txn.TransactionID,
		},
		PaymentMethod: "bkash",
		SenderNumber:  "01700000000",
		TransactionID: "GW-" + txn.TransactionID,
		Status:        domain.GatewayCompleted,
	}
}

func intPtr(v int) *int { return &v }

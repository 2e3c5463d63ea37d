package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"oriyet/internal/domain"
)

const paymentColumns = `
	SELECT p.id, p.transaction_id, p.registration_id, p.event_id, p.user_id, p.amount, p.currency, p.gateway,
		ps.code, p.expires_at, p.payment_url, p.invoice_id, p.payment_method, p.sender_number,
		p.gateway_transaction_id, p.gateway_response, p.paid_at, p.refunded_at, p.refund_reason, p.refunded_by,
		p.ip_address, p.user_agent, p.created_at, p.updated_at
	FROM payment_transactions p
	JOIN payment_statuses ps ON ps.id = p.status_id`

func scanPayment(s rowScanner) (*domain.PaymentTransaction, error) {
	t := &domain.PaymentTransaction{}
	var urlNull, invoiceNull, methodNull, senderNull, gatewayTxnNull sql.NullString
	var reasonNull, refundedByNull, ipNull, agentNull sql.NullString
	var paidNull, refundedNull sql.NullTime
	var response []byte
	err := s.Scan(
		&t.ID, &t.TransactionID, &t.RegistrationID, &t.EventID, &t.UserID, &t.Amount, &t.Currency, &t.Gateway,
		&t.Status, &t.ExpiresAt, &urlNull, &invoiceNull, &methodNull, &senderNull,
		&gatewayTxnNull, &response, &paidNull, &refundedNull, &reasonNull, &refundedByNull,
		&ipNull, &agentNull, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PaymentURL = nullString(urlNull)
	t.InvoiceID = nullString(invoiceNull)
	t.PaymentMethod = nullString(methodNull)
	t.SenderNumber = nullString(senderNull)
	t.GatewayTransactionID = nullString(gatewayTxnNull)
	t.RefundReason = nullString(reasonNull)
	t.RefundedBy = nullString(refundedByNull)
	t.IPAddress = nullString(ipNull)
	t.UserAgent = nullString(agentNull)
	if len(response) > 0 {
		t.GatewayResponse = response
	}
	if paidNull.Valid {
		t.PaidAt = &paidNull.Time
	}
	if refundedNull.Valid {
		t.RefundedAt = &refundedNull.Time
	}
	return t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{
		DB: db,
	}
}

func (r *paymentRepository) Create(ctx context.Context, t *domain.PaymentTransaction, statusID int64) error {
	query := `
		INSERT INTO payment_transactions (transaction_id, registration_id, event_id, user_id, amount, currency,
			gateway, status_id, expires_at, ip_address, user_agent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		t.TransactionID, t.RegistrationID, t.EventID, t.UserID, t.Amount, t.Currency,
		t.Gateway, statusID, t.ExpiresAt, t.IPAddress, t.UserAgent, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *paymentRepository) getOne(ctx context.Context, query string, args ...any) (*domain.PaymentTransaction, error) {
	t, err := scanPayment(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	return r.getOne(ctx, paymentColumns+" WHERE p.transaction_id = $1", transactionID)
}

func (r *paymentRepository) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	return r.getOne(ctx, paymentColumns+" WHERE p.transaction_id = $1 FOR UPDATE OF p", transactionID)
}

func (r *paymentRepository) LatestForRegistration(ctx context.Context, registrationID string, statusID int64) (*domain.PaymentTransaction, error) {
	query := paymentColumns + `
		WHERE p.registration_id = $1 AND p.status_id = $2
		ORDER BY p.created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, registrationID, statusID)
}

func (r *paymentRepository) Update(ctx context.Context, id string, u *domain.PaymentUpdate) (*domain.PaymentTransaction, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if u.StatusID != nil {
		add("status_id", *u.StatusID)
	}
	if u.PaymentURL != nil {
		add("payment_url", *u.PaymentURL)
	}
	if u.InvoiceID != nil {
		add("invoice_id", *u.InvoiceID)
	}
	if u.PaymentMethod != nil {
		add("payment_method", *u.PaymentMethod)
	}
	if u.SenderNumber != nil {
		add("sender_number", *u.SenderNumber)
	}
	if u.GatewayTransactionID != nil {
		add("gateway_transaction_id", *u.GatewayTransactionID)
	}
	if len(u.GatewayResponse) > 0 {
		add("gateway_response", []byte(u.GatewayResponse))
	}
	if u.PaidAt != nil {
		add("paid_at", *u.PaidAt)
	}
	if u.RefundedAt != nil {
		add("refunded_at", *u.RefundedAt)
	}
	if u.RefundReason != nil {
		add("refund_reason", *u.RefundReason)
	}
	if u.RefundedBy != nil {
		add("refunded_by", *u.RefundedBy)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE payment_transactions SET %s WHERE id = $%d RETURNING transaction_id`, strings.Join(setClauses, ", "), n)
	var transactionID string
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, args...).Scan(&transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByTransactionID(ctx, transactionID)
}

func (r *paymentRepository) TransitionForRegistration(ctx context.Context, registrationID string, fromStatusID, toStatusID int64) (int64, error) {
	query := `
		UPDATE payment_transactions SET status_id = $1, updated_at = NOW()
		WHERE registration_id = $2 AND status_id = $3
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, toStatusID, registrationID, fromStatusID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *paymentRepository) ExpireOverdue(ctx context.Context, now time.Time, fromStatusID, toStatusID int64) (int64, error) {
	query := `
		UPDATE payment_transactions SET status_id = $1, updated_at = NOW()
		WHERE status_id = $2 AND expires_at < $3
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, toStatusID, fromStatusID, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *paymentRepository) List(ctx context.Context, filter domain.PaymentFilter, params domain.PaginationParams) ([]*domain.PaymentTransaction, int, error) {
	var where []string
	var args []any
	n := 1
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("ps.code = $%d", n))
		args = append(args, string(*filter.Status))
		n++
	}
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("p.user_id = $%d", n))
		args = append(args, filter.UserID)
		n++
	}
	if filter.EventID != "" {
		where = append(where, fmt.Sprintf("p.event_id = $%d", n))
		args = append(args, filter.EventID)
		n++
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	db := conn(ctx, r.DB)
	var total int
	countQuery := `SELECT COUNT(*) FROM payment_transactions p JOIN payment_statuses ps ON ps.id = p.status_id` + whereSQL
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := paymentColumns + whereSQL + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", n, n+1)
	args = append(args, params.Limit(), params.Offset())
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	txns := make([]*domain.PaymentTransaction, 0)
	for rows.Next() {
		t, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, t)
	}
	return txns, total, rows.Err()
}

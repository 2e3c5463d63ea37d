package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"oriyet/internal/domain"
)

var paymentRowColumns = []string{
	"id", "transaction_id", "registration_id", "event_id", "user_id", "amount", "currency", "gateway",
	"status", "expires_at", "payment_url", "invoice_id", "payment_method", "sender_number",
	"gateway_transaction_id", "gateway_response", "paid_at", "refunded_at", "refund_reason", "refunded_by",
	"ip_address", "user_agent", "created_at", "updated_at",
}

func paymentRow(status string, response []byte) *sqlmock.Rows {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(paymentRowColumns).AddRow(
		"pay-1", "TXN-1", "reg-1", "ev-1", "user-1", 500.0, "BDT", "uddoktapay",
		status, now.Add(30*time.Minute), "https://pay.example/checkout/1", nil, nil, nil,
		nil, response, nil, nil, nil, nil,
		"203.0.113.7", nil, now, now,
	)
}

func TestPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	ip := "203.0.113.7"

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO payment_transactions \(transaction_id, registration_id, event_id, user_id, amount`).
		WithArgs("TXN-1", "reg-1", "ev-1", "user-1", 500.0, "BDT", "uddoktapay", int64(1), now.Add(30*time.Minute), ip, nil, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pay-1"))

	txn := &domain.PaymentTransaction{
		TransactionID: "TXN-1", RegistrationID: "reg-1", EventID: "ev-1", UserID: "user-1",
		Amount: 500, Currency: "BDT", Gateway: "uddoktapay", ExpiresAt: now.Add(30 * time.Minute),
		IPAddress: &ip, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewPaymentRepository(db).Create(ctx, txn, 1))
	require.Equal(t, "pay-1", txn.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByTransactionIDForUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("locks and scans", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`WHERE p.transaction_id = \$1 FOR UPDATE OF p`).
			WithArgs("TXN-1").
			WillReturnRows(paymentRow("pending", []byte(`{"status":"PENDING"}`)))

		txn, err := NewPaymentRepository(db).GetByTransactionIDForUpdate(ctx, "TXN-1")
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPending, txn.Status)
		require.JSONEq(t, `{"status":"PENDING"}`, string(txn.GatewayResponse))
		require.NotNil(t, txn.PaymentURL)
		require.Nil(t, txn.InvoiceID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM payment_transactions p`).WillReturnError(sql.ErrNoRows)

		_, err = NewPaymentRepository(db).GetByTransactionIDForUpdate(ctx, "TXN-X")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPaymentRepository_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 9, 10, 0, 0, time.UTC)
	status := int64(3)
	method := "bkash"
	raw := json.RawMessage(`{"status":"COMPLETED"}`)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE payment_transactions SET updated_at = NOW\(\), status_id = \$1, payment_method = \$2, gateway_response = \$3, paid_at = \$4 WHERE id = \$5 RETURNING transaction_id`).
		WithArgs(status, method, []byte(raw), now, "pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow("TXN-1"))
	mock.ExpectQuery(`WHERE p.transaction_id = \$1`).
		WithArgs("TXN-1").
		WillReturnRows(paymentRow("confirmed", raw))

	txn, err := NewPaymentRepository(db).Update(ctx, "pay-1", &domain.PaymentUpdate{
		StatusID: &status, PaymentMethod: &method, GatewayResponse: raw, PaidAt: &now,
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentConfirmed, txn.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE payment_transactions SET status_id = \$1(.|\n)+WHERE registration_id = \$2 AND status_id = \$3`).
		WithArgs(int64(4), "reg-1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE status_id = \$2 AND expires_at < \$3`).
		WithArgs(int64(4), int64(1), now).
		WillReturnResult(sqlmock.NewResult(0, 5))

	repo := NewPaymentRepository(db)
	n, err := repo.TransitionForRegistration(ctx, "reg-1", 1, 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = repo.ExpireOverdue(ctx, now, 1, 4)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

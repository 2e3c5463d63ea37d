package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"oriyet/internal/domain"
)

const registrationColumns = `
	SELECT r.id, r.event_id, r.user_id, r.registration_number, rs.code, ps.code,
		r.payment_amount, r.confirmed_at, r.cancelled_at, r.cancel_reason, r.created_at, r.updated_at
	FROM event_registrations r
	JOIN event_registration_statuses rs ON rs.id = r.status_id
	JOIN payment_statuses ps ON ps.id = r.payment_status_id`

func scanRegistration(s rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var amountNull sql.NullFloat64
	var confirmedNull, cancelledNull sql.NullTime
	var reasonNull sql.NullString
	err := s.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.RegistrationNumber, &reg.Status, &reg.PaymentStatus,
		&amountNull, &confirmedNull, &cancelledNull, &reasonNull, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amountNull.Valid {
		reg.PaymentAmount = &amountNull.Float64
	}
	if confirmedNull.Valid {
		reg.ConfirmedAt = &confirmedNull.Time
	}
	if cancelledNull.Valid {
		reg.CancelledAt = &cancelledNull.Time
	}
	if reasonNull.Valid {
		reg.CancelReason = &reasonNull.String
	}
	return reg, nil
}

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration, statusID, paymentStatusID int64) error {
	query := `
		INSERT INTO event_registrations (event_id, user_id, registration_number, status_id, payment_status_id,
			payment_amount, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		reg.EventID, reg.UserID, reg.RegistrationNumber, statusID, paymentStatusID,
		reg.PaymentAmount, reg.ConfirmedAt, reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return domain.ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	reg, err := scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, registrationColumns+" WHERE r.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID string, statusIDs []int64) (*domain.Registration, error) {
	query := registrationColumns + `
		WHERE r.event_id = $1 AND r.user_id = $2 AND r.status_id = ANY($3)
		ORDER BY r.created_at DESC
		LIMIT 1
		FOR UPDATE OF r
	`
	reg, err := scanRegistration(conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, userID, pq.Array(statusIDs)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) DeleteByEventAndUser(ctx context.Context, eventID, userID string, statusID int64) (int64, error) {
	query := `DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2 AND status_id = $3`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, eventID, userID, statusID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *registrationRepository) Update(ctx context.Context, id string, u *domain.RegistrationUpdate) (*domain.Registration, error) {
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
	if u.PaymentStatusID != nil {
		add("payment_status_id", *u.PaymentStatusID)
	}
	if u.PaymentAmount != nil {
		add("payment_amount", *u.PaymentAmount)
	}
	if u.ConfirmedAt != nil {
		add("confirmed_at", *u.ConfirmedAt)
	}
	if u.CancelledAt != nil {
		add("cancelled_at", *u.CancelledAt)
	}
	if u.CancelReason != nil {
		add("cancel_reason", *u.CancelReason)
	}
	if n == 1 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE event_registrations SET %s WHERE id = $%d RETURNING id`, strings.Join(setClauses, ", "), n)
	var updatedID string
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, updatedID)
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string, statusIDs []int64) ([]*domain.Registration, error) {
	query := registrationColumns + `
		WHERE r.user_id = $1 AND r.status_id = ANY($2)
		ORDER BY r.created_at DESC
	`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, userID, pq.Array(statusIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string, statusID *int64, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	where := "r.event_id = $1"
	args := []any{eventID}
	if statusID != nil {
		where += " AND r.status_id = $2"
		args = append(args, *statusID)
	}
	db := conn(ctx, r.DB)
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args) + 1
	query := registrationColumns + " WHERE " + where + fmt.Sprintf(" ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d", n, n+1)
	args = append(args, params.Limit(), params.Offset())
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"oriyet/internal/domain"
)

const certificateColumns = `
	SELECT c.id, c.certificate_id, c.registration_id, c.user_id, c.event_id, c.is_valid,
		c.revoked_at, c.revoke_reason, c.verification_count, c.last_verified_at, c.issued_at,
		e.title, u.name
	FROM certificates c
	JOIN events e ON e.id = c.event_id
	JOIN users u ON u.id = c.user_id`

func scanCertificate(s rowScanner) (*domain.Certificate, error) {
	c := &domain.Certificate{}
	var revokedNull, verifiedNull sql.NullTime
	var registrationNull, reasonNull sql.NullString
	err := s.Scan(
		&c.ID, &c.CertificateID, &registrationNull, &c.UserID, &c.EventID, &c.IsValid,
		&revokedNull, &reasonNull, &c.VerificationCount, &verifiedNull, &c.IssuedAt,
		&c.EventTitle, &c.RecipientName,
	)
	if err != nil {
		return nil, err
	}
	c.RegistrationID = registrationNull.String
	if revokedNull.Valid {
		c.RevokedAt = &revokedNull.Time
	}
	c.RevokeReason = nullString(reasonNull)
	if verifiedNull.Valid {
		c.LastVerifiedAt = &verifiedNull.Time
	}
	return c, nil
}

type certificateRepository struct {
	DB *sql.DB
}

func NewCertificateRepository(db *sql.DB) domain.CertificateRepository {
	return &certificateRepository{DB: db}
}

func (r *certificateRepository) Create(ctx context.Context, c *domain.Certificate) error {
	query := `
		INSERT INTO certificates (certificate_id, registration_id, user_id, event_id, is_valid, issued_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		c.CertificateID, c.RegistrationID, c.UserID, c.EventID, c.IssuedAt,
	).Scan(&c.ID)
}

func (r *certificateRepository) getOne(ctx context.Context, where string, arg any) (*domain.Certificate, error) {
	c, err := scanCertificate(conn(ctx, r.DB).QueryRowContext(ctx, certificateColumns+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *certificateRepository) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Certificate, error) {
	return r.getOne(ctx, "c.registration_id = $1", registrationID)
}

func (r *certificateRepository) GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return r.getOne(ctx, "c.certificate_id = $1", certificateID)
}

func (r *certificateRepository) RecordVerification(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE certificates SET verification_count = verification_count + 1, last_verified_at = $1
		WHERE id = $2
	`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, at, id)
	return err
}

func (r *certificateRepository) RevokeByRegistrationID(ctx context.Context, registrationID, reason string, at time.Time) (int64, error) {
	query := `
		UPDATE certificates SET is_valid = FALSE, revoked_at = $1, revoke_reason = $2
		WHERE registration_id = $3 AND is_valid = TRUE
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, at, reason, registrationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

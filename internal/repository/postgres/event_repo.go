package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"oriyet/internal/domain"
)

const eventColumns = `
	SELECT e.id, e.title, e.slug, e.description, e.start_date, e.end_date, e.registration_deadline,
		e.max_participants, e.current_participants, e.is_free, e.price, e.currency,
		et.code, em.code, es.code, rs.code, e.is_published, e.has_certificate,
		e.video_link, e.session_summary, op.code, e.online_link, e.created_by, e.created_at, e.updated_at
	FROM events e
	JOIN event_types et ON et.id = e.event_type_id
	JOIN event_modes em ON em.id = e.event_mode_id
	JOIN event_statuses es ON es.id = e.event_status_id
	JOIN registration_statuses rs ON rs.id = e.registration_status_id
	LEFT JOIN online_platforms op ON op.id = e.online_platform_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, videoNull, summaryNull, platformNull, linkNull sql.NullString
	var deadlineNull sql.NullTime
	var maxNull sql.NullInt64
	err := s.Scan(
		&e.ID, &e.Title, &e.Slug, &descNull, &e.StartDate, &e.EndDate, &deadlineNull,
		&maxNull, &e.CurrentParticipants, &e.IsFree, &e.Price, &e.Currency,
		&e.EventType, &e.EventMode, &e.Status, &e.RegistrationStatus, &e.IsPublished, &e.HasCertificate,
		&videoNull, &summaryNull, &platformNull, &linkNull, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if deadlineNull.Valid {
		e.RegistrationDeadline = &deadlineNull.Time
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		e.MaxParticipants = &m
	}
	if videoNull.Valid {
		e.VideoLink = &videoNull.String
	}
	if summaryNull.Valid {
		e.SessionSummary = &summaryNull.String
	}
	if platformNull.Valid {
		p := domain.OnlinePlatform(platformNull.String)
		e.OnlinePlatform = &p
	}
	if linkNull.Valid {
		e.OnlineLink = &linkNull.String
	}
	return e, nil
}

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event, refs domain.EventRefs) error {
	query := `
		INSERT INTO events (title, slug, description, start_date, end_date, registration_deadline,
			max_participants, current_participants, is_free, price, currency,
			event_type_id, event_mode_id, event_status_id, registration_status_id,
			is_published, has_certificate, online_platform_id, online_link, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, e.Slug, e.Description, e.StartDate, e.EndDate, e.RegistrationDeadline,
		e.MaxParticipants, e.IsFree, e.Price, e.Currency,
		refs.EventTypeID, refs.EventModeID, refs.EventStatusID, refs.RegistrationStatusID,
		e.IsPublished, e.HasCertificate, refs.OnlinePlatformID, e.OnlineLink, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *eventRepository) getOne(ctx context.Context, where string, arg any) (*domain.Event, error) {
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, eventColumns+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.getOne(ctx, "e.id = $1", id)
}

func (r *eventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	return r.getOne(ctx, "e.slug = $1", strings.ToLower(strings.TrimSpace(slug)))
}

func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.getOne(ctx, "e.id = $1 FOR UPDATE OF e", id)
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var where []string
	var args []any
	n := 1
	if filter.PublishedOnly {
		where = append(where, "e.is_published = TRUE")
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("es.code = $%d", n))
		args = append(args, string(*filter.Status))
		n++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("e.title ILIKE $%d", n))
		args = append(args, "%"+filter.Search+"%")
		n++
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	db := conn(ctx, r.DB)
	var total int
	countQuery := `SELECT COUNT(*) FROM events e JOIN event_statuses es ON es.id = e.event_status_id` + whereSQL
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := eventColumns + whereSQL + fmt.Sprintf(" ORDER BY e.start_date ASC LIMIT $%d OFFSET $%d", n, n+1)
	args = append(args, params.Limit(), params.Offset())
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, p *domain.EventPatch) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Slug != nil {
		add("slug", *p.Slug)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.StartDate != nil {
		add("start_date", *p.StartDate)
	}
	if p.EndDate != nil {
		add("end_date", *p.EndDate)
	}
	if p.RegistrationDeadline != nil {
		add("registration_deadline", *p.RegistrationDeadline)
	}
	if p.MaxParticipants != nil {
		add("max_participants", *p.MaxParticipants)
	}
	if p.IsFree != nil {
		add("is_free", *p.IsFree)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if p.EventTypeID != nil {
		add("event_type_id", *p.EventTypeID)
	}
	if p.EventModeID != nil {
		add("event_mode_id", *p.EventModeID)
	}
	if p.EventStatusID != nil {
		add("event_status_id", *p.EventStatusID)
	}
	if p.RegistrationStatusID != nil {
		add("registration_status_id", *p.RegistrationStatusID)
	}
	if p.IsPublished != nil {
		add("is_published", *p.IsPublished)
	}
	if p.HasCertificate != nil {
		add("has_certificate", *p.HasCertificate)
	}
	if p.VideoLink != nil {
		add("video_link", *p.VideoLink)
	}
	if p.SessionSummary != nil {
		add("session_summary", *p.SessionSummary)
	}
	if p.OnlinePlatformID != nil {
		add("online_platform_id", *p.OnlinePlatformID)
	}
	if p.OnlineLink != nil {
		add("online_link", *p.OnlineLink)
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d RETURNING id`, strings.Join(setClauses, ", "), n)
	var updatedID string
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, args...).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}
	return r.GetByID(ctx, updatedID)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// transition runs one conditional status UPDATE. predicate may reference $1 (now).
// A non-empty id restricts the update to that event.
func (r *eventRepository) transition(ctx context.Context, predicate string, now time.Time, t domain.StatusTransition, id string) (int64, error) {
	setClauses := []string{"event_status_id = $2", "updated_at = NOW()"}
	args := []any{now, t.ToStatusID, pq.Array(t.FromStatusIDs)}
	n := 4
	if t.RegistrationStatusID != nil {
		setClauses = append(setClauses, fmt.Sprintf("registration_status_id = $%d", n))
		args = append(args, *t.RegistrationStatusID)
		n++
	}
	if id != "" {
		predicate += fmt.Sprintf(" AND id = $%d", n)
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE events SET %s WHERE event_status_id = ANY($3) AND %s`,
		strings.Join(setClauses, ", "), predicate)
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *eventRepository) CompleteEnded(ctx context.Context, id string, now time.Time, t domain.StatusTransition) (bool, error) {
	rows, err := r.transition(ctx, "end_date < $1", now, t, id)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *eventRepository) StartDue(ctx context.Context, now time.Time, t domain.StatusTransition) (int64, error) {
	return r.transition(ctx, "start_date <= $1 AND end_date >= $1", now, t, "")
}

func (r *eventRepository) CompleteDue(ctx context.Context, now time.Time, t domain.StatusTransition) (int64, error) {
	return r.transition(ctx, "end_date < $1", now, t, "")
}

func (r *eventRepository) IncrementParticipants(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		UPDATE events SET current_participants = current_participants + 1, updated_at = NOW()
		WHERE id = $1 AND (max_participants IS NULL OR current_participants < max_participants)
		RETURNING id
	`
	var updatedID string
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCapacityReached
		}
		return nil, err
	}
	return r.GetByID(ctx, updatedID)
}

func (r *eventRepository) DecrementParticipants(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		UPDATE events SET current_participants = GREATEST(current_participants - 1, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`
	var updatedID string
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, updatedID)
}

func (r *eventRepository) SetRegistrationStatus(ctx context.Context, id string, registrationStatusID int64) error {
	query := `UPDATE events SET registration_status_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, registrationStatusID, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

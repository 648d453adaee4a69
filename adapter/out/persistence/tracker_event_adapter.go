package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tracker_server/core/domain"
)

// EventAdapter implements out.EventRepository on PostgreSQL.
type EventAdapter struct {
	db queryer
}

// NewEventAdapter creates an event repository.
func NewEventAdapter(db queryer) *EventAdapter {
	return &EventAdapter{db: db}
}

const eventColumns = `
	id, user_id, message_id,
	detected_type, confidence_score, classification_confidence,
	sender, subject, snippet, internal_date,
	application_id, reason_code, reason_detail, created_at`

func (a *EventAdapter) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE id = $1`

	var row eventRow
	if err := sqlx.GetContext(ctx, a.db, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translate("get event", err)
	}
	return row.toDomain(), nil
}

func (a *EventAdapter) GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE user_id = $1 AND message_id = $2`

	var row eventRow
	if err := sqlx.GetContext(ctx, a.db, &row, query, userID, messageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translate("get event by message id", err)
	}
	return row.toDomain(), nil
}

func (a *EventAdapter) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE application_id = $1
		ORDER BY internal_date ASC`

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, query, applicationID); err != nil {
		return nil, translate("list events by application", err)
	}
	return rowsToDomain(rows), nil
}

func (a *EventAdapter) ListUnassigned(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE user_id = $1 AND application_id IS NULL
		ORDER BY internal_date DESC
		LIMIT $2`

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, query, userID, limit); err != nil {
		return nil, translate("list unassigned events", err)
	}
	return rowsToDomain(rows), nil
}

func (a *EventAdapter) ListUnassignedByReasons(ctx context.Context, userID uuid.UUID, reasons []domain.ReasonCode, limit int) ([]*domain.Event, error) {
	if len(reasons) == 0 {
		return a.ListUnassigned(ctx, userID, limit)
	}
	if limit <= 0 {
		limit = 100
	}

	codes := make([]string, len(reasons))
	for i, reason := range reasons {
		codes[i] = string(reason)
	}
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE user_id = $1 AND application_id IS NULL AND reason_code = ANY($2)
		ORDER BY internal_date DESC
		LIMIT $3`

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, query, userID, pq.Array(codes), limit); err != nil {
		return nil, translate("list unassigned events by reason", err)
	}
	return rowsToDomain(rows), nil
}

func (a *EventAdapter) Insert(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (
			id, user_id, message_id,
			detected_type, confidence_score, classification_confidence,
			sender, subject, snippet, internal_date,
			application_id, reason_code, reason_detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	row := eventRowFrom(event)
	_, err := a.db.ExecContext(ctx, query,
		row.ID, row.UserID, row.MessageID,
		row.DetectedType, row.ConfidenceScore, row.ClassificationConfidence,
		row.Sender, row.Subject, row.Snippet, row.InternalDate,
		row.ApplicationID, row.ReasonCode, row.ReasonDetail, row.CreatedAt)
	if err != nil {
		return translate("insert event", err)
	}
	return nil
}

func (a *EventAdapter) Update(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events SET
			detected_type = $2,
			confidence_score = $3,
			classification_confidence = $4,
			sender = $5,
			subject = $6,
			snippet = $7,
			internal_date = $8,
			application_id = $9,
			reason_code = $10,
			reason_detail = $11
		WHERE id = $1`

	row := eventRowFrom(event)
	result, err := a.db.ExecContext(ctx, query,
		row.ID,
		row.DetectedType, row.ConfidenceScore, row.ClassificationConfidence,
		row.Sender, row.Subject, row.Snippet, row.InternalDate,
		row.ApplicationID, row.ReasonCode, row.ReasonDetail)
	if err != nil {
		return translate("update event", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update event: no row with id %d", event.ID)
	}
	return nil
}

func (a *EventAdapter) SetApplication(ctx context.Context, eventID int64, applicationID *uuid.UUID) error {
	query := `
		UPDATE events SET
			application_id = $2,
			reason_code = NULL,
			reason_detail = NULL
		WHERE id = $1`

	var appID interface{}
	if applicationID != nil {
		appID = *applicationID
	}
	result, err := a.db.ExecContext(ctx, query, eventID, appID)
	if err != nil {
		return translate("set event application", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set event application: no row with id %d", eventID)
	}
	return nil
}

// =============================================================================
// Row mapping
// =============================================================================

type eventRow struct {
	ID                       int64          `db:"id"`
	UserID                   uuid.UUID      `db:"user_id"`
	MessageID                string         `db:"message_id"`
	DetectedType             string         `db:"detected_type"`
	ConfidenceScore          float64        `db:"confidence_score"`
	ClassificationConfidence float64        `db:"classification_confidence"`
	Sender                   string         `db:"sender"`
	Subject                  string         `db:"subject"`
	Snippet                  sql.NullString `db:"snippet"`
	InternalDate             time.Time      `db:"internal_date"`
	ApplicationID            *uuid.UUID     `db:"application_id"`
	ReasonCode               sql.NullString `db:"reason_code"`
	ReasonDetail             sql.NullString `db:"reason_detail"`
	CreatedAt                time.Time      `db:"created_at"`
}

func (r eventRow) toDomain() *domain.Event {
	event := &domain.Event{
		ID:                       r.ID,
		UserID:                   r.UserID,
		MessageID:                r.MessageID,
		DetectedType:             domain.EventType(r.DetectedType),
		ConfidenceScore:          r.ConfidenceScore,
		ClassificationConfidence: r.ClassificationConfidence,
		Sender:                   r.Sender,
		Subject:                  r.Subject,
		Snippet:                  r.Snippet.String,
		InternalDate:             r.InternalDate,
		ApplicationID:            r.ApplicationID,
		CreatedAt:                r.CreatedAt,
	}
	if r.ReasonCode.Valid {
		reason := domain.ReasonCode(r.ReasonCode.String)
		event.ReasonCode = &reason
	}
	if r.ReasonDetail.Valid {
		detail := r.ReasonDetail.String
		event.ReasonDetail = &detail
	}
	return event
}

func eventRowFrom(event *domain.Event) eventRow {
	row := eventRow{
		ID:                       event.ID,
		UserID:                   event.UserID,
		MessageID:                event.MessageID,
		DetectedType:             string(event.DetectedType),
		ConfidenceScore:          event.ConfidenceScore,
		ClassificationConfidence: event.ClassificationConfidence,
		Sender:                   event.Sender,
		Subject:                  event.Subject,
		InternalDate:             event.InternalDate,
		ApplicationID:            event.ApplicationID,
		CreatedAt:                event.CreatedAt,
	}
	if event.Snippet != "" {
		row.Snippet = sql.NullString{String: event.Snippet, Valid: true}
	}
	if event.ReasonCode != nil {
		row.ReasonCode = sql.NullString{String: string(*event.ReasonCode), Valid: true}
	}
	if event.ReasonDetail != nil {
		row.ReasonDetail = sql.NullString{String: *event.ReasonDetail, Valid: true}
	}
	return row
}

func rowsToDomain(rows []eventRow) []*domain.Event {
	events := make([]*domain.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toDomain()
	}
	return events
}

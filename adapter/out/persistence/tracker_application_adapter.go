package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tracker_server/core/domain"
)

// ApplicationAdapter implements out.ApplicationRepository on PostgreSQL.
// It runs against either a bare connection pool or a transaction, so the
// same code serves both sides of Store.WithinTx.
type ApplicationAdapter struct {
	db queryer
}

// queryer is satisfied by *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// NewApplicationAdapter creates an application repository.
func NewApplicationAdapter(db queryer) *ApplicationAdapter {
	return &ApplicationAdapter{db: db}
}

const applicationColumns = `
	id, user_id, company_name, job_title, source,
	current_status, status_confidence, status_source,
	suggested_status, suggested_confidence,
	user_override, archived,
	applied_at, last_activity_at, created_at, updated_at`

func (a *ApplicationAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE id = $1`

	var row applicationRow
	if err := sqlx.GetContext(ctx, a.db, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translate("get application", err)
	}
	return row.toDomain(), nil
}

func (a *ApplicationAdapter) Find(ctx context.Context, userID uuid.UUID, filter *domain.ApplicationFilter) ([]*domain.Application, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIdx := 2

	if filter != nil {
		if filter.CompanyName != nil {
			conditions = append(conditions, fmt.Sprintf("LOWER(company_name) = LOWER($%d)", argIdx))
			args = append(args, *filter.CompanyName)
			argIdx++
		}
		if filter.JobTitle != nil {
			conditions = append(conditions, fmt.Sprintf("LOWER(job_title) = LOWER($%d)", argIdx))
			args = append(args, *filter.JobTitle)
			argIdx++
		}
		if filter.Source != nil {
			conditions = append(conditions, fmt.Sprintf("source = $%d", argIdx))
			args = append(args, *filter.Source)
			argIdx++
		}
		if filter.Archived != nil {
			conditions = append(conditions, fmt.Sprintf("archived = $%d", argIdx))
			args = append(args, *filter.Archived)
			argIdx++
		}
	}

	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY last_activity_at DESC`

	var rows []applicationRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, query, args...); err != nil {
		return nil, translate("find applications", err)
	}

	apps := make([]*domain.Application, len(rows))
	for i, row := range rows {
		apps[i] = row.toDomain()
	}
	return apps, nil
}

func (a *ApplicationAdapter) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Application, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE archived = FALSE
		  AND user_override = FALSE
		  AND current_status = ANY($1)
		  AND last_activity_at < $2
		ORDER BY last_activity_at ASC
		LIMIT $3`

	waiting := pq.Array([]string{
		string(domain.StatusApplied),
		string(domain.StatusUnderReview),
	})

	var rows []applicationRow
	if err := sqlx.SelectContext(ctx, a.db, &rows, query, waiting, cutoff, limit); err != nil {
		return nil, translate("list stale applications", err)
	}

	apps := make([]*domain.Application, len(rows))
	for i, row := range rows {
		apps[i] = row.toDomain()
	}
	return apps, nil
}

func (a *ApplicationAdapter) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (
			id, user_id, company_name, job_title, source,
			current_status, status_confidence, status_source,
			suggested_status, suggested_confidence,
			user_override, archived,
			applied_at, last_activity_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	row := applicationRowFrom(app)
	_, err := a.db.ExecContext(ctx, query,
		row.ID, row.UserID, row.CompanyName, row.JobTitle, row.Source,
		row.CurrentStatus, row.StatusConfidence, row.StatusSource,
		row.SuggestedStatus, row.SuggestedConfidence,
		row.UserOverride, row.Archived,
		row.AppliedAt, row.LastActivityAt, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return translate("create application", err)
	}
	return nil
}

func (a *ApplicationAdapter) Update(ctx context.Context, app *domain.Application) error {
	query := `
		UPDATE applications SET
			company_name = $2,
			job_title = $3,
			source = $4,
			current_status = $5,
			status_confidence = $6,
			status_source = $7,
			suggested_status = $8,
			suggested_confidence = $9,
			user_override = $10,
			archived = $11,
			applied_at = $12,
			last_activity_at = $13,
			updated_at = $14
		WHERE id = $1`

	row := applicationRowFrom(app)
	result, err := a.db.ExecContext(ctx, query,
		row.ID, row.CompanyName, row.JobTitle, row.Source,
		row.CurrentStatus, row.StatusConfidence, row.StatusSource,
		row.SuggestedStatus, row.SuggestedConfidence,
		row.UserOverride, row.Archived,
		row.AppliedAt, row.LastActivityAt, row.UpdatedAt)
	if err != nil {
		return translate("update application", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update application: no row with id %s", app.ID)
	}
	return nil
}

// =============================================================================
// Row mapping
// =============================================================================

type applicationRow struct {
	ID                  uuid.UUID       `db:"id"`
	UserID              uuid.UUID       `db:"user_id"`
	CompanyName         string          `db:"company_name"`
	JobTitle            sql.NullString  `db:"job_title"`
	Source              sql.NullString  `db:"source"`
	CurrentStatus       string          `db:"current_status"`
	StatusConfidence    float64         `db:"status_confidence"`
	StatusSource        string          `db:"status_source"`
	SuggestedStatus     sql.NullString  `db:"suggested_status"`
	SuggestedConfidence sql.NullFloat64 `db:"suggested_confidence"`
	UserOverride        bool            `db:"user_override"`
	Archived            bool            `db:"archived"`
	AppliedAt           sql.NullTime    `db:"applied_at"`
	LastActivityAt      time.Time       `db:"last_activity_at"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (r applicationRow) toDomain() *domain.Application {
	app := &domain.Application{
		ID:               r.ID,
		UserID:           r.UserID,
		CompanyName:      r.CompanyName,
		JobTitle:         r.JobTitle.String,
		Source:           r.Source.String,
		CurrentStatus:    domain.ApplicationStatus(r.CurrentStatus),
		StatusConfidence: r.StatusConfidence,
		StatusSource:     domain.StatusSource(r.StatusSource),
		UserOverride:     r.UserOverride,
		Archived:         r.Archived,
		LastActivityAt:   r.LastActivityAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.SuggestedStatus.Valid {
		s := domain.ApplicationStatus(r.SuggestedStatus.String)
		app.SuggestedStatus = &s
	}
	if r.SuggestedConfidence.Valid {
		app.SuggestedConfidence = r.SuggestedConfidence.Float64
	}
	if r.AppliedAt.Valid {
		t := r.AppliedAt.Time
		app.AppliedAt = &t
	}
	return app
}

func applicationRowFrom(app *domain.Application) applicationRow {
	row := applicationRow{
		ID:               app.ID,
		UserID:           app.UserID,
		CompanyName:      app.CompanyName,
		CurrentStatus:    string(app.CurrentStatus),
		StatusConfidence: app.StatusConfidence,
		StatusSource:     string(app.StatusSource),
		UserOverride:     app.UserOverride,
		Archived:         app.Archived,
		LastActivityAt:   app.LastActivityAt,
		CreatedAt:        app.CreatedAt,
		UpdatedAt:        app.UpdatedAt,
	}
	if app.JobTitle != "" {
		row.JobTitle = sql.NullString{String: app.JobTitle, Valid: true}
	}
	if app.Source != "" {
		row.Source = sql.NullString{String: app.Source, Valid: true}
	}
	if app.SuggestedStatus != nil {
		row.SuggestedStatus = sql.NullString{String: string(*app.SuggestedStatus), Valid: true}
		row.SuggestedConfidence = sql.NullFloat64{Float64: app.SuggestedConfidence, Valid: true}
	}
	if app.AppliedAt != nil {
		row.AppliedAt = sql.NullTime{Time: *app.AppliedAt, Valid: true}
	}
	return row
}

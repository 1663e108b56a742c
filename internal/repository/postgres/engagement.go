package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/engagement-tracker/internal/domain"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// EngagementRepo implements engagement.Repository against PostgreSQL.
type EngagementRepo struct{ db *sql.DB }

// NewEngagementRepo creates a Postgres-backed engagement repository.
func NewEngagementRepo(db *sql.DB) *EngagementRepo { return &EngagementRepo{db: db} }

var _ engagement.Repository = (*EngagementRepo)(nil)

func (r *EngagementRepo) Register(ctx context.Context, c *domain.Contact, rec *domain.TrackingRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	var name sql.NullString
	err = tx.QueryRowContext(ctx, `
		INSERT INTO contacts (id, email, name, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (email) DO UPDATE
			SET name = COALESCE(EXCLUDED.name, contacts.name),
			    updated_at = EXCLUDED.updated_at
		RETURNING id, name, opened, clicked, created_at
	`, c.ID, c.Email, c.Name, c.CreatedAt, c.UpdatedAt).Scan(
		&c.ID, &name, &c.Opened, &c.Clicked, &c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	c.Name = name.String

	rec.ContactID = c.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracking_records (tracking_id, contact_id, campaign_name, sent_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`, rec.TrackingID, rec.ContactID, rec.CampaignName, rec.SentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert tracking record: %w", engagement.ErrDuplicateTrackingID)
		}
		return fmt.Errorf("insert tracking record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

// eventQueries pairs the record stamp with its contact cascade.
type eventQueries struct {
	record  string
	contact string
}

var eventSQL = map[domain.TrackingEventType]eventQueries{
	domain.EventOpen: {
		record:  `UPDATE tracking_records SET opened_at = $2 WHERE tracking_id = $1 RETURNING contact_id`,
		contact: `UPDATE contacts SET opened = TRUE, last_opened_at = $2, updated_at = $2 WHERE id = $1`,
	},
	domain.EventClick: {
		record:  `UPDATE tracking_records SET clicked_at = $2 WHERE tracking_id = $1 RETURNING contact_id`,
		contact: `UPDATE contacts SET clicked = TRUE, last_clicked_at = $2, updated_at = $2 WHERE id = $1`,
	},
}

func (r *EngagementRepo) RecordEvent(ctx context.Context, trackingID string, event domain.TrackingEventType, at time.Time) error {
	q, ok := eventSQL[event]
	if !ok {
		return fmt.Errorf("unknown event type: %s", event)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", event, err)
	}
	defer tx.Rollback()

	var contactID string
	err = tx.QueryRowContext(ctx, q.record, trackingID, at).Scan(&contactID)
	if errors.Is(err, sql.ErrNoRows) {
		return engagement.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("stamp tracking record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, q.contact, contactID, at); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", event, err)
	}
	return nil
}

func (r *EngagementRepo) Counts(ctx context.Context) (domain.EngagementCounts, error) {
	var c domain.EngagementCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE opened),
		       COUNT(*) FILTER (WHERE clicked)
		FROM contacts
	`).Scan(&c.Total, &c.Opened, &c.Clicked)
	if err != nil {
		return domain.EngagementCounts{}, fmt.Errorf("count contacts: %w", err)
	}
	return c, nil
}

var filterWhere = map[domain.ContactFilter]string{
	domain.FilterClicked:  " WHERE clicked",
	domain.FilterOpened:   " WHERE opened AND NOT clicked",
	domain.FilterInactive: " WHERE NOT opened",
}

func (r *EngagementRepo) ListContacts(ctx context.Context, f domain.ContactFilter) ([]domain.ContactSummary, error) {
	q := `SELECT COALESCE(name, ''), email FROM contacts` + filterWhere[f] + ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := []domain.ContactSummary{}
	for rows.Next() {
		var s domain.ContactSummary
		if err := rows.Scan(&s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

func (r *EngagementRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

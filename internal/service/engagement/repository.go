package engagement

import (
	"context"
	"time"

	"github.com/ignite/engagement-tracker/internal/domain"
)

// Repository defines the data access contract for contacts and tracking
// records. Implementations must be safe for concurrent use.
type Repository interface {
	// Register upserts the contact by email and inserts the tracking record
	// as one atomic unit. On success c.ID and rec.ContactID hold the id of the
	// stored contact, which may predate this call. A blank c.Name keeps the
	// stored name.
	Register(ctx context.Context, c *domain.Contact, rec *domain.TrackingRecord) error

	// RecordEvent stamps the tracking record and cascades the engagement flag
	// and timestamp onto its contact atomically. Returns ErrNotFound if no
	// record carries the tracking id.
	RecordEvent(ctx context.Context, trackingID string, event domain.TrackingEventType, at time.Time) error

	// Counts returns total, opened and clicked contact counts from a single
	// consistent read.
	Counts(ctx context.Context) (domain.EngagementCounts, error)

	// ListContacts returns contacts matching the filter in creation order.
	ListContacts(ctx context.Context, f domain.ContactFilter) ([]domain.ContactSummary, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Package memory provides an in-process engagement.Repository. It backs
// local development (database.driver: memory) and handler tests; all state
// is lost on restart.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/engagement-tracker/internal/domain"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
)

// EngagementRepo implements engagement.Repository in memory. A single mutex
// serializes writes, so event cascades are atomic with respect to readers.
type EngagementRepo struct {
	mu       sync.RWMutex
	contacts map[string]*domain.Contact // keyed by id
	byEmail  map[string]string          // email -> contact id
	order    []string                   // contact ids in creation order
	records  map[string]*domain.TrackingRecord
}

// NewEngagementRepo creates an empty repository.
func NewEngagementRepo() *EngagementRepo {
	return &EngagementRepo{
		contacts: make(map[string]*domain.Contact),
		byEmail:  make(map[string]string),
		records:  make(map[string]*domain.TrackingRecord),
	}
}

var _ engagement.Repository = (*EngagementRepo)(nil)

func (r *EngagementRepo) Register(_ context.Context, c *domain.Contact, rec *domain.TrackingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.TrackingID]; exists {
		return engagement.ErrDuplicateTrackingID
	}

	if id, ok := r.byEmail[c.Email]; ok {
		existing := r.contacts[id]
		if c.Name != "" {
			existing.Name = c.Name
		}
		existing.UpdatedAt = c.UpdatedAt
		*c = *existing
	} else {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		cp := *c
		r.contacts[cp.ID] = &cp
		r.byEmail[cp.Email] = cp.ID
		r.order = append(r.order, cp.ID)
	}

	rec.ContactID = c.ID
	cp := *rec
	r.records[cp.TrackingID] = &cp
	return nil
}

func (r *EngagementRepo) RecordEvent(_ context.Context, trackingID string, event domain.TrackingEventType, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[trackingID]
	if !ok {
		return engagement.ErrNotFound
	}
	c := r.contacts[rec.ContactID]

	ts := at
	switch event {
	case domain.EventOpen:
		rec.OpenedAt = &ts
		c.Opened = true
		c.LastOpenedAt = &ts
	case domain.EventClick:
		rec.ClickedAt = &ts
		c.Clicked = true
		c.LastClickedAt = &ts
	default:
		return errors.New("unknown event type: " + string(event))
	}
	c.UpdatedAt = at
	return nil
}

func (r *EngagementRepo) Counts(_ context.Context) (domain.EngagementCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := domain.EngagementCounts{Total: len(r.contacts)}
	for _, c := range r.contacts {
		if c.Opened {
			counts.Opened++
		}
		if c.Clicked {
			counts.Clicked++
		}
	}
	return counts, nil
}

func (r *EngagementRepo) ListContacts(_ context.Context, f domain.ContactFilter) ([]domain.ContactSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.ContactSummary{}
	for _, id := range r.order {
		c := r.contacts[id]
		if f.Matches(*c) {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}

func (r *EngagementRepo) Ping(_ context.Context) error { return nil }

// Contact returns a copy of the contact stored for a normalized email.
func (r *EngagementRepo) Contact(email string) (domain.Contact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.Contact{}, false
	}
	return *r.contacts[id], true
}

// TrackingRecord returns a copy of the stored record for a tracking id.
func (r *EngagementRepo) TrackingRecord(trackingID string) (domain.TrackingRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[trackingID]
	if !ok {
		return domain.TrackingRecord{}, false
	}
	return *rec, true
}

// Len returns the number of contacts and tracking records.
func (r *EngagementRepo) Len() (contacts, records int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contacts), len(r.records)
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/engagement-tracker/internal/domain"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
)

func register(t *testing.T, r *EngagementRepo, email, name, trackingID string) *domain.Contact {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Contact{Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
	rec := &domain.TrackingRecord{TrackingID: trackingID, SentAt: now}
	require.NoError(t, r.Register(context.Background(), c, rec))
	require.Equal(t, c.ID, rec.ContactID)
	return c
}

func TestRegister_UpsertsByEmail(t *testing.T) {
	r := NewEngagementRepo()

	first := register(t, r, "a@example.com", "Alice", "t1")
	second := register(t, r, "a@example.com", "Alice Smith", "t2")

	assert.Equal(t, first.ID, second.ID)
	contacts, records := r.Len()
	assert.Equal(t, 1, contacts)
	assert.Equal(t, 2, records)

	c, ok := r.Contact("a@example.com")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", c.Name)
}

func TestRegister_BlankNameKeepsStoredName(t *testing.T) {
	r := NewEngagementRepo()
	register(t, r, "a@example.com", "Alice", "t1")
	register(t, r, "a@example.com", "", "t2")

	c, _ := r.Contact("a@example.com")
	assert.Equal(t, "Alice", c.Name)
}

func TestRegister_DuplicateTrackingIDRejected(t *testing.T) {
	r := NewEngagementRepo()
	register(t, r, "a@example.com", "", "t1")

	c := &domain.Contact{Email: "b@example.com"}
	err := r.Register(context.Background(), c, &domain.TrackingRecord{TrackingID: "t1"})
	assert.ErrorIs(t, err, engagement.ErrDuplicateTrackingID)

	_, ok := r.Contact("b@example.com")
	assert.False(t, ok, "contact must not be stored when the record insert fails")
}

func TestRecordEvent_CascadesToContact(t *testing.T) {
	r := NewEngagementRepo()
	register(t, r, "a@example.com", "", "t1")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, r.RecordEvent(context.Background(), "t1", domain.EventOpen, at))

	rec, _ := r.TrackingRecord("t1")
	require.NotNil(t, rec.OpenedAt)
	assert.Equal(t, at, *rec.OpenedAt)
	assert.Nil(t, rec.ClickedAt)

	c, _ := r.Contact("a@example.com")
	assert.True(t, c.Opened)
	assert.False(t, c.Clicked)
	require.NotNil(t, c.LastOpenedAt)
	assert.Equal(t, at, *c.LastOpenedAt)
}

func TestRecordEvent_UnknownID(t *testing.T) {
	r := NewEngagementRepo()
	err := r.RecordEvent(context.Background(), "missing", domain.EventClick, time.Now())
	assert.ErrorIs(t, err, engagement.ErrNotFound)
}

func TestRecordEvent_ConcurrentOpenAndClick(t *testing.T) {
	r := NewEngagementRepo()
	register(t, r, "c@example.com", "Cara", "t1")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.RecordEvent(context.Background(), "t1", domain.EventOpen, at))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, r.RecordEvent(context.Background(), "t1", domain.EventClick, at))
		}()
		go func() {
			defer wg.Done()
			_, err := r.Counts(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, ok := r.Contact("c@example.com")
	require.True(t, ok)
	assert.True(t, c.Opened)
	assert.True(t, c.Clicked)
	require.NotNil(t, c.LastOpenedAt)
	require.NotNil(t, c.LastClickedAt)

	rec, ok := r.TrackingRecord("t1")
	require.True(t, ok)
	require.NotNil(t, rec.OpenedAt)
	require.NotNil(t, rec.ClickedAt)
	assert.Equal(t, at, *rec.OpenedAt)
	assert.Equal(t, at, *c.LastOpenedAt)
}

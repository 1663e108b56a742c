package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/engagement-tracker/internal/domain"
	"github.com/ignite/engagement-tracker/internal/service/engagement"
)

func newMock(t *testing.T) (*EngagementRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEngagementRepo(db), mock
}

var testNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newContact() (*domain.Contact, *domain.TrackingRecord) {
	return &domain.Contact{Email: "a@example.com", Name: "Alice", CreatedAt: testNow, UpdatedAt: testNow},
		&domain.TrackingRecord{TrackingID: "0123456789abcdef0123456789abcdef", CampaignName: "spring", SentAt: testNow}
}

func TestRegister_CommitsUpsertAndRecord(t *testing.T) {
	repo, mock := newMock(t)
	c, rec := newContact()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO contacts").
		WithArgs(sqlmock.AnyArg(), "a@example.com", "Alice", testNow, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "opened", "clicked", "created_at"}).
			AddRow("contact-1", "Alice", true, false, testNow.Add(-time.Hour)))
	mock.ExpectExec("INSERT INTO tracking_records").
		WithArgs(rec.TrackingID, "contact-1", "spring", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Register(context.Background(), c, rec))

	assert.Equal(t, "contact-1", c.ID)
	assert.Equal(t, "contact-1", rec.ContactID)
	assert.True(t, c.Opened, "existing engagement flags are returned from the upsert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_RollsBackWhenRecordInsertFails(t *testing.T) {
	repo, mock := newMock(t)
	c, rec := newContact()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO contacts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "opened", "clicked", "created_at"}).
			AddRow("contact-1", "Alice", false, false, testNow))
	mock.ExpectExec("INSERT INTO tracking_records").
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Message: "duplicate key value"})
	mock.ExpectRollback()

	err := repo.Register(context.Background(), c, rec)
	assert.ErrorIs(t, err, engagement.ErrDuplicateTrackingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_RollsBackWhenUpsertFails(t *testing.T) {
	repo, mock := newMock(t)
	c, rec := newContact()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO contacts").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Register(context.Background(), c, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert contact")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_BeginFails(t *testing.T) {
	repo, mock := newMock(t)
	c, rec := newContact()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := repo.Register(context.Background(), c, rec)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_Open(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE tracking_records SET opened_at`).
		WithArgs("tid", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}).AddRow("contact-1"))
	mock.ExpectExec(`UPDATE contacts SET opened = TRUE`).
		WithArgs("contact-1", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordEvent(context.Background(), "tid", domain.EventOpen, testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_Click(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE tracking_records SET clicked_at`).
		WithArgs("tid", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}).AddRow("contact-1"))
	mock.ExpectExec(`UPDATE contacts SET clicked = TRUE`).
		WithArgs("contact-1", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordEvent(context.Background(), "tid", domain.EventClick, testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_UnknownTrackingID(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE tracking_records SET opened_at`).
		WithArgs("missing", testNow).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.RecordEvent(context.Background(), "missing", domain.EventOpen, testNow)
	assert.ErrorIs(t, err, engagement.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_ContactUpdateFailureRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE tracking_records SET opened_at`).
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}).AddRow("contact-1"))
	mock.ExpectExec(`UPDATE contacts SET opened = TRUE`).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.RecordEvent(context.Background(), "tid", domain.EventOpen, testNow)
	require.Error(t, err)
	assert.NotErrorIs(t, err, engagement.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_UnknownEventType(t *testing.T) {
	repo, mock := newMock(t)
	err := repo.RecordEvent(context.Background(), "tid", domain.TrackingEventType("bounce"), testNow)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounts(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "opened", "clicked"}).AddRow(10, 4, 2))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EngagementCounts{Total: 10, Opened: 4, Clicked: 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContacts_Filters(t *testing.T) {
	tests := []struct {
		filter domain.ContactFilter
		query  string
	}{
		{domain.FilterClicked, `FROM contacts WHERE clicked ORDER BY`},
		{domain.FilterOpened, `FROM contacts WHERE opened AND NOT clicked ORDER BY`},
		{domain.FilterInactive, `FROM contacts WHERE NOT opened ORDER BY`},
		{domain.FilterAll, `FROM contacts ORDER BY`},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			repo, mock := newMock(t)
			mock.ExpectQuery(tt.query).
				WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).
					AddRow("Alice", "a@example.com").
					AddRow("", "b@example.com"))

			list, err := repo.ListContacts(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, []domain.ContactSummary{
				{Name: "Alice", Email: "a@example.com"},
				{Name: "", Email: "b@example.com"},
			}, list)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListContacts_EmptyIsNonNil(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM contacts`).WillReturnRows(sqlmock.NewRows([]string{"name", "email"}))

	list, err := repo.ListContacts(context.Background(), domain.FilterAll)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, NewEngagementRepo(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

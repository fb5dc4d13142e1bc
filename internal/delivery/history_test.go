package delivery_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/domain"
)

func newMockRepo(t *testing.T) (*delivery.HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return delivery.NewHistoryRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func historyColumns() []string {
	return []string{"id", "external_id", "source_id", "title", "url", "delivered_at", "succeeded_platforms"}
}

func TestHistoryRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	deliveredAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	record := &domain.DeliveryRecord{
		ExternalID:         "vid-1",
		SourceID:           "longform",
		Title:              "A new upload",
		URL:                "https://videos.example/watch/vid-1",
		DeliveredAt:        deliveredAt,
		SucceededPlatforms: []string{"microblog_main", "pronet"},
	}

	mock.ExpectQuery("INSERT INTO delivery_history").
		WithArgs(
			sqlmock.AnyArg(), "vid-1", "longform", "A new upload",
			"https://videos.example/watch/vid-1", deliveredAt, sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows(historyColumns()).AddRow(
			"5aa2b4a1-46e7-4d0c-9c36-8a2a8b6e1f11", "vid-1", "longform", "A new upload",
			"https://videos.example/watch/vid-1", deliveredAt, []byte("{microblog_main,pronet}"),
		))

	entry, err := repo.Record(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "vid-1", entry.ExternalID)
	assert.Equal(t, []string{"microblog_main", "pronet"}, []string(entry.SucceededPlatforms))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecordDatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO delivery_history").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.Record(context.Background(), &domain.DeliveryRecord{
		ExternalID: "vid-1",
		SourceID:   "longform",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecent(t *testing.T) {
	repo, mock := newMockRepo(t)
	deliveredAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM delivery_history").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(historyColumns()).
			AddRow("5aa2b4a1-46e7-4d0c-9c36-8a2a8b6e1f11", "vid-2", "shorts", "Second", "https://videos.example/watch/vid-2", deliveredAt, []byte("{pinwall}")).
			AddRow("9bd7e0cc-0d6c-45ad-8f1e-2ad31c3b55a0", "vid-1", "longform", "First", "https://videos.example/watch/vid-1", deliveredAt.Add(-time.Hour), []byte("{microblog_main}")))

	entries, err := repo.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "vid-2", entries[0].ExternalID)
	assert.Equal(t, []string{"pinwall"}, []string(entries[0].SucceededPlatforms))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryCountSince(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

func TestBroadcastStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "template_id", "channel", "recipient_filter", "scheduled_at", "status",
		"total_recipients", "sent_count", "failed_count", "completed_at", "error_log",
		"created_at", "updated_at",
	}).AddRow(
		"bc-1", "August promo", "tpl-1", "email", []byte(`{"is_active": true}`), now, "scheduled",
		int64(0), int64(0), int64(0), nil, "",
		now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM broadcasts WHERE id").
		WithArgs("bc-1").
		WillReturnRows(rows)

	store := NewBroadcastStore(db)
	b, err := store.GetByID(context.Background(), "bc-1")

	require.NoError(t, err)
	assert.Equal(t, "August promo", b.Name)
	assert.Equal(t, models.ChannelEmail, b.Channel)
	assert.Equal(t, models.BroadcastScheduled, b.Status)
	assert.Equal(t, map[string]interface{}{"is_active": true}, b.RecipientFilter)
}

func TestBroadcastStore_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM broadcasts WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewBroadcastStore(db)
	_, err = store.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestBroadcastStore_Transition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE broadcasts SET status").
		WithArgs("bc-1", "draft", "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewBroadcastStore(db)
	ok, err := store.Transition(context.Background(), "bc-1", models.BroadcastDraft, models.BroadcastScheduled)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBroadcastStore_Transition_LostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Another worker already moved the broadcast; the guard matches no rows.
	mock.ExpectExec("UPDATE broadcasts SET status").
		WithArgs("bc-1", "scheduled", "sending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewBroadcastStore(db)
	ok, err := store.Transition(context.Background(), "bc-1", models.BroadcastScheduled, models.BroadcastSending)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBroadcastStore_BeginSending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE broadcasts SET status").
		WithArgs("bc-1", "scheduled", "sending", int64(240)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewBroadcastStore(db)
	ok, err := store.BeginSending(context.Background(), "bc-1", 240)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBroadcastStore_IncrementCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE broadcasts SET sent_count = sent_count \\+ 1").
		WithArgs("bc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("failed_count = failed_count \\+ 1").
		WithArgs("bc-1", "jo@example.com: SEND_FAILED\n").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewBroadcastStore(db)
	require.NoError(t, store.IncrementSent(context.Background(), "bc-1"))
	require.NoError(t, store.IncrementFailed(context.Background(), "bc-1", "jo@example.com: SEND_FAILED"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastStore_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	completedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE broadcasts SET status").
		WithArgs("bc-1", "sending", "sent", completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewBroadcastStore(db)
	ok, err := store.Complete(context.Background(), "bc-1", completedAt)

	require.NoError(t, err)
	assert.True(t, ok)
}

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/notify"
	"github.com/Kyz7/blogaccount/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDispatcher_ResetRequested(t *testing.T) {
	db := testutils.TestDB(t)
	clock := testutils.NewClock()
	d := notify.NewDispatcher(db, clock.Now)

	user := &models.User{ID: 7, Name: "Alice", Email: "alice@example.com"}
	link := "https://blog.example.com/reset-password/abc123"

	require.NoError(t, d.ResetRequested(context.Background(), nil, user, link, 24*time.Hour))

	var emails []models.OutboundEmail
	require.NoError(t, db.Find(&emails).Error)
	require.Len(t, emails, 1)

	email := emails[0]
	assert.Equal(t, "alice@example.com", email.Recipient)
	assert.Equal(t, notify.KindResetRequested, email.Kind)
	assert.Equal(t, models.EmailStatusPending, email.Status)
	assert.Contains(t, email.BodyHTML, link)
	assert.Contains(t, email.BodyHTML, "24 hours")
	assert.True(t, email.NextAttemptAt.Equal(clock.Now()))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(email.Metadata, &meta))
	assert.EqualValues(t, 7, meta["user_id"])
}

func TestFormatValidity(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{24 * time.Hour, "24 hours"},
		{time.Hour, "1 hour"},
		{30 * time.Minute, "30 minutes"},
		{time.Minute, "1 minute"},
		{90 * time.Minute, "90 minutes"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, notify.FormatValidity(tt.in), tt.in.String())
	}
}

func TestDispatcher_EnqueueJoinsTransaction(t *testing.T) {
	db := testutils.TestDB(t)
	d := notify.NewDispatcher(db, nil)
	user := &models.User{ID: 1, Name: "Bob", Email: "bob@example.com"}

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, d.ResetRequested(context.Background(), tx, user, "http://x/reset-password/t", time.Hour))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int64
	db.Model(&models.OutboundEmail{}).Count(&count)
	assert.Zero(t, count, "email must roll back with its transaction")
}

func TestDispatcher_ResetCompleted(t *testing.T) {
	db := testutils.TestDB(t)
	d := notify.NewDispatcher(db, nil)
	user := &models.User{ID: 3, Name: "Carol", Email: "carol@example.com"}

	require.NoError(t, d.ResetCompleted(context.Background(), user))

	var email models.OutboundEmail
	require.NoError(t, db.First(&email).Error)
	assert.Equal(t, notify.KindResetCompleted, email.Kind)
	assert.Equal(t, "Your password has been reset", email.Subject)
}

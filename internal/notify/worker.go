package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 30 * time.Second
	maxBackoff         = time.Hour
	defaultBatchSize   = 20
	claimLease         = 2 * time.Minute
)

type Worker struct {
	db          *gorm.DB
	mailer      Mailer
	maxAttempts int
	baseBackoff time.Duration
	batchSize   int
	now         func() time.Time
}

type WorkerOption func(*Worker)

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func WithBackoff(base time.Duration) WorkerOption {
	return func(w *Worker) { w.baseBackoff = base }
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

func NewWorker(db *gorm.DB, mailer Mailer, opts ...WorkerOption) *Worker {
	w := &Worker{
		db:          db,
		mailer:      mailer,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		batchSize:   defaultBatchSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run delivers due emails every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorw("outbound email batch failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue claims one batch of due emails and tries to send each of them.
// It returns the number delivered.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	batch, err := w.claim(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range batch {
		email := &batch[i]
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		sendErr := w.mailer.Send(ctx, Message{Subject: email.Subject, HTML: email.BodyHTML, To: email.Recipient})
		if err := w.record(ctx, email, sendErr); err != nil {
			return sent, err
		}
		if sendErr == nil {
			sent++
		}
	}
	return sent, nil
}

// PurgeDelivered deletes sent emails older than age.
func (w *Worker) PurgeDelivered(ctx context.Context, age time.Duration) (int64, error) {
	result := w.db.WithContext(ctx).
		Where("status = ? AND sent_at < ?", models.EmailStatusSent, w.now().Add(-age)).
		Delete(&models.OutboundEmail{})
	return result.RowsAffected, result.Error
}

// claim pushes next_attempt_at of a due batch forward by claimLease so that
// other workers skip it while it is being sent.
func (w *Worker) claim(ctx context.Context) ([]models.OutboundEmail, error) {
	var batch []models.OutboundEmail
	now := w.now()

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", models.EmailStatusPending, now).
			Order("id ASC").
			Limit(w.batchSize).
			Find(&batch).Error
		if err != nil || len(batch) == 0 {
			return err
		}

		ids := make([]uint, len(batch))
		for i, e := range batch {
			ids[i] = e.ID
		}
		return tx.Model(&models.OutboundEmail{}).
			Where("id IN ?", ids).
			Update("next_attempt_at", now.Add(claimLease)).Error
	})
	return batch, err
}

func (w *Worker) record(ctx context.Context, email *models.OutboundEmail, sendErr error) error {
	now := w.now()
	email.Attempts++

	updates := map[string]interface{}{"attempts": email.Attempts}
	switch {
	case sendErr == nil:
		updates["status"] = models.EmailStatusSent
		updates["sent_at"] = now
		updates["last_error"] = ""
	case email.Attempts >= w.maxAttempts:
		updates["status"] = models.EmailStatusFailed
		updates["last_error"] = sendErr.Error()
		logger.Log.Errorw("giving up on outbound email",
			"id", email.ID, "kind", email.Kind, "to", email.Recipient,
			"attempts", email.Attempts, "err", sendErr)
	default:
		next := now.Add(w.backoff(email.Attempts))
		updates["last_error"] = sendErr.Error()
		updates["next_attempt_at"] = next
		logger.Log.Warnw("outbound email failed, will retry",
			"id", email.ID, "kind", email.Kind, "attempts", email.Attempts,
			"next_attempt_at", next, "err", sendErr)
	}

	return w.db.WithContext(ctx).Model(&models.OutboundEmail{}).
		Where("id = ?", email.ID).
		Updates(updates).Error
}

// backoff doubles from baseBackoff per failed attempt, capped at maxBackoff.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

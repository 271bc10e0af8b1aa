package notify

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deadLetterKey = "notify:deadletter"

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Worker dispatches queued notifications with retries. Enqueue never blocks
// the producing request; a full queue is an error the producer logs and
// ignores.
type Worker struct {
	notifier    domain.Notifier
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan models.Notification
	logger      *zerolog.Logger
}

// NewWorker builds a worker with sane retry defaults.
func NewWorker(notifier domain.Notifier, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *Worker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &Worker{
		notifier:    notifier,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan models.Notification, models.WorkerQueueSize),
		logger:      logger,
	}
}

// Enqueue schedules a notification for asynchronous delivery.
func (w *Worker) Enqueue(_ context.Context, n models.Notification) error {
	if n.Kind == "" {
		return errors.New("notification kind is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	select {
	case w.queue <- n:
		return nil
	default:
		return errors.New("notification queue is full")
	}
}

// Start runs the dispatch loop until ctx is done. Queued notifications still
// in flight when ctx is cancelled are abandoned.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-w.queue:
			w.dispatch(ctx, n)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, n models.Notification) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if lastErr = w.notifier.Send(ctx, n); lastErr == nil {
			return
		}

		w.logger.Warn().Err(lastErr).
			Str("kind", n.Kind).
			Str("booking_id", n.BookingID).
			Int("attempt", attempt).
			Msg("notification delivery failed")

		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	metrics.IncNotifyFailures()
	w.pushDeadLetter(ctx, n, lastErr)
}

func (w *Worker) pushDeadLetter(ctx context.Context, n models.Notification, cause error) {
	w.logger.Error().Err(cause).
		Str("kind", n.Kind).
		Str("booking_id", n.BookingID).
		Msg("notification dropped after retries")

	if w.redis == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		w.logger.Error().Err(err).Msg("encode deadletter notification")
		return
	}
	if err := w.redis.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("deadletter push failed")
	}
}

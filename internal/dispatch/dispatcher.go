package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/mail"
	"github.com/bilgisen/letterpress/internal/models"
)

// SubscriberSource lists the recipients of a bulk send.
type SubscriberSource interface {
	Active(ctx context.Context) ([]models.Subscriber, error)
}

// Renderer produces the HTML body shared by every recipient.
type Renderer interface {
	Render(n models.Newsletter, styles models.StyleTokens) (string, error)
}

// Backoff decides how long a worker pauses after a send outcome.
type Backoff interface {
	Delay(err error) time.Duration
}

// FixedBackoff pauses Success after a delivered message and Failure after
// a failed one.
type FixedBackoff struct {
	Success time.Duration
	Failure time.Duration
}

func (b FixedBackoff) Delay(err error) time.Duration {
	if err != nil {
		return b.Failure
	}
	return b.Success
}

// DefaultBackoff keeps a single sender well under provider burst limits.
var DefaultBackoff = FixedBackoff{Success: 200 * time.Millisecond, Failure: time.Second}

type Options struct {
	// Concurrency is the number of parallel senders. 1 sends strictly in order.
	Concurrency int
	Backoff     Backoff
	// Limiter paces sends across all workers. Nil disables pacing.
	Limiter *rate.Limiter
	// Wait pauses for d or until ctx ends. Defaults to a timer.
	Wait   func(ctx context.Context, d time.Duration) error
	Logger zerolog.Logger
}

// Dispatcher sends one rendered newsletter to every active subscriber.
type Dispatcher struct {
	subs     SubscriberSource
	sender   mail.Sender
	renderer Renderer
	opts     Options
}

// New builds a dispatcher. sender may be nil when mail is not configured;
// Send then fails with a configuration error.
func New(subs SubscriberSource, sender mail.Sender, renderer Renderer, opts Options) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}
	if opts.Wait == nil {
		opts.Wait = sleep
	}
	return &Dispatcher{subs: subs, sender: sender, renderer: renderer, opts: opts}
}

type job struct {
	index int
	email string
}

// Send validates the draft, renders it once and mails it to each active
// subscriber. Individual failures never stop the run; they are reported in
// the result in subscriber order.
func (d *Dispatcher) Send(ctx context.Context, n models.Newsletter, styles models.StyleTokens) (*models.BulkResult, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if d.sender == nil {
		return nil, apperr.Configuration("mail credentials not configured")
	}

	subscribers, err := d.subs.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return &models.BulkResult{
			Message:      "No active subscribers found to send the newsletter to.",
			FailedEmails: []string{},
		}, nil
	}

	html, err := d.renderer.Render(n, styles)
	if err != nil {
		return nil, err
	}

	log := d.opts.Logger.With().Int("recipients", len(subscribers)).Logger()
	log.Info().Str("subject", n.Subject).Msg("Bulk send started")

	outcomes := make([]error, len(subscribers))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < d.opts.Concurrency && i < len(subscribers); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = d.sendOne(ctx, j.email, n.Subject, html)
			}
		}()
	}

	for i, s := range subscribers {
		jobs <- job{index: i, email: s.Email}
	}
	close(jobs)
	wg.Wait()

	result := &models.BulkResult{FailedEmails: []string{}}
	for i, err := range outcomes {
		if err != nil {
			result.FailedCount++
			result.FailedEmails = append(result.FailedEmails, subscribers[i].Email)
			continue
		}
		result.SentCount++
	}
	result.Partial = result.FailedCount > 0
	result.Message = fmt.Sprintf("Newsletter sending process completed. Sent to %d subscribers. %d failed.",
		result.SentCount, result.FailedCount)

	log.Info().
		Int("sent", result.SentCount).
		Int("failed", result.FailedCount).
		Msg("Bulk send finished")

	return result, nil
}

// sendOne delivers to a single recipient and then waits out the backoff.
// Once ctx is done no further sends are issued and the cause is returned.
func (d *Dispatcher) sendOne(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.opts.Limiter != nil {
		if err := d.opts.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	err := d.sender.Send(ctx, mail.Message{To: to, Subject: subject, HTML: html})
	if err != nil {
		d.opts.Logger.Warn().Err(err).Str("to", to).Msg("Failed to send newsletter")
	}

	// An interrupted wait is picked up by the ctx check of the next job.
	_ = d.opts.Wait(ctx, d.opts.Backoff.Delay(err))
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

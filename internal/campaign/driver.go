package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/codedeck/mailer/internal/config"
	"github.com/codedeck/mailer/internal/email"
	"github.com/codedeck/mailer/internal/logger"
	"github.com/codedeck/mailer/internal/model"
	"github.com/codedeck/mailer/internal/progress"
	"github.com/codedeck/mailer/internal/source"
	"github.com/codedeck/mailer/internal/template"
)

// Options selects how a single campaign run behaves
type Options struct {
	// DryRun previews the pending recipients without sending or recording
	DryRun bool
	// Limit caps the number of sends this run; 0 means no explicit cap
	Limit int
	// TestAddress, when set, bypasses the sources and sends to one address
	TestAddress string
}

// Summary reports the outcome of one campaign run
type Summary struct {
	RunID       string
	SentThisRun int
	TotalSent   int
	TotalFailed int
	Remaining   int
}

// Driver runs one campaign pass: check the daily quota, gather recipients,
// drop the already-sent, cap by the run limit and the daily remaining, then
// send strictly one at a time with a jittered delay in between. Progress is
// persisted after every attempt, so an interrupted run resumes where it
// left off.
type Driver struct {
	senderName string
	rate       config.RateConfig
	tmpl       template.Template
	expander   *template.Expander
	store      *progress.Store
	sender     email.Sender
	sources    []source.Source
	rng        *rand.Rand
	log        *logger.Logger
	out        io.Writer
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a new Driver. sender may be nil when every run will be a dry
// run; the send loop is never entered without one.
func New(senderName string, rate config.RateConfig, tmpl template.Template, expander *template.Expander, store *progress.Store, sender email.Sender, sources []source.Source, rng *rand.Rand, log *logger.Logger) *Driver {
	return &Driver{
		senderName: senderName,
		rate:       rate,
		tmpl:       tmpl,
		expander:   expander,
		store:      store,
		sender:     sender,
		sources:    sources,
		rng:        rng,
		log:        log.WithComponent("campaign"),
		out:        os.Stdout,
		sleep:      wait,
	}
}

// Run executes one campaign pass. A context cancellation between sends or
// during a wait stops the run; everything already recorded stays recorded.
func (d *Driver) Run(ctx context.Context, opts Options) (*Summary, error) {
	runID := uuid.NewString()
	log := d.log.WithRunID(runID)

	dailyCount := d.store.DailyCount()
	if dailyCount >= d.rate.DailyLimit {
		log.Warn().
			Int("daily_count", dailyCount).
			Int("daily_limit", d.rate.DailyLimit).
			Msg("daily limit reached, wait until tomorrow to continue")
		return d.summary(runID, 0, 0), nil
	}

	// The remaining-today budget is fixed here for the whole run. A run
	// that crosses UTC midnight keeps the cap it started with; the next
	// run picks up the fresh day.
	remainingToday := d.rate.DailyLimit - dailyCount
	log.Info().
		Int("sent_today", dailyCount).
		Int("daily_limit", d.rate.DailyLimit).
		Int("remaining_today", remainingToday).
		Msg("daily quota")

	var recipients []model.Recipient
	if opts.TestAddress != "" {
		addr := model.NormalizeEmail(opts.TestAddress)
		recipients = []model.Recipient{{
			Email:     addr,
			FirstName: model.FirstNameFromAddress(addr),
			Source:    model.SourceManual,
		}}
		log.Info().Str("to", addr).Msg("test mode, sending to a single address")
	} else {
		recipients = source.Aggregate(ctx, d.sources, d.rng, d.log)
	}

	if len(recipients) == 0 {
		log.Warn().Msg("no recipients found: add entries to the recipient file and/or enable mongodb in config")
		return d.summary(runID, 0, 0), nil
	}

	var pending []model.Recipient
	for _, r := range recipients {
		if !d.store.IsSent(r.Email) {
			pending = append(pending, r)
		}
	}
	log.Info().
		Int("pending", len(pending)).
		Int("already_sent", len(recipients)-len(pending)).
		Msg("filtered recipients")

	if len(pending) == 0 {
		log.Info().Msg("all recipients have already been sent")
		return d.summary(runID, 0, len(recipients)), nil
	}

	// Explicit run limit first, then the daily cap may truncate further
	if opts.Limit > 0 && len(pending) > opts.Limit {
		pending = pending[:opts.Limit]
		log.Info().Int("limit", opts.Limit).Msg("limited for this run")
	}
	if len(pending) > remainingToday {
		pending = pending[:remainingToday]
		log.Info().Int("remaining_today", remainingToday).Msg("capped at daily remaining")
	}

	if opts.DryRun {
		d.preview(pending)
		return d.summary(runID, 0, len(recipients)), nil
	}

	sent := 0
	for i, r := range pending {
		if err := ctx.Err(); err != nil {
			return d.summary(runID, sent, len(recipients)), err
		}

		subject, body := d.expander.Expand(d.tmpl, map[string]string{"first_name": r.FirstName})

		log.Info().
			Int("n", i+1).
			Int("of", len(pending)).
			Str("to", r.Email).
			Msg("sending")

		if sendErr := d.sender.Send(ctx, email.Message{To: r.Email, Subject: subject, Body: body}); sendErr != nil {
			// A send aborted by cancellation is not an outcome; leave the
			// attempt unrecorded so the next run retries it
			if errors.Is(sendErr, context.Canceled) || ctx.Err() != nil {
				return d.summary(runID, sent, len(recipients)), sendErr
			}
			if err := d.store.MarkFailed(r.Email, sendErr.Error()); err != nil {
				return d.summary(runID, sent, len(recipients)), err
			}
			log.Error().Err(sendErr).Str("to", r.Email).Msg("send failed")

			if IsQuotaError(sendErr) {
				log.Warn().Dur("cooldown", d.rate.Cooldown).Msg("rate limit hit, cooling down")
				if err := d.sleep(ctx, d.rate.Cooldown); err != nil {
					return d.summary(runID, sent, len(recipients)), err
				}
			}
		} else {
			if err := d.store.MarkSent(r.Email); err != nil {
				return d.summary(runID, sent, len(recipients)), err
			}
			sent++
		}

		// Wait between sends, but not after the last one
		if i < len(pending)-1 {
			if err := d.sleep(ctx, NextDelay(d.rate, d.rng)); err != nil {
				return d.summary(runID, sent, len(recipients)), err
			}
		}
	}

	sum := d.summary(runID, sent, len(recipients))
	log.Info().
		Int("sent_this_run", sum.SentThisRun).
		Int("total_sent", sum.TotalSent).
		Int("total_failed", sum.TotalFailed).
		Int("remaining", sum.Remaining).
		Msg("campaign summary")
	return sum, nil
}

// preview prints what a real run would send, without sending or recording
// anything. At most 20 recipients are listed, plus one fully expanded
// sample message.
func (d *Driver) preview(pending []model.Recipient) {
	fmt.Fprintln(d.out, "[DRY RUN] No emails will be sent")
	fmt.Fprintln(d.out)

	shown := len(pending)
	if shown > 20 {
		shown = 20
	}
	for i := 0; i < shown; i++ {
		r := pending[i]
		subject, _ := d.expander.Expand(d.tmpl, map[string]string{"first_name": r.FirstName})
		fmt.Fprintf(d.out, "%3d. %s (%s) - %s\n", i+1, r.Email, r.FirstName, r.Source)
		fmt.Fprintf(d.out, "     Subject: %s\n", subject)
	}
	if len(pending) > shown {
		fmt.Fprintf(d.out, "  ... and %d more\n", len(pending)-shown)
	}

	sample := pending[0]
	subject, body := d.expander.Expand(d.tmpl, map[string]string{"first_name": sample.FirstName})
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "Sample message:")
	fmt.Fprintf(d.out, "To: %s\nFrom: %s\nSubject: %s\n\n%s\n", sample.Email, d.senderName, subject, body)
}

func (d *Driver) summary(runID string, sentThisRun, candidates int) *Summary {
	remaining := candidates - d.store.SentCount() - d.store.FailedCount()
	if remaining < 0 {
		remaining = 0
	}
	return &Summary{
		RunID:       runID,
		SentThisRun: sentThisRun,
		TotalSent:   d.store.SentCount(),
		TotalFailed: d.store.FailedCount(),
		Remaining:   remaining,
	}
}

// wait blocks for d or until ctx is done, whichever comes first
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

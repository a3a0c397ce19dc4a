package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/nonsonwune/jamb-support/internal/gemini"
	"github.com/nonsonwune/jamb-support/internal/store"
	"github.com/nonsonwune/jamb-support/internal/ticket"
)

// keyPoolCooldown is how long a run waits for provider quotas to recover
// after every key in the pool failed.
const keyPoolCooldown = time.Minute

// Canned replies attached when generation cannot produce a real one.
const (
	delayedReply      = "Processing delayed due to rate limiting. Please try again later."
	manualReviewReply = "An error occurred: %v. This ticket requires manual review."
)

// ReplyGenerator produces a reply for one ticket.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, t ticket.Ticket) (string, error)
}

// Options tunes a pipeline run.
type Options struct {
	BatchSize    int // tickets processed concurrently
	SaveInterval int // persist progress every N processed tickets
}

// Pipeline drives ticket processing end to end: load, generate replies in
// batches, persist, and record resumable progress.
type Pipeline struct {
	source Source
	gen    ReplyGenerator
	db     *store.Store
	clock  clockwork.Clock
	opts   Options
}

// New wires a Pipeline from its parts.
func New(source Source, gen ReplyGenerator, db *store.Store, clock clockwork.Clock, opts Options) *Pipeline {
	return &Pipeline{source: source, gen: gen, db: db, clock: clock, opts: opts}
}

// Run processes all tickets from the source. Interrupted runs resume from
// the saved progress index.
func (p *Pipeline) Run(ctx context.Context) error {
	tickets, err := p.source.Tickets(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		slog.Info("No tickets to process")
		return nil
	}

	progress, err := p.db.LoadProgress()
	if err != nil {
		return err
	}
	processed := progress.ProcessedTickets
	start := progress.NextTicketIndex
	if start > 0 {
		slog.Info("Resuming from saved progress", "next_ticket_index", start)
	}
	if start > len(tickets) {
		start = len(tickets)
	}

	for i := start; i < len(tickets); i += p.opts.BatchSize {
		end := min(i+p.opts.BatchSize, len(tickets))
		batch := tickets[i:end]
		slog.Info("Processing batch", "from", i, "size", len(batch))

		results, err := p.processBatchWithCooldown(ctx, batch)
		if err != nil {
			return err
		}
		processed = append(processed, results...)

		for _, t := range results {
			if err := p.db.AppendTicket(t); err != nil {
				slog.Error("Failed to persist ticket", "ticket_id", t.TicketID, "error", err)
			}
		}

		if end%p.opts.SaveInterval == 0 {
			if err := p.saveCheckpoint(processed, end); err != nil {
				slog.Error("Failed to save checkpoint", "error", err)
			}
		}

		slog.Info("Processed tickets", "done", end, "total", len(tickets))
	}

	if _, err := p.db.SaveBatch(processed); err != nil {
		return fmt.Errorf("failed to save final batch: %w", err)
	}
	if err := p.db.SaveProgress(store.Progress{ProcessedTickets: processed, NextTicketIndex: len(tickets)}); err != nil {
		return fmt.Errorf("failed to save final progress: %w", err)
	}

	slog.Info("Run complete", "processed", len(processed))
	return nil
}

// processBatchWithCooldown retries a batch once after the key-pool cooldown
// when every key is exhausted; a second exhaustion returns the batch without
// generated replies so the run can continue.
func (p *Pipeline) processBatchWithCooldown(ctx context.Context, batch []ticket.Ticket) ([]ticket.Ticket, error) {
	results, err := p.processBatch(ctx, batch)
	if err == nil {
		return results, nil
	}
	if !errors.Is(err, gemini.ErrAllKeysExhausted) {
		return nil, err
	}

	slog.Warn("All API keys exhausted, waiting before retrying batch", "cooldown", keyPoolCooldown)
	select {
	case <-p.clock.After(keyPoolCooldown):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	results, err = p.processBatch(ctx, batch)
	if err == nil {
		return results, nil
	}
	if errors.Is(err, gemini.ErrAllKeysExhausted) {
		slog.Error("All API keys still exhausted, leaving batch without replies")
		return batch, nil
	}
	return nil, err
}

// processBatch generates replies for a batch concurrently. Rate-limit
// failures get the canned delayed reply; other failures get the
// manual-review reply. Only full key-pool exhaustion aborts the batch.
func (p *Pipeline) processBatch(ctx context.Context, batch []ticket.Ticket) ([]ticket.Ticket, error) {
	results := make([]ticket.Ticket, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for j := range batch {
		j := j
		g.Go(func() error {
			t := batch[j]
			reply, err := p.gen.GenerateReply(gctx, t)
			switch {
			case err == nil:
				t.NextReply = []ticket.Message{{Content: reply}}
				slog.Info("Generated reply", "ticket_id", t.TicketID)
			case errors.Is(err, gemini.ErrAllKeysExhausted):
				return err
			case errors.Is(err, gemini.ErrRateLimited), errors.Is(err, gemini.ErrCallBudgetExhausted):
				slog.Warn("Rate limited, attaching delayed reply", "ticket_id", t.TicketID, "error", err)
				t.NextReply = []ticket.Message{{Content: delayedReply}}
			case errors.Is(err, context.Canceled):
				return err
			default:
				slog.Error("Failed to process ticket", "ticket_id", t.TicketID, "error", err)
				t.NextReply = []ticket.Message{{Content: fmt.Sprintf(manualReviewReply, err)}}
			}
			results[j] = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) saveCheckpoint(processed []ticket.Ticket, nextIndex int) error {
	if _, err := p.db.SaveBatch(processed); err != nil {
		return err
	}
	if err := p.db.SaveProgress(store.Progress{ProcessedTickets: processed, NextTicketIndex: nextIndex}); err != nil {
		return err
	}
	slog.Info("Progress saved", "next_ticket_index", nextIndex)
	return nil
}

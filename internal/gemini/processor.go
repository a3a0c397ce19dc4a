package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nonsonwune/jamb-support/internal/keypool"
	"github.com/nonsonwune/jamb-support/internal/platform/retry"
	"github.com/nonsonwune/jamb-support/internal/ticket"
)

// Backoff bounds for throttled calls.
const (
	minRetryBackoff = 4 * time.Second
	maxRetryBackoff = 120 * time.Second
)

var (
	// ErrCallBudgetExhausted signals the local per-minute call budget is
	// spent. Treated like a provider rate limit: back off and retry.
	ErrCallBudgetExhausted = errors.New("gemini: per-minute call budget exhausted")
	// ErrAllKeysExhausted signals every key in the pool failed in a single
	// pass. The caller decides whether to wait out the quota window.
	ErrAllKeysExhausted = errors.New("gemini: all API keys exhausted")
)

// contentGenerator is the slice of Client the Processor depends on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, apiKey, prompt string) (string, error)
}

// ProcessorOptions bundles the tuning knobs for a Processor.
type ProcessorOptions struct {
	MaxRetries       int // attempts per reply
	CallLimit        int // Gemini calls per minute across all keys
	MinMessageLength int

	// Backoff bounds; zero values fall back to the package defaults.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Processor generates ticket replies, rotating through the key pool on
// rate limits and invalid keys, and keeping calls under the per-minute
// budget.
type Processor struct {
	client contentGenerator
	pool   *keypool.Manager
	clock  clockwork.Clock
	opts   ProcessorOptions

	mu        sync.Mutex
	callCount int
	lastReset time.Time
}

// NewProcessor wires a Processor from its parts.
func NewProcessor(client contentGenerator, pool *keypool.Manager, clock clockwork.Clock, opts ProcessorOptions) *Processor {
	if opts.MinBackoff == 0 {
		opts.MinBackoff = minRetryBackoff
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = maxRetryBackoff
	}
	return &Processor{
		client:    client,
		pool:      pool,
		clock:     clock,
		opts:      opts,
		lastReset: clock.Now(),
	}
}

// checkBudget enforces the per-minute call budget, resetting the counter
// once the window has elapsed. A successful check consumes one call.
func (p *Processor) checkBudget() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if now.Sub(p.lastReset) >= time.Minute {
		p.callCount = 0
		p.lastReset = now
	}

	if p.callCount >= p.opts.CallLimit {
		return fmt.Errorf("%w: limit %d", ErrCallBudgetExhausted, p.opts.CallLimit)
	}

	p.callCount++
	return nil
}

// GenerateReply produces a reply for the ticket. Rate-limited or invalid
// keys rotate the pool and retry with backoff; a full pass of failing keys
// aborts with ErrAllKeysExhausted.
func (p *Processor) GenerateReply(ctx context.Context, t ticket.Ticket) (string, error) {
	prompt := buildPrompt(t)

	failedKeys := 0
	op := func() (string, error) {
		if err := p.checkBudget(); err != nil {
			return "", err
		}

		raw, err := p.client.GenerateContent(ctx, p.pool.Current(), prompt)
		p.pool.MarkUse()
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrInvalidKey) {
				failedKeys++
				if failedKeys >= p.pool.Len() {
					return "", fmt.Errorf("%w: last error: %v", ErrAllKeysExhausted, err)
				}
				slog.Warn("Rotating API key", "key_index", p.pool.Index()+1, "error", err)
				p.pool.Rotate()
			}
			return "", err
		}

		failedKeys = 0
		return parseReply(raw, p.clock.Now(), p.opts.MinMessageLength)
	}

	policy := retry.Policy{
		MaxAttempts: p.opts.MaxRetries,
		MinBackoff:  p.opts.MinBackoff,
		MaxBackoff:  p.opts.MaxBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Retrying reply generation", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	reply, err := retry.Do(ctx, policy, classifyReplyError, op)
	if err != nil {
		return "", err
	}
	return reply, nil
}

func classifyReplyError(err error) retry.Action {
	switch {
	case errors.Is(err, ErrAllKeysExhausted), errors.Is(err, ErrInvalidReply):
		return retry.Stop
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrCallBudgetExhausted):
		return retry.RateLimited
	case errors.Is(err, ErrInvalidKey):
		return retry.Retry
	default:
		return retry.Stop
	}
}

// buildPrompt renders the reply-generation prompt for a ticket. Contact
// details stay in the payload: the model needs the sender's name, and the
// prompt never leaves the API call.
func buildPrompt(t ticket.Ticket) string {
	payload, err := json.Marshal(t)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"ticket_id": %q}`, t.TicketID))
	}

	return fmt.Sprintf(`Generate a reply for this support ticket:
Ticket: %s

Format: {"Hello [name], JAMB Support here,\n\n[reply]\n\nSincerely,\nJAMB Support"}

Guidelines:
- Address the specific issue in the ticket
- Be professional and helpful
- For admission acceptance, confirm it was through JAMB CAPS
- Escalate complex issues to appropriate authorities
- CAPS: Central Admission Processing System
- AIP: Admission In Progress
`, payload)
}

package gemini

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/jamb-support/internal/keypool"
	"github.com/nonsonwune/jamb-support/internal/ticket"
)

const goodReply = `{"Hello Ada,": "Hello Ada, JAMB Support here,\n\nResolved.\n\nSincerely,\nJAMB Support"}`

// fakeGenerator returns scripted responses per call and records the keys used.
type fakeGenerator struct {
	responses []func() (string, error)
	calls     int
	keysUsed  []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, apiKey, _ string) (string, error) {
	f.keysUsed = append(f.keysUsed, apiKey)
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx]()
}

func ok() (string, error)          { return goodReply, nil }
func rateLimited() (string, error) { return "", fmt.Errorf("%w: quota", ErrRateLimited) }
func invalidKey() (string, error)  { return "", fmt.Errorf("%w: bad key", ErrInvalidKey) }

func newTestProcessor(t *testing.T, gen contentGenerator, keys ...string) (*Processor, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	pool, err := keypool.New(keys, clock)
	require.NoError(t, err)

	p := NewProcessor(gen, pool, clock, ProcessorOptions{
		MaxRetries:       5,
		CallLimit:        10,
		MinMessageLength: 1,
		MinBackoff:       time.Millisecond,
		MaxBackoff:       2 * time.Millisecond,
	})
	return p, clock
}

func testTicket() ticket.Ticket {
	return ticket.Ticket{
		TicketID:   "T-1001",
		Issue:      "CAPS not updating",
		SenderName: "Ada Obi",
		AgentName:  "JAMB Support",
	}
}

func TestGenerateReply_Success(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){ok}}
	p, _ := newTestProcessor(t, gen, "key-1")

	reply, err := p.GenerateReply(context.Background(), testTicket())
	require.NoError(t, err)
	assert.Contains(t, reply, "Resolved.")
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateReply_RotatesOnRateLimit(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){rateLimited, ok}}
	p, _ := newTestProcessor(t, gen, "key-1", "key-2")

	reply, err := p.GenerateReply(context.Background(), testTicket())
	require.NoError(t, err)
	assert.Contains(t, reply, "Resolved.")
	assert.Equal(t, []string{"key-1", "key-2"}, gen.keysUsed)
}

func TestGenerateReply_RotatesOnInvalidKey(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){invalidKey, ok}}
	p, _ := newTestProcessor(t, gen, "key-1", "key-2")

	_, err := p.GenerateReply(context.Background(), testTicket())
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-2"}, gen.keysUsed)
}

func TestGenerateReply_AllKeysExhausted(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){rateLimited}}
	p, _ := newTestProcessor(t, gen, "key-1", "key-2")

	_, err := p.GenerateReply(context.Background(), testTicket())
	assert.ErrorIs(t, err, ErrAllKeysExhausted)
	assert.Equal(t, 2, gen.calls, "one attempt per key before giving up")
}

func TestGenerateReply_InvalidReplyIsPermanent(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		func() (string, error) { return "garbage output", nil },
	}}
	p, _ := newTestProcessor(t, gen, "key-1")

	_, err := p.GenerateReply(context.Background(), testTicket())
	assert.ErrorIs(t, err, ErrInvalidReply)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateReply_CallBudget(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){ok}}
	clock := clockwork.NewFakeClock()
	pool, err := keypool.New([]string{"key-1"}, clock)
	require.NoError(t, err)

	p := NewProcessor(gen, pool, clock, ProcessorOptions{
		MaxRetries:       1,
		CallLimit:        2,
		MinMessageLength: 1,
		MinBackoff:       time.Millisecond,
		MaxBackoff:       time.Millisecond,
	})

	tk := testTicket()
	_, err = p.GenerateReply(context.Background(), tk)
	require.NoError(t, err)
	_, err = p.GenerateReply(context.Background(), tk)
	require.NoError(t, err)

	_, err = p.GenerateReply(context.Background(), tk)
	assert.ErrorIs(t, err, ErrCallBudgetExhausted)

	clock.Advance(time.Minute)
	_, err = p.GenerateReply(context.Background(), tk)
	assert.NoError(t, err, "budget resets after the window")
}

func TestGenerateReply_BudgetedCallDoesNotHitAPI(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){ok}}
	clock := clockwork.NewFakeClock()
	pool, err := keypool.New([]string{"key-1"}, clock)
	require.NoError(t, err)

	p := NewProcessor(gen, pool, clock, ProcessorOptions{
		MaxRetries:       1,
		CallLimit:        1,
		MinMessageLength: 1,
		MinBackoff:       time.Millisecond,
		MaxBackoff:       time.Millisecond,
	})

	tk := testTicket()
	_, err = p.GenerateReply(context.Background(), tk)
	require.NoError(t, err)
	_, _ = p.GenerateReply(context.Background(), tk)

	assert.Equal(t, 1, gen.calls, "budget rejection happens before the API call")
}

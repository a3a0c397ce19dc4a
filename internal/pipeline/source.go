package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nonsonwune/jamb-support/internal/ticket"
)

// Source yields the tickets a run should process.
type Source interface {
	Tickets(ctx context.Context) ([]ticket.Ticket, error)
}

// FileSource reads tickets from a helpdesk JSON export. Tickets that fail
// validation or no longer need a reply are dropped with a log line.
type FileSource struct {
	path             string
	minMessageLength int
}

// NewFileSource creates a FileSource for the export at path.
func NewFileSource(path string, minMessageLength int) *FileSource {
	return &FileSource{path: path, minMessageLength: minMessageLength}
}

func (s *FileSource) Tickets(_ context.Context) ([]ticket.Ticket, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tickets file %s: %w", s.path, err)
	}

	var raw []ticket.Ticket
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tickets file %s: %w", s.path, err)
	}

	tickets := make([]ticket.Ticket, 0, len(raw))
	for i := range raw {
		t := raw[i]
		t.Messages = filterMessages(t.Messages, s.minMessageLength)

		if !ticket.Validate(&t) {
			slog.Warn("Dropping invalid ticket", "ticket_id", t.TicketID)
			continue
		}
		if !t.NeedsReply() {
			slog.Info("Skipping ticket: agent replied last", "ticket_id", t.TicketID)
			continue
		}
		tickets = append(tickets, t)
	}

	slog.Info("Loaded tickets", "total", len(raw), "to_process", len(tickets), "path", s.path)
	return tickets, nil
}

func filterMessages(messages []ticket.Message, minLength int) []ticket.Message {
	kept := make([]ticket.Message, 0, len(messages))
	for _, m := range messages {
		if ticket.ValidMessage(m, minLength) {
			kept = append(kept, m)
		}
	}
	return kept
}

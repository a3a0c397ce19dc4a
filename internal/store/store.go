package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/nonsonwune/jamb-support/internal/ticket"
)

const progressFileName = "progress.json"

// Store persists processed tickets as JSON files in a local directory.
// Tickets accumulate in one file per calendar day; a separate progress file
// makes interrupted runs resumable.
type Store struct {
	dir   string
	clock clockwork.Clock
}

// Progress records how far a run got so the next run can pick up from there.
type Progress struct {
	ProcessedTickets []ticket.Ticket `json:"processed_tickets"`
	NextTicketIndex  int             `json:"next_ticket_index"`
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, clock clockwork.Clock) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Store{dir: dir, clock: clock}, nil
}

// AppendTicket adds one ticket to today's ticket file, creating it if needed.
// A corrupt existing file is replaced rather than failing the run.
func (s *Store) AppendTicket(t ticket.Ticket) error {
	path := s.dailyFile()

	var tickets []ticket.Ticket
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &tickets); jsonErr != nil {
			slog.Warn("Existing ticket file is not valid JSON, starting fresh", "path", path, "error", jsonErr)
			tickets = nil
		}
	case errors.Is(err, os.ErrNotExist):
		// first ticket of the day
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	tickets = append(tickets, t)
	if err := s.writeJSON(path, tickets); err != nil {
		return err
	}

	slog.Info("Saved ticket", "ticket_id", t.TicketID, "path", path)
	return nil
}

// SaveBatch writes the full ticket slice to a timestamped file.
func (s *Store) SaveBatch(tickets []ticket.Ticket) (string, error) {
	name := fmt.Sprintf("tickets_%s.json", s.clock.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := s.writeJSON(path, tickets); err != nil {
		return "", err
	}
	slog.Info("Saved ticket batch", "count", len(tickets), "path", path)
	return path, nil
}

// SaveProgress persists the resume point.
func (s *Store) SaveProgress(p Progress) error {
	return s.writeJSON(filepath.Join(s.dir, progressFileName), p)
}

// LoadProgress returns the saved resume point, or a zero Progress when no
// progress file exists.
func (s *Store) LoadProgress() (Progress, error) {
	var p Progress
	data, err := os.ReadFile(filepath.Join(s.dir, progressFileName))
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read progress file: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("failed to parse progress file: %w", err)
	}
	return p, nil
}

func (s *Store) dailyFile() string {
	return filepath.Join(s.dir, fmt.Sprintf("tickets_%s.json", s.clock.Now().Format("20060102")))
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

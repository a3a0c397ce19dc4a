package ticket

import (
	"log/slog"
	"strings"
)

// Markers of the helpdesk's compose-form placeholder accidentally captured as
// a message during extraction.
const (
	unknownSender        = "Unknown Sender"
	unknownTime          = "Unknown Time"
	placeholderBody      = "Message * write here..."
	placeholderFileType  = "File Type:"
	placeholderFileLimit = "Max file size:"
)

// ValidMessage reports whether a message is usable as conversation content.
// It rejects the captured compose-form placeholder, messages shorter than
// minLength after trimming, and messages with neither a sender nor a time.
func ValidMessage(m Message, minLength int) bool {
	if m.AgentName == unknownSender &&
		(m.Timestamp == "N/A" || m.Timestamp == unknownTime) &&
		strings.Contains(m.Content, placeholderBody) &&
		strings.Contains(m.Content, placeholderFileType) &&
		strings.Contains(m.Content, placeholderFileLimit) {
		slog.Warn("Invalid message pattern detected", "agent_name", m.AgentName, "timestamp", m.Timestamp)
		return false
	}

	if len(strings.TrimSpace(m.Content)) < minLength {
		slog.Warn("Message content too short", "agent_name", m.AgentName, "timestamp", m.Timestamp)
		return false
	}

	if m.AgentName == unknownSender && m.Timestamp == unknownTime {
		slog.Warn("Message has unknown sender and unknown time", "content_length", len(m.Content))
		return false
	}

	return true
}

// Validate checks a ticket for the fields reply generation depends on.
// Missing contact fields are filled with "N/A" rather than rejected; any
// other missing field fails validation, as does a ticket without messages.
func Validate(t *Ticket) bool {
	required := map[string]*string{
		"ticket_id":      &t.TicketID,
		"status":         &t.Status,
		"service_system": &t.ServiceSystem,
		"issue":          &t.Issue,
		"sender_name":    &t.SenderName,
		"agent_name":     &t.AgentName,
	}
	for field, value := range required {
		if *value == "" {
			slog.Warn("Missing required ticket field", "field", field, "ticket_id", t.TicketID)
			return false
		}
	}

	if t.SenderEmail == "" {
		t.SenderEmail = "N/A"
		slog.Info("Set missing sender_email to N/A", "ticket_id", t.TicketID)
	}
	if t.SenderPhone == "" {
		t.SenderPhone = "N/A"
		slog.Info("Set missing sender_phone to N/A", "ticket_id", t.TicketID)
	}

	if len(t.Messages) == 0 {
		slog.Warn("No messages found for ticket", "ticket_id", t.TicketID)
		return false
	}

	return true
}

package ticket

// Message is a single entry in a ticket's conversation thread.
type Message struct {
	AgentName string `json:"agent_name"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// Ticket is one support ticket as exported from the helpdesk.
type Ticket struct {
	TicketID      string    `json:"ticket_id"`
	Status        string    `json:"status"`
	ServiceSystem string    `json:"service_system"`
	Issue         string    `json:"issue"`
	SenderName    string    `json:"sender_name"`
	SenderEmail   string    `json:"sender_email"`
	SenderPhone   string    `json:"sender_phone"`
	AgentName     string    `json:"agent_name"`
	Messages      []Message `json:"messages"`
	NextReply     []Message `json:"next_reply,omitempty"`
}

// Redact returns a copy of the ticket with sender contact details replaced.
// Used wherever ticket contents end up in logs.
func (t Ticket) Redact() Ticket {
	out := t
	if out.SenderEmail != "" {
		out.SenderEmail = "REDACTED"
	}
	if out.SenderPhone != "" {
		out.SenderPhone = "REDACTED"
	}
	return out
}

// NeedsReply reports whether the ticket is waiting on the support agent.
// A ticket whose last message came from the assigned agent already has a
// reply and is skipped.
func (t Ticket) NeedsReply() bool {
	if len(t.Messages) == 0 {
		return false
	}
	last := t.Messages[len(t.Messages)-1]
	return last.AgentName != t.AgentName
}

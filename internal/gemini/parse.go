package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nonsonwune/jamb-support/internal/ticket"
)

const agentName = "JAMB Support"

// ErrInvalidReply signals the model's output could not be turned into a
// usable reply. Permanent: retrying the same prompt rarely helps.
var ErrInvalidReply = errors.New("gemini: reply failed validation")

// parseReply extracts the reply text from the model's raw output. The model
// is asked for a one-key JSON object whose key starts with "Hello"; fenced
// output and malformed JSON with a recognizable greeting are tolerated.
func parseReply(raw string, now time.Time, minLength int) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	content, err := extractContent(cleaned)
	if err != nil {
		return "", err
	}

	msg := ticket.Message{
		AgentName: agentName,
		Timestamp: now.Format("2006-01-02 15:04:05"),
		Content:   content,
	}
	if !ticket.ValidMessage(msg, minLength) {
		return "", fmt.Errorf("%w: content rejected", ErrInvalidReply)
	}

	return content, nil
}

func extractContent(cleaned string) (string, error) {
	var parsed map[string]string
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		for key, value := range parsed {
			if strings.HasPrefix(key, "Hello") {
				return value, nil
			}
		}
		return "", fmt.Errorf("%w: missing greeting key", ErrInvalidReply)
	}

	// Malformed JSON: attempt direct extraction between the greeting quote
	// and the final quote.
	start := strings.Index(cleaned, `"Hello`)
	end := strings.LastIndex(cleaned, `"`)
	if start != -1 && end > start {
		slog.Info("Content extracted directly from malformed reply")
		return cleaned[start+1 : end], nil
	}

	return "", fmt.Errorf("%w: unparsable output", ErrInvalidReply)
}

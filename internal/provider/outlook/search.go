package outlook

import (
	"context"
	"strings"
	"time"

	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
)

// Layouts of the date tooltip on a result row.
var receivedLayouts = []string{
	"Mon 1/2/2006 3:04 PM",
	"Mon 1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"2006-01-02 15:04",
}

// snippetLen caps the preview text kept per message.
const snippetLen = 200

// row is one result as the extraction script reports it.
type row struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Preview  string `json:"preview"`
	Received string `json:"received"`
	Unread   bool   `json:"unread"`
}

func search(ctx context.Context, b browser.Browser, query string) ([]row, error) {
	if err := openMailbox(ctx, b); err != nil {
		return nil, err
	}
	if err := b.WaitVisible(ctx, selSearch); err != nil {
		return nil, err
	}
	if err := b.Click(ctx, selSearch); err != nil {
		return nil, err
	}
	if err := b.SendKeys(ctx, selSearch, query+"\r"); err != nil {
		return nil, err
	}
	if err := b.WaitVisible(ctx, selResults); err != nil {
		return nil, err
	}

	var rows []row
	if err := b.Evaluate(ctx, extractMessagesJS, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// toMessages normalizes scraped rows, dropping duplicates and rows without
// an id. A limit of zero keeps every row.
func toMessages(rows []row, limit int) []email.Message {
	seen := make(map[string]struct{}, len(rows))
	out := make([]email.Message, 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		out = append(out, email.Message{
			ID:          id,
			From:        strings.TrimSpace(r.From),
			Subject:     strings.TrimSpace(r.Subject),
			Snippet:     email.Truncate(email.PlainText(r.Preview), snippetLen),
			Received:    parseReceived(r.Received),
			ReceivedRaw: strings.TrimSpace(r.Received),
			Unread:      r.Unread,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// parseReceived reads an Outlook date tooltip in local time. Unknown
// layouts yield the zero time; the raw text is kept alongside.
func parseReceived(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range receivedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

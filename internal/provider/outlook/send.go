package outlook

import (
	"context"
	"net/url"
	"strings"

	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/email"
)

// composeLink prefills the Outlook compose form through its deeplink.
func composeLink(msg *email.Email) string {
	q := url.Values{}
	q.Set("to", strings.Join(msg.To, ";"))
	if len(msg.Cc) > 0 {
		q.Set("cc", strings.Join(msg.Cc, ";"))
	}
	if len(msg.Bcc) > 0 {
		q.Set("bcc", strings.Join(msg.Bcc, ";"))
	}
	q.Set("subject", msg.Subject)
	q.Set("body", msg.Body())
	return composeURL + "?" + q.Encode()
}

func compose(ctx context.Context, b browser.Browser, msg *email.Email, draft bool) error {
	if err := b.Navigate(ctx, composeLink(msg)); err != nil {
		return err
	}
	if err := b.WaitVisible(ctx, selComposeBody); err != nil {
		return err
	}

	if draft {
		// Outlook saves the open compose form as a draft when it is left.
		return openMailbox(ctx, b)
	}

	if err := b.Click(ctx, selSendButton); err != nil {
		return err
	}
	return b.WaitNotPresent(ctx, selComposeBody)
}

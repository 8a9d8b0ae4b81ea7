package outlook

import (
	"context"
	"fmt"

	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/provider"
)

func signin(ctx context.Context, b browser.Browser, addr, password string) error {
	if err := b.Navigate(ctx, loginURL); err != nil {
		return err
	}
	if err := b.WaitVisible(ctx, selLoginEmail); err != nil {
		return err
	}
	if err := b.SendKeys(ctx, selLoginEmail, addr); err != nil {
		return err
	}
	if err := b.Click(ctx, selNext); err != nil {
		return err
	}

	failed, err := waitEither(ctx, b, selPassword, selUsernameError)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("unknown account %s: %w", addr, provider.ErrInvalidCredentials)
	}

	if err := b.SendKeys(ctx, selPassword, password); err != nil {
		return err
	}
	if err := b.Click(ctx, selNext); err != nil {
		return err
	}

	failed, err = waitEither(ctx, b, selStaySignedIn, selPasswordError)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("password rejected for %s: %w", addr, provider.ErrInvalidCredentials)
	}

	// "Stay signed in?" No.
	if err := b.Click(ctx, selStaySignedIn); err != nil {
		return err
	}
	return openMailbox(ctx, b)
}

func signout(ctx context.Context, b browser.Browser) error {
	if err := b.Navigate(ctx, logoutURL); err != nil {
		return err
	}
	return b.WaitVisible(ctx, selSignedOut)
}

func openMailbox(ctx context.Context, b browser.Browser) error {
	if err := b.Navigate(ctx, mailURL); err != nil {
		return err
	}
	return b.WaitVisible(ctx, selMailbox)
}

package outlook

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/browser"
	"github.com/shineum/webmail-driver/internal/provider"
)

func signup(ctx context.Context, b browser.Browser, addr string, user *account.User) error {
	local, domain, _ := strings.Cut(addr, "@")

	if err := b.Navigate(ctx, signupURL); err != nil {
		return err
	}
	if err := b.WaitVisible(ctx, selNewAddress); err != nil {
		return err
	}
	if err := b.Click(ctx, selNewAddress); err != nil {
		return err
	}
	if err := b.WaitVisible(ctx, selMemberName); err != nil {
		return err
	}
	if err := b.SendKeys(ctx, selMemberName, local); err != nil {
		return err
	}
	if err := b.SetValue(ctx, selDomain, domain); err != nil {
		return err
	}
	if err := b.Click(ctx, selSignupNext); err != nil {
		return err
	}

	taken, err := waitEither(ctx, b, selNewPassword, selMemberNameError)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("address %s is not available: %w", addr, provider.ErrAccountCreation)
	}

	if err := b.SendKeys(ctx, selNewPassword, user.Password); err != nil {
		return err
	}
	if err := b.Click(ctx, selSignupNext); err != nil {
		return err
	}

	if err := fillName(ctx, b, user); err != nil {
		return err
	}
	if err := fillBirthday(ctx, b, user.Birthday); err != nil {
		return err
	}

	// A human check usually follows; a visible browser lets someone solve
	// it before the mailbox wait times out.
	if err := b.WaitVisible(ctx, selMailbox); err != nil {
		return fmt.Errorf("%w: mailbox never appeared: %w", provider.ErrAccountCreation, err)
	}
	return nil
}

func fillName(ctx context.Context, b browser.Browser, user *account.User) error {
	first, last := user.FirstName, user.LastName
	if first == "" {
		first = user.Username
	}
	if last == "" {
		last = user.Username
	}

	if err := b.WaitVisible(ctx, selFirstName); err != nil {
		return err
	}
	if err := b.SendKeys(ctx, selFirstName, first); err != nil {
		return err
	}
	if err := b.SendKeys(ctx, selLastName, last); err != nil {
		return err
	}
	return b.Click(ctx, selSignupNext)
}

// fillBirthday answers the birthdate page. Users without a birthday get a
// fixed adult date since the form cannot be skipped.
func fillBirthday(ctx context.Context, b browser.Browser, bd *account.Birthday) error {
	if bd == nil {
		bd = &account.Birthday{Month: 1, Day: 1, Year: 1990}
	}

	if err := b.WaitVisible(ctx, selBirthMonth); err != nil {
		return err
	}
	if err := b.SetValue(ctx, selBirthMonth, strconv.Itoa(bd.Month)); err != nil {
		return err
	}
	if err := b.SetValue(ctx, selBirthDay, strconv.Itoa(bd.Day)); err != nil {
		return err
	}
	if err := b.SendKeys(ctx, selBirthYear, strconv.Itoa(bd.Year)); err != nil {
		return err
	}
	return b.Click(ctx, selSignupNext)
}

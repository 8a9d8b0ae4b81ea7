package provider

import (
	"net/mail"
	"strings"

	"github.com/shineum/webmail-driver/internal/account"
	"github.com/shineum/webmail-driver/internal/email"
)

// ValidateUser checks the credentials signup and signin require.
func ValidateUser(op string, user *account.User) error {
	if user == nil {
		return validationError(op, "missing user")
	}
	if strings.TrimSpace(user.Username) == "" {
		return validationError(op, `missing required "username"`)
	}
	if user.Password == "" {
		return validationError(op, `missing required "password"`)
	}
	if user.Birthday != nil {
		if err := user.Birthday.Validate(); err != nil {
			return &Error{Kind: KindValidation, Op: op, Err: err}
		}
	}
	return nil
}

// ValidateOptions checks that a browser was supplied.
func ValidateOptions(op string, opts Options) error {
	if opts.Browser == nil {
		return validationError(op, `missing required "browser"`)
	}
	return nil
}

// ValidateSession checks that s is open and was created by a provider
// named name.
func ValidateSession(op, name string, s *Session) error {
	if s == nil {
		return validationError(op, "missing session")
	}
	if s.Closed() {
		return lifecycleError(op)
	}
	if !strings.EqualFold(s.provider.Name(), name) {
		return validationError(op, "session belongs to provider %q, not %q", s.provider.Name(), name)
	}
	return nil
}

// ValidateEmail checks that msg has recipients, a subject and a body, and
// that every address parses.
func ValidateEmail(op string, msg *email.Email) error {
	if msg == nil {
		return validationError(op, "missing email")
	}
	if len(msg.To) == 0 {
		return validationError(op, `missing required "to"`)
	}
	for _, addr := range msg.Recipients() {
		if _, err := mail.ParseAddress(addr); err != nil {
			return validationError(op, "invalid recipient %q", addr)
		}
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return validationError(op, `missing required "subject"`)
	}
	if strings.TrimSpace(msg.TextBody) == "" && strings.TrimSpace(msg.HtmlBody) == "" {
		return validationError(op, `missing required "body"`)
	}
	return nil
}

// ValidateSearch checks that a query was supplied.
func ValidateSearch(op string, opts SearchOptions) error {
	if strings.TrimSpace(opts.Query) == "" {
		return validationError(op, `missing required "query"`)
	}
	if opts.Limit < 0 {
		return validationError(op, "limit must not be negative, got %d", opts.Limit)
	}
	return nil
}

// Package account defines the identity records a webmail provider operates on.
package account

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// User is the identity a caller supplies for signup and signin.
// The core never mutates or persists it.
type User struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Birthday  *Birthday `json:"birthday,omitempty"`
}

// LogValue keeps the password out of structured logs.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", u.Username))
}

// Birthday is a calendar date in the form signup pages ask for.
type Birthday struct {
	Month int `json:"month"`
	Day   int `json:"day"`
	Year  int `json:"year"`
}

// ParseBirthday parses a month/day/year date such as "9/20/1986".
func ParseBirthday(s string) (*Birthday, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid birthday %q: want month/day/year", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid birthday %q: %w", s, err)
		}
		nums[i] = n
	}

	b := &Birthday{Month: nums[0], Day: nums[1], Year: nums[2]}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate reports whether the birthday names a real date in the past.
func (b Birthday) Validate() error {
	if b.Month < 1 || b.Month > 12 || b.Day < 1 || b.Year < 1900 {
		return fmt.Errorf("invalid birthday %s", b)
	}
	t := time.Date(b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC)
	if t.Day() != b.Day || t.Month() != time.Month(b.Month) {
		return fmt.Errorf("invalid birthday %s", b)
	}
	if t.After(time.Now()) {
		return fmt.Errorf("birthday %s is in the future", b)
	}
	return nil
}

func (b Birthday) String() string {
	return fmt.Sprintf("%d/%d/%d", b.Month, b.Day, b.Year)
}

// Identity is the resolved account a session is signed in as.
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

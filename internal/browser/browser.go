// Package browser provides the automated Chrome instance that provider
// scripts drive. A Browser is a live OS process and must be closed exactly once.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// defaultTimeout bounds a single browser step when no timeout is configured.
const defaultTimeout = 30 * time.Second

// ErrClosed is returned by every Browser method once Close has been called.
var ErrClosed = errors.New("browser: already closed")

// Browser is the set of page interactions provider scripts are written against.
// Selectors are CSS selectors matched with document.querySelector.
type Browser interface {
	// Navigate loads url in the current tab and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until an element matching sel is visible.
	WaitVisible(ctx context.Context, sel string) error

	// WaitNotPresent blocks until no element matches sel.
	WaitNotPresent(ctx context.Context, sel string) error

	// Click clicks the first element matching sel.
	Click(ctx context.Context, sel string) error

	// SendKeys types text into the element matching sel.
	SendKeys(ctx context.Context, sel, text string) error

	// SetValue sets the value property of a form control, e.g. a <select>.
	SetValue(ctx context.Context, sel, value string) error

	// Evaluate runs a JavaScript expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, expr string, out any) error

	// Close terminates the browser process.
	Close() error
}

// Launcher starts new Browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Browser, error)
}

// Options configures a launched browser.
type Options struct {
	// Headless runs Chrome without a window.
	Headless bool

	// SlowMo is the minimum pause between two browser steps.
	SlowMo time.Duration

	// Timeout bounds each individual step. Zero means 30 seconds.
	Timeout time.Duration

	// ExecPath overrides the Chrome binary location.
	ExecPath string

	// UserAgent overrides the browser user agent.
	UserAgent string
}

// withDefaults returns a copy of o with zero values replaced.
func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.SlowMo < 0 {
		o.SlowMo = 0
	}
	return o
}

// StepError reports a failed browser step.
type StepError struct {
	Step   string
	Target string
	Err    error
}

func (e *StepError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("browser: %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("browser: %s %q: %v", e.Step, e.Target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a browser step that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

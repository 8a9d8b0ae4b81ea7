// Package browsertest provides an in-memory browser.Browser for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/shineum/webmail-driver/internal/browser"
)

// Call records one interaction with a Fake.
type Call struct {
	Method string
	Target string
	Value  string
}

// Fake records every interaction instead of driving a real browser.
type Fake struct {
	mu sync.Mutex

	// Calls lists every step in the order it was issued.
	Calls []Call

	// Results maps a substring of an Evaluate expression to the value
	// decoded into the caller's output. Expressions with no match leave
	// the output untouched.
	Results map[string]any

	// FailOn maps a selector or URL to the error the step returns.
	FailOn map[string]error

	closes int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Results: make(map[string]any),
		FailOn:  make(map[string]error),
	}
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	return f.record("navigate", url, "")
}

func (f *Fake) WaitVisible(_ context.Context, sel string) error {
	return f.record("wait visible", sel, "")
}

func (f *Fake) WaitNotPresent(_ context.Context, sel string) error {
	return f.record("wait not present", sel, "")
}

func (f *Fake) Click(_ context.Context, sel string) error {
	return f.record("click", sel, "")
}

func (f *Fake) SendKeys(_ context.Context, sel, text string) error {
	return f.record("send keys", sel, text)
}

func (f *Fake) SetValue(_ context.Context, sel, value string) error {
	return f.record("set value", sel, value)
}

func (f *Fake) Evaluate(_ context.Context, expr string, out any) error {
	if err := f.record("evaluate", "", expr); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for key, v := range f.Results {
		if !strings.Contains(expr, key) {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("browsertest: marshal result for %q: %w", key, err)
		}
		return json.Unmarshal(data, out)
	}
	return nil
}

// Close marks the fake closed. A second call returns browser.ErrClosed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closes > 1 {
		return browser.ErrClosed
	}
	return nil
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes > 0
}

// CloseCount returns how many times Close was called.
func (f *Fake) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// Steps returns the number of recorded interactions.
func (f *Fake) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Called reports whether method was issued against target.
func (f *Fake) Called(method, target string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c.Method == method && c.Target == target {
			return true
		}
	}
	return false
}

// Typed returns the text sent to sel, or "" if nothing was typed.
func (f *Fake) Typed(sel string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c.Method == "send keys" && c.Target == sel {
			return c.Value
		}
	}
	return ""
}

// Visited returns the navigated URLs in order.
func (f *Fake) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for _, c := range f.Calls {
		if c.Method == "navigate" {
			urls = append(urls, c.Target)
		}
	}
	return urls
}

func (f *Fake) record(method, target, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closes > 0 {
		return browser.ErrClosed
	}
	f.Calls = append(f.Calls, Call{Method: method, Target: target, Value: value})
	if err, ok := f.FailOn[target]; ok && target != "" {
		return &browser.StepError{Step: method, Target: target, Err: err}
	}
	return nil
}

// Launcher hands out a prepared Fake.
type Launcher struct {
	mu sync.Mutex

	// Browser is returned by every Launch call. A fresh Fake is created when nil.
	Browser *Fake

	// Err, when set, makes Launch fail.
	Err error

	launches int
	last     browser.Options
}

func (l *Launcher) Launch(_ context.Context, opts browser.Options) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.last = opts
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Browser == nil {
		l.Browser = New()
	}
	return l.Browser, nil
}

// Launches returns how many times Launch was called.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// LastOptions returns the options of the latest Launch call.
func (l *Launcher) LastOptions() browser.Options {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

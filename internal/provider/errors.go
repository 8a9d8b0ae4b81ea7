package provider

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced by providers and sessions.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = iota
	// KindValidation means a precondition failed before any browser step.
	KindValidation
	// KindResolution means no registered provider matched an identifier.
	KindResolution
	// KindAutomation means a browser-driven step failed.
	KindAutomation
	// KindLifecycle means a session was used after it was closed.
	KindLifecycle
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResolution:
		return "resolution"
	case KindAutomation:
		return "automation"
	case KindLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// Sentinels matching every Error of the corresponding kind with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrResolution    = errors.New("resolution error")
	ErrAutomation    = errors.New("automation error")
	ErrSessionClosed = errors.New("session already closed")
)

// Causes provider scripts wrap into automation errors when the UI lets
// them tell these failures apart.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountCreation    = errors.New("account creation failed")
)

// Error is the error type returned across the provider boundary.
type Error struct {
	Kind     Kind
	Op       string
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	prefix := e.Op
	if e.Provider != "" {
		prefix = e.Provider + " " + e.Op
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", prefix, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrResolution:
		return e.Kind == KindResolution
	case ErrAutomation:
		return e.Kind == KindAutomation
	case ErrSessionClosed:
		return e.Kind == KindLifecycle
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ValidationError reports a violated precondition.
func ValidationError(op, format string, args ...any) error {
	return validationError(op, format, args...)
}

// AutomationError wraps a failed browser step of provider name.
// It returns nil when err is nil.
func AutomationError(name, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindAutomation {
		return err
	}
	return &Error{Kind: KindAutomation, Op: op, Provider: name, Err: err}
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func resolutionError(op, format string, args ...any) *Error {
	return &Error{Kind: KindResolution, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func lifecycleError(op string) *Error {
	return &Error{Kind: KindLifecycle, Op: op, Msg: ErrSessionClosed.Error()}
}

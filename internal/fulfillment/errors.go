package fulfillment

import (
	"errors"
	"strings"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoPlaceholders means the template has nothing to fill, so no session is offered.
	ErrNoPlaceholders    = errors.New("template has no placeholders")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrBusy              = errors.New("session busy")
	ErrConfirmDisabled   = errors.New("confirm disabled")
	ErrUnknownField      = errors.New("unknown field")
	ErrSessionClosed     = errors.New("session closed")
	// ErrStale is returned to a caller whose result arrived after the session moved on.
	ErrStale          = errors.New("stale result discarded")
	ErrRenderFailed   = errors.New("render produced no artifact")
	ErrDeliveryFailed = errors.New("delivery failed")
)

// ConfirmDisabledError lists the placeholders that still lack a value.
type ConfirmDisabledError struct {
	Missing []string
}

func (e *ConfirmDisabledError) Error() string {
	return "confirm disabled: missing " + strings.Join(e.Missing, ", ")
}

func (e *ConfirmDisabledError) Unwrap() error { return ErrConfirmDisabled }

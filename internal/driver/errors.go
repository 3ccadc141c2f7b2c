package driver

import (
	"errors"
	"fmt"
	"strings"
)

// SelectorNotFoundError means none of an ordered candidate list matched,
// i.e. the site's markup drifted. Terminal: retrying cannot help, the list
// itself needs updating, so the attempted candidates ride along for
// diagnosis.
type SelectorNotFoundError struct {
	Candidates []string
	Err        error
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("no selector matched [%s]: %v", strings.Join(e.Candidates, ", "), e.Err)
}

func (e *SelectorNotFoundError) Unwrap() error {
	return e.Err
}

// SessionLossError means the automation context died mid-operation: the
// remote session closed, the browser crashed, or the control protocol
// errored. This is the only error class worth retrying with a fresh session.
type SessionLossError struct {
	Err error
}

func (e *SessionLossError) Error() string {
	return fmt.Sprintf("session lost: %v", e.Err)
}

func (e *SessionLossError) Unwrap() error {
	return e.Err
}

// Transport failure messages that mean the session is gone rather than the
// page being wrong. Matched case-insensitively against engine errors.
var sessionLossMarkers = []string{
	"target closed",
	"target page, context or browser has been closed",
	"browser has been closed",
	"browser closed",
	"context was destroyed",
	"websocket",
	"connection closed",
	"connection refused",
	"protocol error",
}

// IsSessionLoss reports whether err belongs to the session-loss class,
// either as a typed *SessionLossError or by engine message.
func IsSessionLoss(err error) bool {
	if err == nil {
		return false
	}
	var loss *SessionLossError
	if errors.As(err, &loss) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range sessionLossMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classify wraps engine errors so callers can branch on the session-loss
// class with errors.As instead of string matching at every call site.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var loss *SessionLossError
	if errors.As(err, &loss) {
		return err
	}
	if IsSessionLoss(err) {
		return &SessionLossError{Err: err}
	}
	return err
}

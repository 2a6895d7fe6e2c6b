package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"

	"charm.land/fantasy"
)

// FaultKind is the closed set of recoverable per-turn failures.
type FaultKind int

// Fault kinds, in classification order.
const (
	FaultUnknown FaultKind = iota
	FaultNetwork
	FaultRemote
	FaultMalformed
	FaultCanceled
)

// Fault pairs a classified error with the message shown to the operator.
type Fault struct {
	Kind FaultKind
	Err  error
}

// Classify maps an error from a turn to a fault kind.
//
// Cancellation is separated out because the session treats it as a normal
// exit, not a recoverable turn error.
func Classify(err error) Fault {
	switch {
	case errors.Is(err, context.Canceled):
		return Fault{Kind: FaultCanceled, Err: err}

	case isProviderError(err):
		return Fault{Kind: FaultRemote, Err: err}

	case isNetworkError(err):
		return Fault{Kind: FaultNetwork, Err: err}

	case isMalformedError(err):
		return Fault{Kind: FaultMalformed, Err: err}
	}
	return Fault{Kind: FaultUnknown, Err: err}
}

// Message returns the one-line diagnostic for this fault.
func (f Fault) Message() string {
	switch f.Kind {
	case FaultNetwork:
		return fmt.Sprintf("Network error: %s", f.Err)
	case FaultRemote:
		var pe *fantasy.ProviderError
		if errors.As(f.Err, &pe) {
			if title := fantasy.ErrorTitleForStatusCode(pe.StatusCode); title != "" {
				return fmt.Sprintf("%s %s", title, pe.Message)
			}
		}
		return fmt.Sprintf("The model provider returned an error: %s", f.Err)
	case FaultMalformed:
		return fmt.Sprintf("Received a malformed response: %s", f.Err)
	case FaultCanceled:
		return "Canceled."
	}
	return f.Err.Error()
}

func isProviderError(err error) bool {
	var pe *fantasy.ProviderError
	return errors.As(err, &pe)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func isMalformedError(err error) bool {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return true
	}
	var te *json.UnmarshalTypeError
	return errors.As(err, &te)
}

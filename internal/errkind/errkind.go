// Package errkind classifies failures of network operations into the small
// set of categories the interface cares about.
package errkind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Kind is the category of a failure.
type Kind int

const (
	Unknown Kind = iota
	NetworkUnavailable
	MalformedResponse
	Cancelled
	EmptyInput
	ServerRejected
)

func (k Kind) String() string {
	switch k {
	case NetworkUnavailable:
		return "network unavailable"
	case MalformedResponse:
		return "malformed response"
	case Cancelled:
		return "cancelled"
	case EmptyInput:
		return "empty input"
	case ServerRejected:
		return "server rejected"
	default:
		return "unknown"
	}
}

// Error carries a Kind together with the operation that failed and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrEmptyInput marks a submission with nothing to send. It classifies as
// EmptyInput and is never shown to the user.
var ErrEmptyInput = &Error{Kind: EmptyInput}

// New builds an Error with an explicit kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err and attaches op. Errors that already carry a kind keep it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *Error
	if errors.As(err, &ke) {
		if ke.Op == "" {
			return &Error{Kind: ke.Kind, Op: op, Err: ke.Err}
		}
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// Classify inspects the error chain and returns its category.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}

	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkUnavailable
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return MalformedResponse
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NetworkUnavailable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkUnavailable
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return NetworkUnavailable
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NetworkUnavailable
		}
		if kind := Classify(urlErr.Err); kind != Unknown {
			return kind
		}
		return NetworkUnavailable
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return NetworkUnavailable
	}

	// Some transports only hand back strings.
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "network is unreachable"):
		return NetworkUnavailable
	case strings.Contains(lower, "invalid character"),
		strings.Contains(lower, "unexpected end of json"):
		return MalformedResponse
	}
	return Unknown
}

// Visible reports whether err should be shown to the user.
func Visible(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err) {
	case Cancelled, EmptyInput:
		return false
	default:
		return true
	}
}

// Message renders err as a one-line, user-facing status.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case NetworkUnavailable:
		return "Cannot reach server: " + err.Error()
	case MalformedResponse:
		return "Unexpected response: " + err.Error()
	case ServerRejected:
		return "Server error: " + err.Error()
	case Cancelled:
		return "Cancelled"
	case EmptyInput:
		return ""
	default:
		return "Error: " + err.Error()
	}
}

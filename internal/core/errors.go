package core

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the web adapter can map it to an
// HTTP status without string-matching messages.
type Kind string

const (
	KindValidation             Kind = "VALIDATION"
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindOrderTerminal          Kind = "ORDER_TERMINAL"
	KindOverReceipt            Kind = "OVER_RECEIPT"
	KindOverReturn             Kind = "OVER_RETURN"
	KindUnknownLineItem        Kind = "UNKNOWN_LINE_ITEM"
	KindOrderNotFound          Kind = "ORDER_NOT_FOUND"
	KindDeviceNotFound         Kind = "DEVICE_NOT_FOUND"
	KindTemplateNotFound       Kind = "TEMPLATE_NOT_FOUND"
	KindReasonRequired         Kind = "REASON_REQUIRED"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	KindDependencyFailure      Kind = "DEPENDENCY_FAILURE"
)

// Error is a domain error with a machine-readable kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a domain error with the given kind and formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

package printer

import (
	"fmt"
)

// Kind classifies dispatch failures.
type Kind string

const (
	KindFetchFailed        Kind = "FetchFailed"
	KindInvalidDocument    Kind = "EmptyOrInvalidDocument"
	KindPrinterNotFound    Kind = "PrinterNotFound"
	KindNetworkPrintFailed Kind = "NetworkPrintFailed"
	KindLocalPrintFailed   Kind = "LocalPrintFailed"
	KindChannelsExhausted  Kind = "AllChannelsExhausted"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrFetchFailed        = &Error{Kind: KindFetchFailed}
	ErrInvalidDocument    = &Error{Kind: KindInvalidDocument}
	ErrPrinterNotFound    = &Error{Kind: KindPrinterNotFound}
	ErrNetworkPrintFailed = &Error{Kind: KindNetworkPrintFailed}
	ErrLocalPrintFailed   = &Error{Kind: KindLocalPrintFailed}
	ErrChannelsExhausted  = &Error{Kind: KindChannelsExhausted}
)

// Error is a classified dispatch failure.
type Error struct {
	Kind   Kind
	Msg    string
	Status int // upstream HTTP status for fetch failures, 0 otherwise
	Err    error
}

// Errorf creates a classified error wrapping cause (which may be nil).
func Errorf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

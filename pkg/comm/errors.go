package comm

import (
	"errors"
	"fmt"
	"strings"
)

// Display error codes.
const (
	CodeSendTimeout     = 10
	CodeSendCallback    = 11
	CodeOverlap         = 12
	CodeReceiveTimeout  = 20
	CodeReceiveCallback = 21
	CodeBadResponse     = 30
)

// Error is a fatal command/response error with a display code.
type Error struct {
	Code int
	Msg  string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the underlying transport error if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// DisplayCode returns the short code for the operator display.
func (e *Error) DisplayCode() string {
	return fmt.Sprintf("E%02d", e.Code)
}

var (
	// ErrSendTimeout indicates the transmit was not completed in time.
	ErrSendTimeout = &Error{Code: CodeSendTimeout, Msg: "send timeout"}
	// ErrSendCallback indicates a send completion out of phase.
	ErrSendCallback = &Error{Code: CodeSendCallback, Msg: "send completion out of phase"}
	// ErrBusy indicates an exchange was started while another is outstanding.
	ErrBusy = &Error{Code: CodeOverlap, Msg: "exchange already in flight"}
	// ErrReceiveTimeout indicates no complete response arrived in time.
	ErrReceiveTimeout = &Error{Code: CodeReceiveTimeout, Msg: "receive timeout"}
	// ErrReceiveCallback indicates a receive completion out of phase.
	ErrReceiveCallback = &Error{Code: CodeReceiveCallback, Msg: "receive completion out of phase"}
	// ErrBadResponse indicates the peer answered with something unacceptable.
	ErrBadResponse = &Error{Code: CodeBadResponse, Msg: "bad response"}
)

// MismatchError is returned when the response differs from the expected bytes.
type MismatchError struct {
	Got  []byte
	Want []byte
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("RX Mismatch: %s != %s", HexDump(e.Got), HexDump(e.Want))
}

// Is makes MismatchError match ErrBadResponse.
func (e *MismatchError) Is(target error) bool {
	return target == ErrBadResponse
}

// DisplayCode implements the display code of ErrBadResponse.
func (e *MismatchError) DisplayCode() string {
	return ErrBadResponse.DisplayCode()
}

// HexDump formats bytes as "[ 03 00 ]".
func HexDump(b []byte) string {
	var sb strings.Builder
	sb.WriteString("[ ")
	for _, v := range b {
		fmt.Fprintf(&sb, "%02x ", v)
	}
	sb.WriteString("]")
	return sb.String()
}

// Package probe contains the bench's own measurements of the peer:
// oscillator timing and USB-C CC line voltage.
package probe

import "fmt"

// Display codes of measurement failures.
const (
	CodeOscillator = "OSC"
	CodeCC         = "CC"
)

// Error is an out-of-tolerance measurement.
type Error struct {
	Code string
	Msg  string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}

// DisplayCode returns the short display mnemonic.
func (e *Error) DisplayCode() string {
	return e.Code
}

func errorf(code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

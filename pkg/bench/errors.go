package bench

import (
	"errors"
	"fmt"

	"github.com/robotalks/gwbench/pkg/comm"
)

// Coded errors carry the mnemonic shown on the display.
type Coded interface {
	DisplayCode() string
}

// CodeLocal is shown for failures of the bench itself.
const CodeLocal = "ERR"

// DisplayCode returns the display code of err.
func DisplayCode(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.DisplayCode()
	}
	return CodeLocal
}

// PinError reports a pin at the wrong level.
type PinError struct {
	Pin int
	// High is the observed level.
	High bool
}

// Error implements error.
func (e *PinError) Error() string {
	level := "low"
	if e.High {
		level = "high"
	}
	return fmt.Sprintf("pin %d reads %s", e.Pin, level)
}

// DisplayCode implements Coded.
func (e *PinError) DisplayCode() string {
	return fmt.Sprintf("P%02d", e.Pin)
}

// OptionBytesError reports option bytes matching no known pattern.
type OptionBytesError struct {
	Got []byte
}

// Error implements error.
func (e *OptionBytesError) Error() string {
	return "option bytes " + comm.HexDump(e.Got) + " match no known pattern"
}

// DisplayCode implements Coded.
func (e *OptionBytesError) DisplayCode() string {
	return "OPT"
}

// badResponse is a capability or format problem of a response.
func badResponse(format string, args ...interface{}) error {
	return &comm.Error{Code: comm.CodeBadResponse, Msg: fmt.Sprintf(format, args...)}
}

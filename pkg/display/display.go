// Package display renders bench status to the operator.
//
// The physical display shows three characters: a step number while the
// test runs, "---" on success, and an alternating error code and step
// number on failure.
package display

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/gwbench/pkg/framework"
	"github.com/robotalks/gwbench/pkg/gw"
)

// Width is the number of characters of the display.
const Width = 3

// Display shows a short text or a decimal.
type Display interface {
	ShowString(s string) error
	ShowDecimal(n int) error
}

// Reporter receives run outcomes. Sinks implement it optionally.
type Reporter interface {
	Restarted()
	Halted(step int, code string, err error)
	Passed(info gw.Info)
}

// Decimal formats n the way it appears on the display.
func Decimal(n int) string {
	s := fmt.Sprintf("%*d", Width, n)
	if len(s) > Width {
		s = s[len(s)-Width:]
	}
	return s
}

// Console logs what the display would show, once per change.
type Console struct {
	lock sync.Mutex
	last string
}

// ShowString implements Display.
func (c *Console) ShowString(s string) error {
	c.lock.Lock()
	changed := s != c.last
	c.last = s
	c.lock.Unlock()
	if changed {
		glog.V(1).Infof("DISPLAY %q", s)
	}
	return nil
}

// ShowDecimal implements Display.
func (c *Console) ShowDecimal(n int) error {
	return c.ShowString(Decimal(n))
}

// Text returns the current text.
func (c *Console) Text() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.last
}

// Mux fans out to several displays.
type Mux []Display

// ShowString implements Display.
func (m Mux) ShowString(s string) error {
	errs := &fx.AggregatedError{}
	for _, d := range m {
		errs.Add(d.ShowString(s))
	}
	return errs.Aggregate()
}

// ShowDecimal implements Display.
func (m Mux) ShowDecimal(n int) error {
	errs := &fx.AggregatedError{}
	for _, d := range m {
		errs.Add(d.ShowDecimal(n))
	}
	return errs.Aggregate()
}

// Restarted implements Reporter.
func (m Mux) Restarted() {
	for _, d := range m {
		if r, ok := d.(Reporter); ok {
			r.Restarted()
		}
	}
}

// Halted implements Reporter.
func (m Mux) Halted(step int, code string, err error) {
	for _, d := range m {
		if r, ok := d.(Reporter); ok {
			r.Halted(step, code, err)
		}
	}
}

// Passed implements Reporter.
func (m Mux) Passed(info gw.Info) {
	for _, d := range m {
		if r, ok := d.(Reporter); ok {
			r.Passed(info)
		}
	}
}

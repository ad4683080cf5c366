package comm

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Phase is the state of the Engine.
type Phase int

// Engine phases.
const (
	PhaseIdle Phase = iota
	PhaseSendPending
	PhaseSendComplete
	PhaseReceivePending
	PhaseReceiveComplete
)

var phaseNames = [...]string{"idle", "send-pending", "send-complete", "receive-pending", "receive-complete"}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Default deadlines of each direction.
const (
	DefaultSendTimeout    = 500 * time.Millisecond
	DefaultReceiveTimeout = 5000 * time.Millisecond
)

// ResponseBufferSize is the capacity of the response landing buffer.
const ResponseBufferSize = 64

// Exchange is one request/response transaction.
type Exchange struct {
	Command []byte
	// Expect is compared against the response if not nil.
	Expect      []byte
	ResponseLen int
}

// Engine runs one Exchange at a time over a Transport.
type Engine struct {
	SendTimeout    time.Duration
	ReceiveTimeout time.Duration

	transport Transport
	exchange  Exchange
	buf       [ResponseBufferSize]byte

	lock  sync.Mutex
	phase Phase
	since time.Time
	fault error
}

// NewEngine creates an Engine and installs it as the transport handler.
func NewEngine(t Transport) *Engine {
	e := &Engine{
		SendTimeout:    DefaultSendTimeout,
		ReceiveTimeout: DefaultReceiveTimeout,
		transport:      t,
	}
	t.SetHandler(e)
	return e
}

// Transport returns the wrapped transport.
func (e *Engine) Transport() Transport {
	return e.transport
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.phase
}

// Idle reports no exchange is outstanding and no fault is pending.
func (e *Engine) Idle() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.phase == PhaseIdle && e.fault == nil
}

// Response returns the landing buffer of the last exchange. It is only
// valid until the next Begin.
func (e *Engine) Response() []byte {
	return e.buf[:e.exchange.ResponseLen]
}

// Begin starts an exchange.
func (e *Engine) Begin(now time.Time, x Exchange) error {
	if x.ResponseLen > ResponseBufferSize || x.ResponseLen <= 0 {
		return &Error{Code: CodeOverlap, Msg: fmt.Sprintf("invalid response length %d", x.ResponseLen)}
	}
	if x.Expect != nil && len(x.Expect) != x.ResponseLen {
		return &Error{Code: CodeOverlap, Msg: fmt.Sprintf("expected response is %d bytes, receiving %d", len(x.Expect), x.ResponseLen)}
	}
	e.lock.Lock()
	if e.fault != nil {
		err := e.fault
		e.lock.Unlock()
		return err
	}
	if e.phase != PhaseIdle {
		e.lock.Unlock()
		return ErrBusy
	}
	e.exchange = x
	e.phase, e.since = PhaseSendPending, now
	e.lock.Unlock()

	glog.V(2).Infof("TX %s", HexDump(x.Command))
	if err := e.transport.Transmit(x.Command); err != nil {
		e.lock.Lock()
		e.phase = PhaseIdle
		e.lock.Unlock()
		return &Error{Code: CodeSendTimeout, Msg: "transmit", Err: err}
	}
	return nil
}

// SendComplete implements Handler.
func (e *Engine) SendComplete() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.phase != PhaseSendPending {
		e.faultLocked(ErrSendCallback)
		return
	}
	e.phase = PhaseSendComplete
}

// ReceiveComplete implements Handler.
func (e *Engine) ReceiveComplete() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.phase != PhaseReceivePending {
		e.faultLocked(ErrReceiveCallback)
		return
	}
	e.phase = PhaseReceiveComplete
}

func (e *Engine) faultLocked(err error) {
	glog.Errorf("%v in phase %s", err, e.phase)
	if e.fault == nil {
		e.fault = err
	}
}

// Poll advances the exchange. Any returned error is fatal.
func (e *Engine) Poll(now time.Time) error {
	e.lock.Lock()
	if e.fault != nil {
		e.lock.Unlock()
		return e.fault
	}
	phase := e.phase
	switch phase {
	case PhaseSendComplete:
		e.phase, e.since = PhaseReceivePending, now
	case PhaseReceiveComplete:
		e.phase = PhaseIdle
	}
	since := e.since
	e.lock.Unlock()

	switch phase {
	case PhaseSendPending:
		if now.Sub(since) > e.SendTimeout {
			return ErrSendTimeout
		}
	case PhaseSendComplete:
		// the receive may complete synchronously, so no lock is held here.
		if err := e.transport.Receive(e.buf[:e.exchange.ResponseLen]); err != nil {
			return &Error{Code: CodeReceiveTimeout, Msg: "receive", Err: err}
		}
	case PhaseReceivePending:
		if now.Sub(since) > e.ReceiveTimeout {
			return ErrReceiveTimeout
		}
	case PhaseReceiveComplete:
		rsp := e.buf[:e.exchange.ResponseLen]
		glog.V(2).Infof("RX %s", HexDump(rsp))
		if e.exchange.Expect != nil && !bytes.Equal(rsp, e.exchange.Expect) {
			err := &MismatchError{
				Got:  append([]byte(nil), rsp...),
				Want: append([]byte(nil), e.exchange.Expect...),
			}
			glog.Error(err.Error())
			e.lock.Lock()
			e.phase, e.fault = PhaseReceiveComplete, err
			e.lock.Unlock()
			return err
		}
	}
	return nil
}

// Reset drops the outstanding exchange and any fault.
func (e *Engine) Reset() {
	e.lock.Lock()
	e.phase, e.fault = PhaseIdle, nil
	e.exchange = Exchange{}
	e.lock.Unlock()
}

// Do runs an exchange to completion, servicing the transport while waiting.
// It is for interactive tools; the bench itself never blocks on an exchange.
func (e *Engine) Do(ctx context.Context, x Exchange) ([]byte, error) {
	if err := e.Begin(time.Now(), x); err != nil {
		return nil, err
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		e.transport.Process()
		if err := e.Poll(time.Now()); err != nil {
			e.abandon()
			return nil, err
		}
		if e.Idle() {
			return append([]byte(nil), e.Response()...), nil
		}
		select {
		case <-ctx.Done():
			e.abandon()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// abandon resets the engine. A transfer still in flight is dropped with
// the transport, so it can not land in the buffer of a later exchange.
func (e *Engine) abandon() {
	switch e.Phase() {
	case PhaseSendPending, PhaseReceivePending:
		e.transport.Reset()
	}
	e.Reset()
}

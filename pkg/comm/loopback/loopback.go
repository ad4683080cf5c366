// Package loopback connects a comm.Engine to an in-process peer.
package loopback

import (
	"errors"
	"sync"

	"github.com/robotalks/gwbench/pkg/comm"
)

// ErrUnplugged is returned by transfers while the peer is unplugged.
var ErrUnplugged = errors.New("peer unplugged")

// Peer answers commands.
type Peer interface {
	// Handle consumes a command and returns the bytes the peer sends back.
	Handle(cmd []byte) []byte
}

// Resetter is implemented by peers which drop state on a reset.
type Resetter interface {
	Reset()
}

// Transport is a comm.Transport wired to a Peer. Completions are reported
// from Process unless Sync is set.
type Transport struct {
	Peer Peer
	// Sync reports completions from within Transmit and Receive.
	Sync bool

	handler comm.Handler

	lock      sync.Mutex
	plugged   bool
	rx        []byte
	rxBuf     []byte
	txPending bool
}

// New creates a plugged Transport.
func New(peer Peer) *Transport {
	return &Transport{Peer: peer, plugged: true}
}

// SetHandler implements comm.Transport.
func (t *Transport) SetHandler(h comm.Handler) {
	t.handler = h
}

// Plug connects or disconnects the peer.
func (t *Transport) Plug(plugged bool) {
	t.lock.Lock()
	t.plugged = plugged
	if !plugged {
		t.rx, t.rxBuf, t.txPending = nil, nil, false
	}
	t.lock.Unlock()
}

// Connected implements comm.Transport.
func (t *Transport) Connected() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.plugged
}

// Transmit implements comm.Transport.
func (t *Transport) Transmit(buf []byte) error {
	t.lock.Lock()
	if !t.plugged {
		t.lock.Unlock()
		return ErrUnplugged
	}
	t.rx = append(t.rx, t.Peer.Handle(append([]byte(nil), buf...))...)
	t.txPending = true
	t.lock.Unlock()
	if t.Sync {
		t.Process()
	}
	return nil
}

// Receive implements comm.Transport.
func (t *Transport) Receive(buf []byte) error {
	t.lock.Lock()
	if !t.plugged {
		t.lock.Unlock()
		return ErrUnplugged
	}
	t.rxBuf = buf
	t.lock.Unlock()
	if t.Sync {
		t.Process()
	}
	return nil
}

// Process implements comm.Transport.
func (t *Transport) Process() {
	t.lock.Lock()
	sent := t.txPending
	t.txPending = false
	received := false
	if t.rxBuf != nil && len(t.rx) >= len(t.rxBuf) {
		n := copy(t.rxBuf, t.rx)
		t.rx, t.rxBuf = t.rx[n:], nil
		received = true
	}
	t.lock.Unlock()
	if sent {
		t.handler.SendComplete()
	}
	if received {
		t.handler.ReceiveComplete()
	}
}

// Reset implements comm.Transport.
func (t *Transport) Reset() {
	t.lock.Lock()
	t.rx, t.rxBuf, t.txPending = nil, nil, false
	t.lock.Unlock()
	if r, ok := t.Peer.(Resetter); ok {
		r.Reset()
	}
}

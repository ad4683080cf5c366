package serial

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	lock    sync.Mutex
	written []byte
	pending []byte
	readErr error
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.pending) == 0 {
		p.lock.Unlock()
		time.Sleep(time.Millisecond)
		p.lock.Lock()
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) feed(b ...byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.pending = append(p.pending, b...)
}

func (p *fakePort) fail(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.readErr = err
}

func (p *fakePort) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

type countingHandler struct {
	sent     chan struct{}
	received chan struct{}
}

func newCountingHandler() *countingHandler {
	return &countingHandler{sent: make(chan struct{}, 4), received: make(chan struct{}, 4)}
}

func (h *countingHandler) SendComplete()    { h.sent <- struct{}{} }
func (h *countingHandler) ReceiveComplete() { h.received <- struct{}{} }

func wait(t *testing.T, ch chan struct{}) {
	select {
	case <-ch:
	case <-time.After(time.Second):
		require.Fail(t, "completion not reported")
	}
}

func newTestTransport(port *fakePort) (*Transport, *countingHandler, *int) {
	opens := 0
	now := time.Unix(0, 0)
	tr := &Transport{
		Config: Config{Port: "/dev/ttyACM0", RetryInterval: time.Second},
		Open: func(name string, cfg Config) (Port, error) {
			opens++
			if port == nil {
				return nil, errors.New("no such device")
			}
			return port, nil
		},
		Clock: func() time.Time { now = now.Add(100 * time.Millisecond); return now },
	}
	h := newCountingHandler()
	tr.SetHandler(h)
	return tr, h, &opens
}

func TestTransportExchange(t *testing.T) {
	port := &fakePort{}
	tr, h, _ := newTestTransport(port)
	require.False(t, tr.Connected())
	assert.Equal(t, ErrNotConnected, tr.Transmit([]byte{0}))
	tr.Process()
	require.True(t, tr.Connected())

	require.NoError(t, tr.Transmit([]byte{0x00, 0x03, 0x00}))
	wait(t, h.sent)
	assert.Equal(t, []byte{0x00, 0x03, 0x00}, port.written)

	buf := make([]byte, 4)
	require.NoError(t, tr.Receive(buf))
	port.feed(0x00, 0x00)
	port.feed(0x01, 0x02)
	wait(t, h.received)
	assert.Equal(t, []byte{0, 0, 1, 2}, buf)
}

func TestTransportRetryInterval(t *testing.T) {
	tr, _, opens := newTestTransport(nil)
	for i := 0; i < 20; i++ {
		tr.Process()
	}
	// the clock advances 100ms per call
	assert.Equal(t, 2, *opens)
	assert.False(t, tr.Connected())
}

func TestTransportReadErrorDisconnects(t *testing.T) {
	port := &fakePort{}
	tr, h, _ := newTestTransport(port)
	tr.Process()
	require.NoError(t, tr.Receive(make([]byte, 2)))
	port.fail(errors.New("input/output error"))
	require.Eventually(t, func() bool { return !tr.Connected() }, time.Second, time.Millisecond)
	assert.True(t, port.isClosed())
	assert.Empty(t, h.received)
}

func TestTransportResetAbandonsReceive(t *testing.T) {
	port := &fakePort{}
	tr, h, _ := newTestTransport(port)
	tr.Process()
	buf := make([]byte, 2)
	require.NoError(t, tr.Receive(buf))
	tr.Reset()
	assert.False(t, tr.Connected())
	port.feed(0xaa, 0xbb)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.received)
	assert.Equal(t, []byte{0, 0}, buf)
}

func TestTransportDropsIdlePortWhenDeviceGone(t *testing.T) {
	port := &fakePort{}
	tr, h, opens := newTestTransport(port)
	var lock sync.Mutex
	present := true
	var checked []string
	tr.Present = func(name string) bool {
		lock.Lock()
		defer lock.Unlock()
		checked = append(checked, name)
		return present
	}
	tr.Process()
	require.True(t, tr.Connected())
	for i := 0; i < 20; i++ {
		tr.Process()
	}
	require.True(t, tr.Connected())
	assert.Contains(t, checked, "/dev/ttyACM0")

	lock.Lock()
	present = false
	lock.Unlock()
	// nothing in flight, only the presence check can see the unplug
	for i := 0; i < 20 && tr.Connected(); i++ {
		tr.Process()
	}
	assert.False(t, tr.Connected())
	assert.True(t, port.isClosed())
	assert.Empty(t, h.sent)
	assert.Equal(t, 1, *opens)

	lock.Lock()
	present = true
	lock.Unlock()
	for i := 0; i < 20 && !tr.Connected(); i++ {
		tr.Process()
	}
	assert.True(t, tr.Connected())
	assert.Equal(t, 2, *opens)
}

func TestTransportUnplugAbandonsReceive(t *testing.T) {
	port := &fakePort{}
	tr, h, _ := newTestTransport(port)
	tr.Present = func(string) bool { return false }
	tr.Process()
	buf := make([]byte, 2)
	require.NoError(t, tr.Receive(buf))
	for i := 0; i < 20 && tr.Connected(); i++ {
		tr.Process()
	}
	require.False(t, tr.Connected())
	port.feed(0xaa, 0xbb)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.received)
	assert.Equal(t, []byte{0, 0}, buf)
}

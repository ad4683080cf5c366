// Package websocket mirrors the bench display to browsers.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/gwbench/pkg/display"
)

// ReadWriter sends and receives whole messages on a websocket connection.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket reads one message.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WriteText sends a text message.
func (p *ReadWriter) WriteText(s string) error {
	return websocket.Message.Send((*websocket.Conn)(p), s)
}

// Mirror is a display.Display serving the current text to every
// connected websocket client.
type Mirror struct {
	lock    sync.Mutex
	text    string
	clients map[*client]struct{}
}

type client struct {
	rw    *ReadWriter
	queue chan string
}

const clientQueueSize = 16

// NewMirror creates a Mirror.
func NewMirror() *Mirror {
	return &Mirror{clients: make(map[*client]struct{})}
}

// Handler returns the websocket endpoint.
func (m *Mirror) Handler() http.Handler {
	return websocket.Handler(m.serve)
}

func (m *Mirror) serve(conn *websocket.Conn) {
	c := &client{rw: New(conn), queue: make(chan string, clientQueueSize)}
	m.lock.Lock()
	c.queue <- m.text
	m.clients[c] = struct{}{}
	m.lock.Unlock()
	glog.V(1).Infof("display client %s connected", conn.Request().RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// clients send nothing, reading detects the close.
			if _, err := c.rw.ReadPacket(); err != nil {
				return
			}
		}
	}()

	defer func() {
		m.lock.Lock()
		delete(m.clients, c)
		m.lock.Unlock()
		conn.Close()
		glog.V(1).Infof("display client %s disconnected", conn.Request().RemoteAddr)
	}()
	for {
		select {
		case text := <-c.queue:
			if err := c.rw.WriteText(text); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ShowString implements display.Display. Slow clients miss updates.
func (m *Mirror) ShowString(s string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if s == m.text {
		return nil
	}
	m.text = s
	for c := range m.clients {
		select {
		case c.queue <- s:
		default:
		}
	}
	return nil
}

// ShowDecimal implements display.Display.
func (m *Mirror) ShowDecimal(n int) error {
	return m.ShowString(display.Decimal(n))
}

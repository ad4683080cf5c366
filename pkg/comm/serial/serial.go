// Package serial implements comm.Transport over a USB CDC serial port.
package serial

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/robotalks/gwbench/pkg/comm"
)

// USB identity of the peer.
const (
	GreaseweazleVID = "1209"
	GreaseweazlePID = "4d69"
)

// ErrNotConnected is returned when a transfer is started without a port.
var ErrNotConnected = errors.New("serial port not connected")

// Config is the serial transport configuration.
type Config struct {
	// Port is the device path, empty to discover by USB identity.
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	// RetryInterval limits how often a missing port is re-opened.
	RetryInterval time.Duration
}

var defaultConfig = Config{
	BaudRate:      115200,
	ReadTimeout:   20 * time.Millisecond,
	RetryInterval: time.Second,
}

func init() {
	if port := os.Getenv("GWBENCH_PORT"); port != "" {
		defaultConfig.Port = port
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial device of the peer, discovered by USB ID if empty")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read poll interval")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry-interval", defaultConfig.RetryInterval, "Serial reopen and presence check interval")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Port is the part of a serial port the transport uses.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a named port.
type Opener func(name string, cfg Config) (Port, error)

// OpenPort opens a real serial device.
func OpenPort(name string, cfg Config) (Port, error) {
	port, err := bugst.Open(name, &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	port.ResetInputBuffer()
	return port, nil
}

// Discover finds the first port with the peer's USB identity.
func Discover() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, GreaseweazleVID) && strings.EqualFold(p.PID, GreaseweazlePID) {
			glog.V(1).Infof("found %s serial %s on %s", p.Product, p.SerialNumber, p.Name)
			return p.Name, nil
		}
	}
	return "", ErrNotConnected
}

// DevicePresent reports whether the named port is still enumerated.
// Enumeration failures count as present, the next transfer tells.
func DevicePresent(name string) bool {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		glog.V(3).Infof("enumerate: %v", err)
		return true
	}
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Transport is a comm.Transport over a serial port. Transfers run in
// goroutines and report completion through the handler.
type Transport struct {
	Config Config
	Open   Opener
	// Present checks the open port is still there, every RetryInterval.
	// Liveness is only seen through transfer errors if nil.
	Present func(name string) bool
	Clock   func() time.Time

	handler comm.Handler

	lock    sync.Mutex
	port    Port
	name    string
	gen     uint64
	retryAt time.Time
}

// New creates a Transport.
func New(cfg Config) *Transport {
	return &Transport{Config: cfg, Open: OpenPort, Present: DevicePresent, Clock: time.Now}
}

// SetHandler implements comm.Transport.
func (t *Transport) SetHandler(h comm.Handler) {
	t.handler = h
}

// Connected implements comm.Transport.
func (t *Transport) Connected() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.port != nil
}

// Process implements comm.Transport. It opens the port when absent and
// drops it once the device is no longer present.
func (t *Transport) Process() {
	t.lock.Lock()
	now := t.Clock()
	if now.Before(t.retryAt) {
		t.lock.Unlock()
		return
	}
	t.retryAt = now.Add(t.Config.RetryInterval)
	if t.port != nil {
		name, gen := t.name, t.gen
		t.lock.Unlock()
		if t.Present != nil && !t.Present(name) {
			t.disconnect(gen, fmt.Errorf("%s is gone", name))
		}
		return
	}
	defer t.lock.Unlock()
	name := t.Config.Port
	if name == "" {
		var err error
		if name, err = Discover(); err != nil {
			glog.V(3).Infof("discover: %v", err)
			return
		}
	}
	port, err := t.Open(name, t.Config)
	if err != nil {
		glog.V(1).Infof("open %s: %v", name, err)
		return
	}
	glog.Infof("connected %s", name)
	t.port, t.name = port, name
}

// Reset implements comm.Transport. In-flight transfers are abandoned and
// never complete.
func (t *Transport) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.gen++
	if t.port != nil {
		t.port.Close()
		t.port = nil
	}
}

func (t *Transport) current() (Port, uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.port, t.gen
}

// disconnect drops the port if gen is still current.
func (t *Transport) disconnect(gen uint64, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if gen != t.gen || t.port == nil {
		return
	}
	glog.Warningf("serial port lost: %v", err)
	t.gen++
	t.port.Close()
	t.port = nil
}

// Transmit implements comm.Transport.
func (t *Transport) Transmit(buf []byte) error {
	port, gen := t.current()
	if port == nil {
		return ErrNotConnected
	}
	data := append([]byte(nil), buf...)
	go func() {
		if _, err := port.Write(data); err != nil {
			t.disconnect(gen, err)
			return
		}
		if _, cur := t.current(); cur == gen {
			t.handler.SendComplete()
		}
	}()
	return nil
}

// Receive implements comm.Transport.
func (t *Transport) Receive(buf []byte) error {
	port, gen := t.current()
	if port == nil {
		return ErrNotConnected
	}
	go func() {
		data := make([]byte, len(buf))
		for n := 0; n < len(data); {
			if _, cur := t.current(); cur != gen {
				return
			}
			cnt, err := port.Read(data[n:])
			if err != nil {
				t.disconnect(gen, err)
				return
			}
			n += cnt
		}
		t.lock.Lock()
		if gen != t.gen {
			t.lock.Unlock()
			return
		}
		copy(buf, data)
		t.lock.Unlock()
		t.handler.ReceiveComplete()
	}()
	return nil
}

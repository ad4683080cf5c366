package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/gwbench/pkg/display"
	"github.com/robotalks/gwbench/pkg/gw"
)

// TopicRoot is the first topic level of all benches.
const TopicRoot = "gwbench"

// Meta describes the bench and is retained on its meta topic.
type Meta struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Port        string `json:"port,omitempty"`
}

// Publisher is the part of Queue used to publish.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Sink publishes display updates and run outcomes of one bench.
// Display updates are only published on change. Publishing never blocks,
// delivery failures are logged.
type Sink struct {
	Pub      Publisher
	Prefix   string
	Timeout  time.Duration
	lock     sync.Mutex
	text     string
	restarts uint32
}

// BenchPrefix returns the topic prefix of bench id.
func BenchPrefix(id string) string {
	return TopicRoot + "/" + id + "/"
}

// SplitTopic splits a bench topic into bench id and event name.
func SplitTopic(topic string) (id, event string, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != TopicRoot {
		return "", "", false
	}
	return items[1], items[2], true
}

// NewSink creates a Sink for bench id.
func NewSink(pub Publisher, id string) *Sink {
	return &Sink{Pub: pub, Prefix: BenchPrefix(id), Timeout: time.Second}
}

func (s *Sink) publish(topic string, msg proto.Message, retain bool) error {
	payload, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	token := s.Pub.PubWith(s.Prefix+topic, payload, 0, retain)
	// the poll loop must not wait for the broker.
	go func() {
		if !token.WaitTimeout(s.Timeout) {
			glog.Warningf("mqtt publish %s: timeout", topic)
		} else if err := token.Error(); err != nil {
			glog.Warningf("mqtt publish %s: %v", topic, err)
		}
	}()
	return nil
}

// ShowString implements display.Display.
func (s *Sink) ShowString(text string) error {
	s.lock.Lock()
	changed := text != s.text
	s.text = text
	s.lock.Unlock()
	if !changed {
		return nil
	}
	return s.publish(TopicDisplay, &DisplayEvent{Text: text}, true)
}

// ShowDecimal implements display.Display.
func (s *Sink) ShowDecimal(n int) error {
	return s.ShowString(display.Decimal(n))
}

// Restarted implements display.Reporter.
func (s *Sink) Restarted() {
	s.lock.Lock()
	s.restarts++
	count := s.restarts
	s.lock.Unlock()
	s.report(TopicRestart, &RestartEvent{Count: count})
}

// Halted implements display.Reporter.
func (s *Sink) Halted(step int, code string, err error) {
	msg := &HaltEvent{Step: int32(step), Code: code}
	if err != nil {
		msg.Message = err.Error()
	}
	s.report(TopicHalt, msg)
}

// Passed implements display.Reporter.
func (s *Sink) Passed(info gw.Info) {
	s.report(TopicPass, &PassEvent{
		Firmware: fmt.Sprintf("v%d.%d", info.FwMajor, info.FwMinor),
		Model:    uint32(info.HwModel),
		Submodel: uint32(info.HwSubmodel),
		McuId:    uint32(info.MCUID),
	})
}

func (s *Sink) report(topic string, msg proto.Message) {
	if err := s.publish(topic, msg, false); err != nil {
		glog.Warningf("mqtt %s: %v", topic, err)
	}
}

// Bench connects a Queue for bench meta and returns its Sink. The meta is
// retained and cleared by the will message on unexpected disconnect.
type Bench struct {
	Queue *Queue
	Sink  *Sink
	Meta  Meta
}

// NewBench creates the MQTT sink of a bench.
func NewBench(brokerURL string, meta Meta) (*Bench, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	prefix := BenchPrefix(meta.ID)
	opts.SetBinaryWill(topicPrefix+prefix+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("gwbench:" + meta.ID)
	}
	b := &Bench{Meta: meta, Queue: NewQueue(opts, topicPrefix)}
	b.Sink = NewSink(b.Queue, meta.ID)
	b.Queue.OnConnect = func(q *Queue) {
		data, err := json.Marshal(&b.Meta)
		if err != nil {
			panic(err)
		}
		q.PubWith(prefix+TopicMeta, data, 1, true)
	}
	return b, nil
}

// Name implements framework.Named.
func (b *Bench) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable.
func (b *Bench) Run(ctx context.Context) error {
	token := b.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Warningf("mqtt connect: %v", err)
	}
	<-ctx.Done()
	b.Queue.PubWith(b.Sink.Prefix+TopicMeta, nil, 1, true).WaitTimeout(time.Second)
	b.Queue.Close()
	return nil
}

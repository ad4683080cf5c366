package mqtt

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Event topics under the bench prefix.
const (
	TopicMeta    = "meta"
	TopicDisplay = "display"
	TopicRestart = "restart"
	TopicHalt    = "halt"
	TopicPass    = "pass"
)

// DisplayEvent mirrors the text on the bench display.
type DisplayEvent struct {
	Text string `protobuf:"bytes,1,opt,name=text,proto3" json:"text,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DisplayEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DisplayEvent) Reset() { *m = DisplayEvent{} }

// String implements proto.Message.
func (m *DisplayEvent) String() string { return proto.CompactTextString(m) }

// RestartEvent is sent when the bench starts over.
type RestartEvent struct {
	Count uint32 `protobuf:"varint,1,opt,name=count,proto3" json:"count,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *RestartEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RestartEvent) Reset() { *m = RestartEvent{} }

// String implements proto.Message.
func (m *RestartEvent) String() string { return proto.CompactTextString(m) }

// HaltEvent reports a failed unit.
type HaltEvent struct {
	Step    int32  `protobuf:"varint,1,opt,name=step,proto3" json:"step,omitempty"`
	Code    string `protobuf:"bytes,2,opt,name=code,proto3" json:"code,omitempty"`
	Message string `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *HaltEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *HaltEvent) Reset() { *m = HaltEvent{} }

// String implements proto.Message.
func (m *HaltEvent) String() string { return proto.CompactTextString(m) }

// PassEvent reports a unit which passed every check.
type PassEvent struct {
	Firmware string `protobuf:"bytes,1,opt,name=firmware,proto3" json:"firmware,omitempty"`
	Model    uint32 `protobuf:"varint,2,opt,name=model,proto3" json:"model,omitempty"`
	Submodel uint32 `protobuf:"varint,3,opt,name=submodel,proto3" json:"submodel,omitempty"`
	McuId    uint32 `protobuf:"varint,4,opt,name=mcu_id,json=mcuId,proto3" json:"mcu_id,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *PassEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PassEvent) Reset() { *m = PassEvent{} }

// String implements proto.Message.
func (m *PassEvent) String() string { return proto.CompactTextString(m) }

// NewEvent returns an empty message for the event topic.
func NewEvent(topic string) (proto.Message, error) {
	switch topic {
	case TopicDisplay:
		return &DisplayEvent{}, nil
	case TopicRestart:
		return &RestartEvent{}, nil
	case TopicHalt:
		return &HaltEvent{}, nil
	case TopicPass:
		return &PassEvent{}, nil
	}
	return nil, fmt.Errorf("unknown event topic %q", topic)
}

// DecodeEvent decodes the payload published on topic.
func DecodeEvent(topic string, payload []byte) (proto.Message, error) {
	msg, err := NewEvent(topic)
	if err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

package gw

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Opcodes of the main firmware.
const (
	CmdGetInfo        byte = 0
	CmdUpdate         byte = 1
	CmdSeek           byte = 2
	CmdHead           byte = 3
	CmdSetParams      byte = 4
	CmdGetParams      byte = 5
	CmdMotor          byte = 6
	CmdReadFlux       byte = 7
	CmdWriteFlux      byte = 8
	CmdGetFluxStatus  byte = 9
	CmdGetIndexTimes  byte = 10
	CmdSwitchFwMode   byte = 11
	CmdSelect         byte = 12
	CmdDeselect       byte = 13
	CmdSetBusType     byte = 14
	CmdSetPin         byte = 15
	CmdReset          byte = 16
	CmdEraseFlux      byte = 17
	CmdSourceBytes    byte = 18
	CmdSinkBytes      byte = 19
	CmdGetPin         byte = 20
	CmdTestMode       byte = 21
	CmdNoClickStep    byte = 22
	CmdMax                 = CmdNoClickStep
	GetInfoFirmware   byte = 0
	AckOkay           byte = 0
	InfoResponseSize       = 34
	AckResponseSize        = 2
	TestFrameSize          = 32
	testModeCmdLength      = 10
	infoFields             = 18
)

// Test-mode command codes.
const (
	TestCmdOptionBytes uint32 = 0
	TestCmdPins        uint32 = 1
	TestCmdLED         uint32 = 2
)

// testModeSignature unlocks test mode on the peer.
var testModeSignature = [8]byte{0x4e, 0x4b, 0x50, 0x6e, 0xd3, 0x10, 0x29, 0x38}

// InfoRequest returns the GetInfo(firmware) command.
func InfoRequest() []byte {
	return []byte{CmdGetInfo, 3, GetInfoFirmware}
}

// TestModeRequest returns the command entering test mode.
func TestModeRequest() []byte {
	b := make([]byte, testModeCmdLength)
	b[0], b[1] = CmdTestMode, testModeCmdLength
	copy(b[2:], testModeSignature[:])
	return b
}

// TestModeResponse is the only acceptable answer to TestModeRequest.
func TestModeResponse() []byte {
	return []byte{CmdTestMode, AckOkay}
}

// IsTestModeRequest checks a received frame against TestModeRequest.
func IsTestModeRequest(b []byte) bool {
	if len(b) != testModeCmdLength || b[0] != CmdTestMode || b[1] != testModeCmdLength {
		return false
	}
	for i, v := range testModeSignature {
		if b[2+i] != v {
			return false
		}
	}
	return true
}

// Info is the firmware information block returned by CmdGetInfo.
type Info struct {
	FwMajor        uint8
	FwMinor        uint8
	IsMainFirmware bool
	MaxCmd         uint8
	SampleFreq     uint32
	HwModel        uint8
	HwSubmodel     uint8
	USBSpeed       uint8
	MCUID          uint8
	MCUMHz         uint16
	MCUSRAMKB      uint16
	USBBufKB       uint16
}

// ParseInfo decodes the info block, without the opcode/ack header.
func ParseInfo(b []byte) (info Info, err error) {
	if len(b) < infoFields {
		return info, fmt.Errorf("info block too short: %d bytes", len(b))
	}
	info.FwMajor = b[0]
	info.FwMinor = b[1]
	info.IsMainFirmware = b[2] != 0
	info.MaxCmd = b[3]
	info.SampleFreq = binary.LittleEndian.Uint32(b[4:])
	info.HwModel = b[8]
	info.HwSubmodel = b[9]
	info.USBSpeed = b[10]
	info.MCUID = b[11]
	info.MCUMHz = binary.LittleEndian.Uint16(b[12:])
	info.MCUSRAMKB = binary.LittleEndian.Uint16(b[14:])
	info.USBBufKB = binary.LittleEndian.Uint16(b[16:])
	return
}

// Bytes encodes the info block into a full GetInfo response.
func (i Info) Bytes() []byte {
	b := make([]byte, InfoResponseSize)
	b[0], b[1] = CmdGetInfo, AckOkay
	p := b[2:]
	p[0], p[1] = i.FwMajor, i.FwMinor
	if i.IsMainFirmware {
		p[2] = 1
	}
	p[3] = i.MaxCmd
	binary.LittleEndian.PutUint32(p[4:], i.SampleFreq)
	p[8], p[9], p[10], p[11] = i.HwModel, i.HwSubmodel, i.USBSpeed, i.MCUID
	binary.LittleEndian.PutUint16(p[12:], i.MCUMHz)
	binary.LittleEndian.PutUint16(p[14:], i.MCUSRAMKB)
	binary.LittleEndian.PutUint16(p[16:], i.USBBufKB)
	return b
}

// String formats the info the way the bench logs it.
func (i Info) String() string {
	return fmt.Sprintf("v%d.%d %d model:%d.%d", i.FwMajor, i.FwMinor, i.MaxCmd, i.HwModel, i.HwSubmodel)
}

// PinMask holds one level bit per logical pin ID (0..63).
type PinMask uint64

// AllHigh has every pin released.
const AllHigh PinMask = ^PinMask(0)

// Level reports whether pin reads high.
func (m PinMask) Level(pin int) bool {
	return (m>>uint(pin))&1 != 0
}

// With returns the mask with pin set to level.
func (m PinMask) With(pin int, high bool) PinMask {
	if high {
		return m | 1<<uint(pin)
	}
	return m &^ (1 << uint(pin))
}

// String lists the pins which are high, e.g. "[2,4,6]".
func (m PinMask) String() string {
	var pins []string
	for i := 0; i < 64; i++ {
		if m.Level(i) {
			pins = append(pins, strconv.Itoa(i))
		}
	}
	return "[" + strings.Join(pins, ",") + "]"
}

// TestCommand is the fixed-size test-mode command frame.
type TestCommand struct {
	Cmd     uint32
	Payload [TestFrameSize - 4]byte
}

// PinsCommand drives peer pins to the levels in mask.
func PinsCommand(mask PinMask) TestCommand {
	c := TestCommand{Cmd: TestCmdPins}
	binary.LittleEndian.PutUint64(c.Payload[:], uint64(mask))
	return c
}

// LEDCommand switches the peer activity LED.
func LEDCommand(on bool) TestCommand {
	c := TestCommand{Cmd: TestCmdLED}
	if on {
		c.Payload[0] = 1
	}
	return c
}

// OptionBytesCommand requests the option-byte dump.
func OptionBytesCommand() TestCommand {
	return TestCommand{Cmd: TestCmdOptionBytes}
}

// Bytes encodes the command frame.
func (c TestCommand) Bytes() []byte {
	b := make([]byte, TestFrameSize)
	binary.LittleEndian.PutUint32(b, c.Cmd)
	copy(b[4:], c.Payload[:])
	return b
}

// Mask decodes the pin mask payload.
func (c TestCommand) Mask() PinMask {
	return PinMask(binary.LittleEndian.Uint64(c.Payload[:]))
}

// ParseTestCommand decodes a test-mode command frame.
func ParseTestCommand(b []byte) (c TestCommand, err error) {
	if len(b) != TestFrameSize {
		return c, fmt.Errorf("test command size %d, expect %d", len(b), TestFrameSize)
	}
	c.Cmd = binary.LittleEndian.Uint32(b)
	copy(c.Payload[:], b[4:])
	return
}

// TestResponse is the fixed-size test-mode response frame.
type TestResponse [TestFrameSize]byte

// ParseTestResponse copies a received response.
func ParseTestResponse(b []byte) (r TestResponse, err error) {
	if len(b) < TestFrameSize {
		return r, fmt.Errorf("test response size %d, expect %d", len(b), TestFrameSize)
	}
	copy(r[:], b)
	return
}

// Pins decodes the pin levels reported by the peer.
func (r TestResponse) Pins() PinMask {
	return PinMask(binary.LittleEndian.Uint64(r[:8]))
}

// OptionBytes returns the raw option-byte dump.
func (r TestResponse) OptionBytes() []byte {
	return r[:]
}

// PinsResponse encodes a pin-level response.
func PinsResponse(mask PinMask) TestResponse {
	var r TestResponse
	binary.LittleEndian.PutUint64(r[:], uint64(mask))
	return r
}

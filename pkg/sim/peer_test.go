package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
)

func TestPeerMainFirmware(t *testing.T) {
	p := NewPeer(pins.NewMemory())
	info, err := gw.ParseInfo(p.Handle(gw.InfoRequest())[2:])
	require.NoError(t, err)
	assert.Equal(t, DefaultInfo, info)
	assert.Equal(t, []byte{gw.CmdMotor, AckBadCommand}, p.Handle([]byte{gw.CmdMotor, 4, 0, 1}))
	assert.False(t, p.TestMode())
	assert.Equal(t, gw.TestModeResponse(), p.Handle(gw.TestModeRequest()))
	assert.True(t, p.TestMode())
	p.Reset()
	assert.False(t, p.TestMode())
}

func TestPeerPins(t *testing.T) {
	bank := pins.NewMemory()
	p := NewPeer(bank)
	p.Handle(gw.TestModeRequest())

	require.NoError(t, bank.Drive(pins.AllExcept(28)))
	rsp, err := gw.ParseTestResponse(p.Handle(gw.PinsCommand(pins.AllExcept(14)).Bytes()))
	require.NoError(t, err)
	assert.False(t, rsp.Pins().Level(28))
	assert.True(t, rsp.Pins().Level(8))
	in, _ := bank.Read()
	assert.False(t, in.Level(14))
	assert.True(t, in.Level(16))
}

func TestPeerFaults(t *testing.T) {
	bank := pins.NewMemory()
	p := NewPeer(bank)
	p.Faults.StuckPins = map[int]bool{16: false}
	p.Faults.OptionBytes = []byte{0xa5, 0x5a, 0x00}
	p.Handle(gw.TestModeRequest())

	p.Handle(gw.PinsCommand(gw.AllHigh).Bytes())
	in, _ := bank.Read()
	assert.False(t, in.Level(16))

	rsp, err := gw.ParseTestResponse(p.Handle(gw.OptionBytesCommand().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa5, 0x5a, 0x00, 0x00}, rsp.OptionBytes()[:4])

	p.Handle(gw.LEDCommand(true).Bytes())
	assert.True(t, p.LED())

	p.Reset()
	p.Faults = Faults{BadTestModeAck: true}
	assert.Equal(t, []byte{gw.CmdTestMode, AckBadCommand}, p.Handle(gw.TestModeRequest()))

	p.Reset()
	p.Faults = Faults{DropAfter: 1}
	assert.NotNil(t, p.Handle(gw.InfoRequest()))
	assert.Nil(t, p.Handle(gw.InfoRequest()))
}

func TestEdgeTrain(t *testing.T) {
	e := &EdgeTrain{Period: 1000}
	start := e.Now()
	assert.True(t, e.WaitForEdge(0))
	assert.EqualValues(t, 1000, e.Now().Sub(start))
	assert.False(t, (&EdgeTrain{}).WaitForEdge(0))
}

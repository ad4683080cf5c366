// Package peer provides shell commands talking to the Greaseweazle.
package peer

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/gwbench/pkg/cli/sh"
	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/gw"
	"github.com/robotalks/gwbench/pkg/pins"
)

func testCommand(c *ishell.Context, cmd gw.TestCommand) (gw.TestResponse, bool) {
	rsp, ok := sh.DoExchange(c, comm.Exchange{Command: cmd.Bytes(), ResponseLen: gw.TestFrameSize})
	if !ok {
		return gw.TestResponse{}, false
	}
	r, err := gw.ParseTestResponse(rsp)
	if err != nil {
		c.Err(err)
		return r, false
	}
	return r, true
}

// ParsePins parses floppy pin numbers.
func ParsePins(args []string) ([]int, error) {
	res := make([]int, 0, len(args))
	for _, arg := range args {
		pin, err := strconv.Atoi(arg)
		if err != nil || pin < 0 || pin > 63 {
			return nil, fmt.Errorf("Invalid PIN %q", arg)
		}
		res = append(res, pin)
	}
	return res, nil
}

var (
	// InfoCmd queries firmware info.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: func(c *ishell.Context) {
			rsp, ok := sh.DoExchange(c, comm.Exchange{Command: gw.InfoRequest(), ResponseLen: gw.InfoResponseSize})
			if !ok {
				return
			}
			info, err := gw.ParseInfo(rsp[2:])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, info, fmt.Sprintf("%s main=%v mcu=%d %dMHz %dkB", info, info.IsMainFirmware, info.MCUID, info.MCUMHz, info.MCUSRAMKB))
		},
	}

	// TestModeCmd enters test mode.
	TestModeCmd = ishell.Cmd{
		Name:    "testmode",
		Aliases: []string{"tm"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if _, ok := sh.DoExchange(c, comm.Exchange{
				Command:     gw.TestModeRequest(),
				Expect:      gw.TestModeResponse(),
				ResponseLen: gw.AckResponseSize,
			}); ok {
				c.Println("OK")
			}
		},
	}

	// PinsCmd drives peer outputs, all high except the listed pins.
	PinsCmd = ishell.Cmd{
		Name:    "pins",
		Aliases: []string{"p"},
		Help:    "[LOW-PIN...]",
		Func: func(c *ishell.Context) {
			low, err := ParsePins(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			mask := gw.AllHigh
			for _, pin := range low {
				mask = mask.With(pin, false)
			}
			rsp, ok := testCommand(c, gw.PinsCommand(mask))
			if !ok {
				return
			}
			high := rsp.Pins() & pins.MaskOf(pins.BenchOutputs)
			sh.Print(c, uint64(rsp.Pins()), "peer inputs high: "+high.String())
		},
	}

	// LEDCmd switches the activity LED.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				c.Err(fmt.Errorf("on or off required"))
				return
			}
			if _, ok := testCommand(c, gw.LEDCommand(c.Args[0] == "on")); ok {
				c.Println("OK")
			}
		},
	}

	// OptionBytesCmd dumps the option bytes, optionally into an Intel HEX file.
	OptionBytesCmd = ishell.Cmd{
		Name:    "optbytes",
		Aliases: []string{"opt"},
		Help:    "[FILE.hex]",
		Func: func(c *ishell.Context) {
			rsp, ok := testCommand(c, gw.OptionBytesCommand())
			if !ok {
				return
			}
			opt := rsp.OptionBytes()
			if len(c.Args) > 0 {
				if err := SaveOptionBytes(c.Args[0], opt); err != nil {
					c.Err(err)
					return
				}
			}
			sh.Print(c, hex.EncodeToString(opt), comm.HexDump(opt[:16])+"\n"+comm.HexDump(opt[16:]))
		},
	}
)

func init() {
	sh.AddCmds(&InfoCmd, &TestModeCmd, &PinsCmd, &LEDCmd, &OptionBytesCmd)
}

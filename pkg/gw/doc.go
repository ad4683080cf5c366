// Package gw defines the Greaseweazle USB-CDC command protocol as seen by
// the test bench.
package gw

// Every command starts with an opcode byte followed by a length byte which
// counts the whole frame. The peer answers with the opcode echoed and an ack
// status, optionally followed by a fixed-size payload.
//
// After CmdTestMode is acknowledged, the peer switches to test-mode framing:
// each command is a fixed 32-byte TestCommand and each response is a fixed
// 32-byte TestResponse.

// Package sh provides the interactive diagnostic shell of the bench.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/gwbench/pkg/comm"
	"github.com/robotalks/gwbench/pkg/pins"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// ConnectTimeout limits waiting for the peer before an exchange.
	ConnectTimeout time.Duration

	Shell  *ishell.Shell
	Engine *comm.Engine
	Pins   pins.Bank
}

const (
	shellKey          = "$shell"
	connectedPrompt   = "gw > "
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(engine *comm.Engine, bank pins.Bank) *Shell {
	s := &Shell{
		Interactive:    !evalOnly,
		OutputJSON:     outputJSON,
		ConnectTimeout: 3 * time.Second,

		Shell:  ishell.New(),
		Engine: engine,
		Pins:   bank,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustHavePins wraps command func requires the local pin bank.
func MustHavePins(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Pins == nil {
			c.Err(fmt.Errorf("no local pins"))
			return
		}
		fn(c)
	}
}

// Connect services the transport until the peer is present.
func (s *Shell) Connect(ctx context.Context) error {
	t := s.Engine.Transport()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		t.Process()
		if t.Connected() {
			s.setPrompt(connectedPrompt)
			return nil
		}
		s.setPrompt(unconnectedPrompt)
		select {
		case <-ctx.Done():
			return fmt.Errorf("peer not connected")
		case <-ticker.C:
		}
	}
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Exchange runs one exchange with the peer.
func (s *Shell) Exchange(x comm.Exchange) ([]byte, error) {
	timeout := s.ConnectTimeout + s.Engine.SendTimeout + s.Engine.ReceiveTimeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	connectCtx, cancelConnect := context.WithTimeout(ctx, s.ConnectTimeout)
	defer cancelConnect()
	if err := s.Connect(connectCtx); err != nil {
		return nil, err
	}
	return s.Engine.Do(ctx, x)
}

// DoExchange runs an exchange and reports errors to the shell.
func DoExchange(c *ishell.Context, x comm.Exchange) ([]byte, bool) {
	rsp, err := ShellFrom(c).Exchange(x)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	return rsp, true
}

// Print prints v as JSON if requested, otherwise as text.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

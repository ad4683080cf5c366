package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/gwbench/pkg/comm"
)

type echoPeer struct {
	resets int
}

func (p *echoPeer) Handle(cmd []byte) []byte {
	return append([]byte{cmd[0], 0}, cmd[1:]...)
}

func (p *echoPeer) Reset() { p.resets++ }

func TestLoopbackAsync(t *testing.T) {
	peer := &echoPeer{}
	tr := New(peer)
	e := comm.NewEngine(tr)
	now := time.Unix(0, 0)
	require.NoError(t, e.Begin(now, comm.Exchange{Command: []byte{7, 1}, Expect: []byte{7, 0, 1}, ResponseLen: 3}))
	for i := 0; i < 4 && !e.Idle(); i++ {
		tr.Process()
		require.NoError(t, e.Poll(now))
	}
	assert.True(t, e.Idle())
	assert.Equal(t, []byte{7, 0, 1}, e.Response())
}

func TestLoopbackSync(t *testing.T) {
	tr := New(&echoPeer{})
	tr.Sync = true
	e := comm.NewEngine(tr)
	rsp, err := e.Do(context.Background(), comm.Exchange{Command: []byte{3, 9}, ResponseLen: 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 9}, rsp)
}

func TestLoopbackUnplug(t *testing.T) {
	peer := &echoPeer{}
	tr := New(peer)
	e := comm.NewEngine(tr)
	now := time.Unix(0, 0)
	require.NoError(t, e.Begin(now, comm.Exchange{Command: []byte{1}, ResponseLen: 2}))
	tr.Plug(false)
	assert.False(t, tr.Connected())
	tr.Process()
	assert.Equal(t, comm.PhaseSendPending, e.Phase())
	assert.Error(t, e.Begin(now, comm.Exchange{Command: []byte{1}, ResponseLen: 2}))

	tr.Reset()
	e.Reset()
	assert.Equal(t, 1, peer.resets)
	tr.Plug(true)
	assert.True(t, tr.Connected())
}

package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func receive(t *testing.T, conn *websocket.Conn) string {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var text string
	require.NoError(t, websocket.Message.Receive(conn, &text))
	return text
}

func TestMirror(t *testing.T) {
	m := NewMirror()
	require.NoError(t, m.ShowString("USB"))
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "USB", receive(t, conn))
	require.NoError(t, m.ShowDecimal(3))
	assert.Equal(t, "  3", receive(t, conn))
	require.NoError(t, m.ShowString("  3"))
	require.NoError(t, m.ShowString("---"))
	assert.Equal(t, "---", receive(t, conn))
}

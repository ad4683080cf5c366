package peer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/gwbench/pkg/sim"
)

func TestParsePins(t *testing.T) {
	pins, err := ParsePins([]string{"2", "34"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 34}, pins)

	_, err = ParsePins([]string{"x"})
	assert.Error(t, err)
	_, err = ParsePins([]string{"64"})
	assert.Error(t, err)
}

func TestDumpOptionBytes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, DumpOptionBytes(&out, sim.FactoryOptionBytes))
	lines := strings.Fields(strings.ToUpper(out.String()))
	require.True(t, len(lines) >= 3)
	// Extended linear address of 0x1fff, then data at 0xf800.
	assert.Equal(t, ":020000041FFFDC", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], ":10F80000A55AFF"))
	assert.Equal(t, ":00000001FF", lines[len(lines)-1])
}

package serial

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupFlags(t *testing.T) {
	SetupFlags()
	for _, name := range []string{"port", "baud", "read-timeout", "retry-interval"} {
		assert.NotNil(t, flag.Lookup(name), name)
	}
	saved := defaultConfig
	defer func() { defaultConfig = saved }()
	require.NoError(t, flag.Set("port", "/dev/ttyACM1"))
	require.NoError(t, flag.Set("retry-interval", "2s"))
	conf := NewConfig()
	assert.Equal(t, "/dev/ttyACM1", conf.Port)
	assert.Equal(t, 2*time.Second, conf.RetryInterval)
	assert.Equal(t, 115200, conf.BaudRate)
}

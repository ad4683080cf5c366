package bench

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/gwbench/pkg/comm"
)

// Config is the bench configuration.
type Config struct {
	// ModelsFile is a JSON file of extra hardware model entries.
	ModelsFile string
	// Settle is the delay before sampling pins with all drivers low.
	Settle time.Duration
	// Blink is the delay of each LED blink half cycle.
	Blink time.Duration
	// HaltCadence is how long the error code and the step each show.
	HaltCadence time.Duration

	SendTimeout    time.Duration
	ReceiveTimeout time.Duration
}

var defaultConfig = Config{
	Settle:         100 * time.Millisecond,
	Blink:          100 * time.Millisecond,
	HaltCadence:    500 * time.Millisecond,
	SendTimeout:    comm.DefaultSendTimeout,
	ReceiveTimeout: comm.DefaultReceiveTimeout,
}

func init() {
	if val := os.Getenv("GWBENCH_MODELS"); val != "" {
		defaultConfig.ModelsFile = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ModelsFile, "models", defaultConfig.ModelsFile, "JSON file with extra hardware models")
	flag.DurationVar(&defaultConfig.Settle, "settle", defaultConfig.Settle, "Pin settle delay")
	flag.DurationVar(&defaultConfig.Blink, "blink", defaultConfig.Blink, "LED blink half cycle after a pass")
	flag.DurationVar(&defaultConfig.HaltCadence, "halt-cadence", defaultConfig.HaltCadence, "Error display cadence")
	flag.DurationVar(&defaultConfig.SendTimeout, "send-timeout", defaultConfig.SendTimeout, "Command send timeout")
	flag.DurationVar(&defaultConfig.ReceiveTimeout, "recv-timeout", defaultConfig.ReceiveTimeout, "Response receive timeout")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

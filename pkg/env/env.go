// Package env assembles the bench identity and operator outputs.
package env

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/gwbench/pkg/display"
	"github.com/robotalks/gwbench/pkg/display/mqtt"
	"github.com/robotalks/gwbench/pkg/display/websocket"
	fx "github.com/robotalks/gwbench/pkg/framework"
)

// appID scopes the machine ID so it can't be correlated with other apps.
const appID = "gwbench"

// BenchID retrieves the unique ID identifying the bench host.
func BenchID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		if id, err = os.Hostname(); err != nil {
			return "unknown"
		}
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// Config provides the options of bench outputs.
type Config struct {
	ID          string
	Description string

	// MQTTBrokerURL enables the MQTT event stream if not empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// DisplayAddr enables the websocket display mirror if not empty.
	DisplayAddr string
}

var defaultConfig = Config{}

func init() {
	if val := os.Getenv("GWBENCH_ID"); val != "" {
		defaultConfig.ID = val
	}
	if val := os.Getenv("GWBENCH_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("GWBENCH_DISPLAY_ADDR"); val != "" {
		defaultConfig.DisplayAddr = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bench ID, machine ID if empty")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Bench description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.DisplayAddr, "display-addr", defaultConfig.DisplayAddr, "Listen address of websocket display mirror")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env holds the outputs of a bench.
type Env struct {
	Config  *Config
	Console *display.Console
	Display display.Mux

	runners []fx.Runnable
}

// NewEnv creates Env from config.
func (c *Config) NewEnv(port string) (*Env, error) {
	if c.ID == "" {
		c.ID = BenchID()
	}
	env := &Env{Config: c, Console: &display.Console{}}
	env.Display = append(env.Display, env.Console)
	if c.MQTTBrokerURL != "" {
		b, err := mqtt.NewBench(c.MQTTBrokerURL, mqtt.Meta{ID: c.ID, Description: c.Description, Port: port})
		if err != nil {
			return nil, fmt.Errorf("create MQTT sink error: %v", err)
		}
		env.Display = append(env.Display, b.Sink)
		env.runners = append(env.runners, b)
	}
	if c.DisplayAddr != "" {
		mirror := websocket.NewMirror()
		mux := http.NewServeMux()
		mux.Handle("/display", mirror.Handler())
		env.Display = append(env.Display, mirror)
		env.runners = append(env.runners, &httpServer{srv: &http.Server{Addr: c.DisplayAddr, Handler: mux}})
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv(port string) *Env {
	env, err := c.NewEnv(port)
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop implements framework.LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(e.runners...)
}

type httpServer struct {
	srv *http.Server
}

func (s *httpServer) Name() string {
	return "display@" + s.srv.Addr
}

func (s *httpServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.srv.Shutdown(shutdownCtx)
	return ctx.Err()
}

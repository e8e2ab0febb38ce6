// Package host provides the configuration of host side tools talking
// to the register console.
package host

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robotalks/regconsole/pkg/client"
	"github.com/robotalks/regconsole/pkg/console"
	"github.com/robotalks/regconsole/pkg/link"
)

// Config provides common options to connect to the console.
type Config struct {
	// LinkURL is the link to the console, see package link.
	// e.g. tcp://localhost:2323 or serial:///dev/ttyUSB0
	LinkURL string
	Timeout time.Duration
	// LineSize is the line buffer size configured on the console.
	LineSize int
	// MQTTBrokerURL is the broker the console publishes telemetry to.
	MQTTBrokerURL string
}

var defaultConfig = Config{
	LinkURL:       "tcp://localhost:2323",
	Timeout:       client.DefaultTimeout,
	LineSize:      console.DefaultLineSize,
	MQTTBrokerURL: "mqtt://localhost:1883/",
}

func init() {
	if val := os.Getenv("REGCONSOLE_CONNECT"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("REGCONSOLE_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.LinkURL, "connect", defaultConfig.LinkURL, "Console link URL.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Command timeout.")
	flag.IntVar(&defaultConfig.LineSize, "line-size", defaultConfig.LineSize, "Line buffer size of the console.")
}

// SetupMonitorFlags sets up command line flags of the monitor.
func SetupMonitorFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Connect opens the link and creates a client.
func (c *Config) Connect() (*client.Client, error) {
	if c.LinkURL == "" {
		return nil, fmt.Errorf("console link URL must be specified")
	}
	lnk, err := link.Open(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s error: %v", c.LinkURL, err)
	}
	cl := client.New(lnk)
	cl.Timeout = c.Timeout
	cl.LineSize = c.LineSize
	return cl, nil
}

// MustConnect connects or fails.
func (c *Config) MustConnect() *client.Client {
	cl, err := c.Connect()
	if err != nil {
		log.Fatalln(err)
	}
	return cl
}

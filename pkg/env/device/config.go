package device

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/regconsole/pkg/console"
	"github.com/robotalks/regconsole/pkg/telemetry"
	"github.com/robotalks/regconsole/pkg/timer"
	"github.com/robotalks/regconsole/pkg/uart"
)

// Config provides the options to setup the console device.
type Config struct {
	// Link is the URL of the serial link, see package link.
	Link string `yaml:"link"`
	// Bridge is the URL of the register bank, see package bridge.
	Bridge string `yaml:"bridge"`
	// Device identifies the console in telemetry topics.
	Device string `yaml:"device"`
	// MQTTBrokerURL enables telemetry when set.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`

	RingSize    int           `yaml:"ring_size"`
	LineSize    int           `yaml:"line_size"`
	TickPeriod  time.Duration `yaml:"tick_period"`
	Interval    uint32        `yaml:"interval"`
	CharTimeout time.Duration `yaml:"char_timeout"`
	Preload     bool          `yaml:"preload"`

	// DebugLog sends debug text to the log.
	DebugLog bool `yaml:"debug_log"`
	// DebugFile receives debug text, "-" for stderr.
	DebugFile string `yaml:"debug_file"`
	// ToggleReport is the number of toggles between debug reports.
	ToggleReport uint32        `yaml:"toggle_report"`
	StatusPeriod time.Duration `yaml:"status_period"`
}

var defaultConfig = Config{
	Link:         "tcp-listen://:2323",
	Bridge:       "mem:",
	RingSize:     uart.DefaultRingSize,
	LineSize:     console.DefaultLineSize,
	TickPeriod:   timer.DefaultPeriod,
	Interval:     timer.DefaultInterval,
	CharTimeout:  uart.DefaultCharTimeout,
	Preload:      true,
	DebugLog:     true,
	ToggleReport: 10,
	StatusPeriod: telemetry.DefaultPeriod,
}

var configFile string

func init() {
	if val := os.Getenv("REGCONSOLE_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("REGCONSOLE_BRIDGE"); val != "" {
		defaultConfig.Bridge = val
	}
	if val := os.Getenv("REGCONSOLE_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.Device = MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file, overrides flags")
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Serial link URL")
	flag.StringVar(&defaultConfig.Bridge, "bridge", defaultConfig.Bridge, "Register bridge URL")
	flag.StringVar(&defaultConfig.Device, "id", defaultConfig.Device, "Device ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.IntVar(&defaultConfig.RingSize, "ring-size", defaultConfig.RingSize, "Transmit ring slots")
	flag.DurationVar(&defaultConfig.TickPeriod, "tick", defaultConfig.TickPeriod, "Tick period")
	flag.BoolVar(&defaultConfig.Preload, "preload", defaultConfig.Preload, "Preload coefficient table")
	flag.BoolVar(&defaultConfig.DebugLog, "debug-log", defaultConfig.DebugLog, "Send debug text to log")
	flag.StringVar(&defaultConfig.DebugFile, "debug-file", defaultConfig.DebugFile, "Send debug text to file, - for stderr")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadConfig creates a Config from defaults, flags and the config file
// given by -config.
func LoadConfig() (*Config, error) {
	conf := NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	return conf, conf.Validate()
}

// LoadFile overlays keys present in a YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("read config %s: %v", fn, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %v", fn, err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Link == "" {
		return fmt.Errorf("link URL is required")
	}
	if _, err := url.Parse(c.Link); err != nil {
		return fmt.Errorf("invalid link URL: %v", err)
	}
	if _, err := url.Parse(c.Bridge); err != nil {
		return fmt.Errorf("invalid bridge URL: %v", err)
	}
	if c.RingSize < 2 {
		return fmt.Errorf("ring_size must be at least 2, got %d", c.RingSize)
	}
	if c.LineSize < 2 {
		return fmt.Errorf("line_size must be at least 2, got %d", c.LineSize)
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tick_period must be positive")
	}
	if !timer.ValidInterval(c.Interval) {
		return fmt.Errorf("interval %d out of range (%d-%d)", c.Interval, timer.MinInterval, timer.MaxInterval)
	}
	if c.CharTimeout < 0 {
		return fmt.Errorf("char_timeout must not be negative")
	}
	if c.ToggleReport == 0 {
		return fmt.Errorf("toggle_report must be positive")
	}
	if c.MQTTBrokerURL != "" {
		if c.Device == "" {
			return fmt.Errorf("device ID is required with MQTT")
		}
		if c.StatusPeriod <= 0 {
			return fmt.Errorf("status_period must be positive")
		}
	}
	return nil
}

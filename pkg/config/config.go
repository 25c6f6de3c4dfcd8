// Package config provides the configuration of the link daemon: the
// link table loaded from a TOML file plus flags and environment overrides.
package config

import (
	"flag"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
)

// Config is the configuration of the daemon.
type Config struct {
	// File is the path of the TOML link table.
	File string
	// MQTTBrokerURL enables the MQTT bridge when not empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// MetricsAddr is the listen address of /metrics, empty disables it.
	MetricsAddr string
	// Shell starts the interactive shell.
	Shell bool

	// DemoBus sends the demo messages on this bus when not negative.
	DemoBus      int
	DemoCount    int
	DemoInterval time.Duration

	Links []LinkConfig

	// names of flags set on the command line or through environment.
	explicit map[string]bool
}

type fileConfig struct {
	MQTTURL     string       `toml:"mqtt_url"`
	MetricsAddr string       `toml:"metrics_addr"`
	Links       []LinkConfig `toml:"link"`
}

var defaultConfig = Config{
	File:         "linkd.toml",
	MetricsAddr:  ":9180",
	DemoBus:      -1,
	DemoCount:    10,
	DemoInterval: 250 * time.Millisecond,
}

var envSettings = make(map[string]bool)

func init() {
	if val := os.Getenv("LINKD_CONFIG"); val != "" {
		defaultConfig.File = val
		envSettings["config"] = true
	}
	if val := os.Getenv("LINKD_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
		envSettings["mqtt"] = true
	}
	if val, ok := os.LookupEnv("LINKD_METRICS_ADDR"); ok {
		defaultConfig.MetricsAddr = val
		envSettings["metrics"] = true
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "Link table file (TOML)")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for the bridge")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address")
	flag.BoolVar(&defaultConfig.Shell, "shell", defaultConfig.Shell, "Start interactive shell")
	flag.IntVar(&defaultConfig.DemoBus, "demo-bus", defaultConfig.DemoBus, "Send demo messages on the bus")
	flag.IntVar(&defaultConfig.DemoCount, "demo-count", defaultConfig.DemoCount, "Number of demo messages")
	flag.DurationVar(&defaultConfig.DemoInterval, "demo-interval", defaultConfig.DemoInterval, "Interval between demo messages")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations. Call it after
// flag.Parse so the file doesn't override flags given explicitly.
func NewConfig() *Config {
	conf := defaultConfig
	conf.explicit = explicitSettings(flag.CommandLine)
	return &conf
}

func explicitSettings(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool, len(envSettings))
	for name := range envSettings {
		set[name] = true
	}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// Load reads the link table from File. Values set by flags or environment
// take precedence over the file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	return c.Parse(data)
}

// Parse applies a TOML document.
func (c *Config) Parse(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return errors.Wrapf(err, "parse %s", c.File)
	}
	if fc.MQTTURL != "" && !c.explicit["mqtt"] {
		c.MQTTBrokerURL = fc.MQTTURL
	}
	if fc.MetricsAddr != "" && !c.explicit["metrics"] {
		c.MetricsAddr = fc.MetricsAddr
	}
	c.Links = append(c.Links, fc.Links...)
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Links) == 0 {
		return errors.New("no link configured")
	}
	buses := make(map[link.BusID]string)
	for n := range c.Links {
		l := &c.Links[n]
		if err := l.Validate(); err != nil {
			return errors.Wrapf(err, "link[%d] %s", n, l.Name)
		}
		if other, ok := buses[l.Bus]; ok {
			return errors.Errorf("link[%d] %s: bus %d already used by %s", n, l.Name, l.Bus, other)
		}
		buses[l.Bus] = l.Name
	}
	if c.DemoBus >= 0 {
		if _, ok := buses[link.BusID(c.DemoBus)]; !ok {
			return errors.Errorf("demo bus %d not configured", c.DemoBus)
		}
	}
	return nil
}

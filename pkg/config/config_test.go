package config

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/linkdrv/pkg/link"
	"github.com/robotalks/linkdrv/pkg/link/serial"
)

const sampleConfig = `
mqtt_url = "mqtt://localhost:1883/linkd/"
metrics_addr = ":9999"

[[link]]
name = "ground"
kind = "tcp"
bus = 1
device = 1
frame_size = 64
max_connections = 4

[link.local]
address = "127.0.0.1"
port = 5000

[link.remote]
address = "127.0.0.1"
port = 5001

[[link]]
name = "telemetry"
kind = "udp"
bus = 2
device = 1

[link.local]
address = "::1"
version = "ipv6"
port = 6000

[link.remote]
address = "::1"
version = "ipv6"
port = 6001
reuse_send_socket = true

[[link]]
name = "uart"
kind = "serial"
bus = 3
device = 2

[link.serial]
devname = "/dev/ttyUSB0"
speed = 57600
bits = 7
parity = "odd"
use_paritybit = true
`

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkd.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	conf := &Config{File: path, MetricsAddr: defaultConfig.MetricsAddr, DemoBus: -1}
	require.NoError(t, conf.Load())
	require.NoError(t, conf.Validate())

	require.Equal(t, "mqtt://localhost:1883/linkd/", conf.MQTTBrokerURL)
	require.Equal(t, ":9999", conf.MetricsAddr)
	require.Len(t, conf.Links, 3)

	ground := conf.Links[0]
	require.Equal(t, KindStream, ground.Kind)
	require.Equal(t, link.BusID(1), ground.Bus)
	require.Equal(t, 64, ground.FrameSize)
	require.Equal(t, 4, ground.MaxConnections)
	require.Equal(t, "127.0.0.1:5001", ground.Remote.HostPort())

	tm := conf.Links[1]
	require.Equal(t, KindDatagram, tm.Kind)
	require.Equal(t, link.IPv6, tm.Local.Version)
	require.True(t, tm.Remote.ReuseSendSocket)

	uart := conf.Links[2]
	require.Equal(t, KindSerial, uart.Kind)
	require.Equal(t, serial.Config{
		DevName:      "/dev/ttyUSB0",
		Speed:        serial.Baud57600,
		Bits:         7,
		Parity:       serial.ParityOdd,
		UseParityBit: true,
	}, *uart.Serial)
}

func TestConfigFlagsTakePrecedence(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		mqtt    string
		metrics string
	}{
		{"no flags", nil, "mqtt://localhost:1883/linkd/", ":9999"},
		{"metrics", []string{"-metrics", ":1234"}, "mqtt://localhost:1883/linkd/", ":1234"},
		{"metrics equal to default", []string{"-metrics", defaultConfig.MetricsAddr}, "mqtt://localhost:1883/linkd/", defaultConfig.MetricsAddr},
		{"metrics disabled", []string{"-metrics="}, "mqtt://localhost:1883/linkd/", ""},
		{"mqtt", []string{"-mqtt", "mqtt://other:1883/"}, "mqtt://other:1883/", ":9999"},
		{"mqtt disabled", []string{"-mqtt="}, "", ":9999"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := &Config{MetricsAddr: defaultConfig.MetricsAddr, DemoBus: -1}
			fs := flag.NewFlagSet("linkd", flag.ContinueOnError)
			fs.StringVar(&conf.MQTTBrokerURL, "mqtt", "", "")
			fs.StringVar(&conf.MetricsAddr, "metrics", conf.MetricsAddr, "")
			require.NoError(t, fs.Parse(tc.args))
			conf.explicit = explicitSettings(fs)

			require.NoError(t, conf.Parse([]byte(sampleConfig)))
			require.Equal(t, tc.mqtt, conf.MQTTBrokerURL)
			require.Equal(t, tc.metrics, conf.MetricsAddr)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	ip := func(port int) *link.IPConfig {
		return &link.IPConfig{Address: "127.0.0.1", Port: port}
	}
	testCases := []struct {
		name  string
		conf  Config
		valid bool
	}{
		{"empty", Config{DemoBus: -1}, false},
		{"ok", Config{DemoBus: -1, Links: []LinkConfig{{Kind: KindStream, Bus: 1, Local: ip(1), Remote: ip(2)}}}, true},
		{"missing remote", Config{DemoBus: -1, Links: []LinkConfig{{Kind: KindDatagram, Bus: 1, Local: ip(1)}}}, false},
		{"bad port", Config{DemoBus: -1, Links: []LinkConfig{{Kind: KindStream, Bus: 1, Local: ip(1), Remote: ip(-2)}}}, false},
		{"missing serial", Config{DemoBus: -1, Links: []LinkConfig{{Kind: KindSerial, Bus: 1}}}, false},
		{"unknown kind", Config{DemoBus: -1, Links: []LinkConfig{{Kind: "can", Bus: 1}}}, false},
		{"duplicated bus", Config{DemoBus: -1, Links: []LinkConfig{
			{Name: "a", Kind: KindStream, Bus: 1, Local: ip(1), Remote: ip(2)},
			{Name: "b", Kind: KindDatagram, Bus: 1, Local: ip(3), Remote: ip(4)},
		}}, false},
		{"demo bus unknown", Config{DemoBus: 5, Links: []LinkConfig{{Kind: KindStream, Bus: 1, Local: ip(1), Remote: ip(2)}}}, false},
		{"demo bus", Config{DemoBus: 1, Links: []LinkConfig{{Kind: KindStream, Bus: 1, Local: ip(1), Remote: ip(2)}}}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.conf.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestKindUnmarshal(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("UDP")))
	require.Equal(t, KindDatagram, k)
	require.Error(t, k.UnmarshalText([]byte("can")))
}

func TestNewDriver(t *testing.T) {
	l := LinkConfig{
		Name:   "loop",
		Kind:   KindDatagram,
		Bus:    90,
		Local:  &link.IPConfig{Address: "127.0.0.1"},
		Remote: &link.IPConfig{Address: "127.0.0.1", Port: 9},
	}
	drv, err := l.NewDriver(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, link.BusID(90), drv.Bus())
	require.NoError(t, drv.Close())

	l.Kind = "can"
	_, err = l.NewDriver(context.Background(), nil)
	require.Error(t, err)
}

package main

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/config"
	"github.com/robotalks/linkdrv/pkg/link"
)

type linkEntry struct {
	conf   config.LinkConfig
	driver link.Driver
}

// linkTable holds the running drivers by bus.
type linkTable struct {
	lock  sync.RWMutex
	links map[link.BusID]*linkEntry
}

func newLinkTable() *linkTable {
	return &linkTable{links: make(map[link.BusID]*linkEntry)}
}

func (t *linkTable) add(conf config.LinkConfig, drv link.Driver) {
	t.lock.Lock()
	t.links[drv.Bus()] = &linkEntry{conf: conf, driver: drv}
	t.lock.Unlock()
}

func (t *linkTable) driver(bus link.BusID) (link.Driver, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if l := t.links[bus]; l != nil {
		return l.driver, nil
	}
	return nil, errors.Errorf("no link on bus %d", bus)
}

// list returns one line per link ordered by bus.
func (t *linkTable) list() []string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	buses := make([]int, 0, len(t.links))
	for bus := range t.links {
		buses = append(buses, int(bus))
	}
	sort.Ints(buses)
	lines := make([]string, 0, len(buses))
	for _, bus := range buses {
		l := t.links[link.BusID(bus)]
		line := fmt.Sprintf("bus %d device %d %s %s", bus, l.conf.Device, l.conf.Kind, l.conf.Name)
		switch {
		case l.conf.Local != nil:
			line += fmt.Sprintf(" %s -> %s", l.conf.Local.HostPort(), l.conf.Remote.HostPort())
		case l.conf.Serial != nil:
			line += " " + l.conf.Serial.DevName
		}
		lines = append(lines, line)
	}
	return lines
}

func (t *linkTable) closeAll() {
	t.lock.RLock()
	defer t.lock.RUnlock()
	for bus, l := range t.links {
		if err := l.driver.Close(); err != nil {
			glog.Warningf("close bus %s: %v", bus, err)
		}
	}
}

// parseSendArgs parses "BUS PAYLOAD..." into the bus and the joined
// payload words.
func parseSendArgs(args []string) (link.BusID, string, error) {
	if len(args) < 1 {
		return 0, "", errors.New("missing bus")
	}
	bus, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", errors.Wrapf(err, "invalid bus %q", args[0])
	}
	return link.BusID(bus), strings.Join(args[1:], " "), nil
}

func (t *linkTable) sendText(args []string) error {
	bus, text, err := parseSendArgs(args)
	if err != nil {
		return err
	}
	drv, err := t.driver(bus)
	if err != nil {
		return err
	}
	return drv.Send([]byte(text))
}

func (t *linkTable) sendHex(args []string) error {
	bus, text, err := parseSendArgs(args)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
	if err != nil {
		return errors.Wrap(err, "invalid hex")
	}
	drv, err := t.driver(bus)
	if err != nil {
		return err
	}
	return drv.Send(data)
}

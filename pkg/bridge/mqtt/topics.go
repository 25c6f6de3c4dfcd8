package mqtt

import (
	"strconv"
	"strings"

	"github.com/robotalks/linkdrv/pkg/link"
)

// Topics relative to the prefix.
const (
	topicBus = "bus"
	topicRx  = "rx"
	topicTx  = "tx"
)

// RxTopic is where messages received on bus are published.
func RxTopic(bus link.BusID) string {
	return topicBus + "/" + bus.String() + "/" + topicRx
}

// TxTopic is where messages to be sent on bus are expected.
func TxTopic(bus link.BusID) string {
	return topicBus + "/" + bus.String() + "/" + topicTx
}

// TxFilter subscribes the tx topics of all buses.
const TxFilter = topicBus + "/+/" + topicTx

// ParseTxTopic extracts the bus from a tx topic.
func ParseTxTopic(topic string) (link.BusID, bool) {
	if !MatchTopic(topic, TxFilter) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.Split(topic, "/")[1])
	if err != nil {
		return 0, false
	}
	return link.BusID(id), true
}

// MatchTopic matches topic with a subscription filter.
func MatchTopic(topic, filter string) bool {
	levelsT, levelsF := strings.Split(topic, "/"), strings.Split(filter, "/")
	for i, level := range levelsF {
		if level == "#" && i+1 == len(levelsF) {
			return true
		}
		if i >= len(levelsT) {
			return false
		}
		if level != "+" && level != levelsT[i] {
			return false
		}
	}
	return len(levelsT) == len(levelsF)
}

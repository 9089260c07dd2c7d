package protocol

import "strings"

// CCU-level topics.
const (
	TopicOrderRequest  = "ccu/order/request"
	TopicOrderResponse = "ccu/order/response"
	TopicOrderCancel   = "ccu/order/cancel"

	TopicSetLayout      = "ccu/set/layout"
	TopicSetConfig      = "ccu/set/config"
	TopicSetCalibration = "ccu/set/calibration"
	TopicSetPark        = "ccu/set/park"
	TopicSetReset       = "ccu/set/reset"
	TopicSetResetOrder  = "ccu/set/reset-order"

	TopicStateOrders    = "ccu/state/orders"
	TopicStateCompleted = "ccu/state/completed-orders"
	TopicStateStock     = "ccu/state/stock"
	TopicStatePairing   = "ccu/pairing/state"
	TopicStateLayout    = "ccu/state/layout"
)

const (
	modulePrefix = "module/v1/ff/"
	ftsPrefix    = "fts/v1/ff/"
)

// Device topic suffixes.
const (
	suffixState         = "/state"
	suffixConnection    = "/connection"
	suffixFactsheet     = "/factsheet"
	suffixOrder         = "/order"
	suffixInstantAction = "/instantAction"
)

func ModuleStateTopic(serial string) string     { return modulePrefix + serial + suffixState }
func ModuleOrderTopic(serial string) string     { return modulePrefix + serial + suffixOrder }
func ModuleInstantTopic(serial string) string   { return modulePrefix + serial + suffixInstantAction }
func ModuleFactsheetTopic(serial string) string { return modulePrefix + serial + suffixFactsheet }

func FtsStateTopic(serial string) string   { return ftsPrefix + serial + suffixState }
func FtsOrderTopic(serial string) string   { return ftsPrefix + serial + suffixOrder }
func FtsInstantTopic(serial string) string { return ftsPrefix + serial + suffixInstantAction }

// Subscription declares a topic filter with its delivery-quality level.
// QoS 1 (at least once) for loss-tolerant state/factsheet streams, QoS 2
// (exactly once within session) for order requests and instant actions.
type Subscription struct {
	Topic string
	QoS   byte
}

// Subscriptions returns every topic filter the CCU listens on.
func Subscriptions() []Subscription {
	return []Subscription{
		{Topic: TopicOrderRequest, QoS: 2},
		{Topic: TopicOrderCancel, QoS: 2},
		{Topic: TopicSetLayout, QoS: 2},
		{Topic: TopicSetConfig, QoS: 2},
		{Topic: TopicSetCalibration, QoS: 2},
		{Topic: TopicSetPark, QoS: 2},
		{Topic: TopicSetReset, QoS: 2},
		{Topic: TopicSetResetOrder, QoS: 2},
		{Topic: modulePrefix + "+" + suffixState, QoS: 1},
		{Topic: modulePrefix + "+" + suffixConnection, QoS: 1},
		{Topic: modulePrefix + "+" + suffixFactsheet, QoS: 1},
		{Topic: ftsPrefix + "+" + suffixState, QoS: 1},
		{Topic: ftsPrefix + "+" + suffixConnection, QoS: 1},
		{Topic: ftsPrefix + "+" + suffixFactsheet, QoS: 1},
	}
}

// TopicKind classifies an inbound topic for routing.
type TopicKind int

const (
	KindUnknown TopicKind = iota
	KindOrderRequest
	KindOrderCancel
	KindSetLayout
	KindSetConfig
	KindSetCalibration
	KindSetPark
	KindSetReset
	KindSetResetOrder
	KindModuleState
	KindModuleConnection
	KindModuleFactsheet
	KindFtsState
	KindFtsConnection
	KindFtsFactsheet
)

// ParseTopic classifies a concrete inbound topic and extracts the device
// serial for per-device topics.
func ParseTopic(topic string) (TopicKind, string) {
	switch topic {
	case TopicOrderRequest:
		return KindOrderRequest, ""
	case TopicOrderCancel:
		return KindOrderCancel, ""
	case TopicSetLayout:
		return KindSetLayout, ""
	case TopicSetConfig:
		return KindSetConfig, ""
	case TopicSetCalibration:
		return KindSetCalibration, ""
	case TopicSetPark:
		return KindSetPark, ""
	case TopicSetReset:
		return KindSetReset, ""
	case TopicSetResetOrder:
		return KindSetResetOrder, ""
	}

	if rest, ok := strings.CutPrefix(topic, modulePrefix); ok {
		serial, suffix, ok := cutSerial(rest)
		if !ok {
			return KindUnknown, ""
		}
		switch suffix {
		case suffixState:
			return KindModuleState, serial
		case suffixConnection:
			return KindModuleConnection, serial
		case suffixFactsheet:
			return KindModuleFactsheet, serial
		}
		return KindUnknown, ""
	}

	if rest, ok := strings.CutPrefix(topic, ftsPrefix); ok {
		serial, suffix, ok := cutSerial(rest)
		if !ok {
			return KindUnknown, ""
		}
		switch suffix {
		case suffixState:
			return KindFtsState, serial
		case suffixConnection:
			return KindFtsConnection, serial
		case suffixFactsheet:
			return KindFtsFactsheet, serial
		}
		return KindUnknown, ""
	}

	return KindUnknown, ""
}

func cutSerial(rest string) (serial, suffix string, ok bool) {
	i := strings.IndexByte(rest, '/')
	if i <= 0 {
		return "", "", false
	}
	return rest[:i], rest[i:], true
}

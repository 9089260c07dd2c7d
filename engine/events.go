package engine

import (
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

const (
	EventOrderReceived EventType = iota + 1
	EventOrderStarted
	EventOrderCompleted
	EventOrderFailed
	EventOrderCancelled
	EventOrdersChanged
	EventStockChanged
	EventPairingChanged
	EventLayoutChanged
	EventFactoryReset
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type OrderReceivedEvent struct {
	OrderID   string
	OrderType protocol.OrderType
	Workpiece protocol.Workpiece
}

type OrderStartedEvent struct {
	OrderID string
}

type OrderCompletedEvent struct {
	Order orders.Order
}

type OrderFailedEvent struct {
	Order  orders.Order
	Detail string
}

type OrderCancelledEvent struct {
	Order  orders.Order
	Reason string
}

type ConnectionEvent struct {
	Detail string
}

package orders

import "github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"

// CommandPublisher dispatches commands to devices over the bus. A failed
// publish rolls back any availability change already applied.
type CommandPublisher interface {
	SendNavigation(nav *protocol.NavigationOrder) error
	SendManufacture(cmd *protocol.ManufactureOrder) error
}

// Emitter receives order lifecycle events from the orchestrator. Calls are
// made outside the orchestrator lock.
type Emitter interface {
	EmitOrderReceived(orderID string, orderType protocol.OrderType, wp protocol.Workpiece)
	EmitOrderStarted(orderID string)
	EmitOrderCompleted(o Order)
	EmitOrderFailed(o Order, detail string)
	EmitOrderCancelled(o Order, reason string)
	EmitOrdersChanged()
}

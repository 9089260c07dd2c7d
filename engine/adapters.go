package engine

import (
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// orderEmitter bridges the orchestrator's emitter interface to the EventBus.
type orderEmitter struct {
	bus *EventBus
}

var _ orders.Emitter = (*orderEmitter)(nil)

func (e *orderEmitter) EmitOrderReceived(orderID string, orderType protocol.OrderType, wp protocol.Workpiece) {
	e.bus.Emit(Event{Type: EventOrderReceived, Payload: OrderReceivedEvent{
		OrderID:   orderID,
		OrderType: orderType,
		Workpiece: wp,
	}})
}

func (e *orderEmitter) EmitOrderStarted(orderID string) {
	e.bus.Emit(Event{Type: EventOrderStarted, Payload: OrderStartedEvent{OrderID: orderID}})
}

func (e *orderEmitter) EmitOrderCompleted(o orders.Order) {
	e.bus.Emit(Event{Type: EventOrderCompleted, Payload: OrderCompletedEvent{Order: o}})
}

func (e *orderEmitter) EmitOrderFailed(o orders.Order, detail string) {
	e.bus.Emit(Event{Type: EventOrderFailed, Payload: OrderFailedEvent{Order: o, Detail: detail}})
}

func (e *orderEmitter) EmitOrderCancelled(o orders.Order, reason string) {
	e.bus.Emit(Event{Type: EventOrderCancelled, Payload: OrderCancelledEvent{Order: o, Reason: reason}})
}

func (e *orderEmitter) EmitOrdersChanged() {
	e.bus.Emit(Event{Type: EventOrdersChanged})
}

// handlerEvents bridges the messaging handler's notification surface to
// the EventBus.
type handlerEvents struct {
	bus *EventBus
}

func (e *handlerEvents) StockChanged()   { e.bus.Emit(Event{Type: EventStockChanged}) }
func (e *handlerEvents) PairingChanged() { e.bus.Emit(Event{Type: EventPairingChanged}) }
func (e *handlerEvents) LayoutChanged()  { e.bus.Emit(Event{Type: EventLayoutChanged}) }
func (e *handlerEvents) FactoryReset()   { e.bus.Emit(Event{Type: EventFactoryReset}) }

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/stock"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/store"
)

func (e *Engine) wireEventHandlers() {
	// Order queue changed in any way: refresh the retained order snapshots.
	e.Events.SubscribeTypes(func(Event) {
		e.publishOrdersSnapshot()
		e.publishCompletedSnapshot()
	}, EventOrdersChanged)

	// Stock changed: refresh the snapshot, then let waiting orders try
	// their reservations again.
	e.Events.SubscribeTypes(func(Event) {
		e.publishStockSnapshot()
		e.Orchestrator.StartNextOrders()
		e.Orchestrator.RetriggerModuleSteps()
	}, EventStockChanged)

	// Pairing changed: the reservation spread bias only makes sense with
	// more than one vehicle working the floor.
	e.Events.SubscribeTypes(func(Event) {
		n := 0
		for _, d := range e.Vehicles.Snapshot() {
			if d.Connected {
				n++
			}
		}
		e.Stock.SetSpread(n > 1)
		e.publishPairingSnapshot()
	}, EventPairingChanged)

	e.Events.SubscribeTypes(func(Event) {
		e.publishLayoutSnapshot()
	}, EventLayoutChanged)

	// Lifecycle audit trail.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderReceivedEvent)
		e.logFn("engine: order %s received: %s %s", ev.OrderID, ev.OrderType, ev.Workpiece)
		e.db.AppendAudit("order", ev.OrderID, "received", fmt.Sprintf("%s %s", ev.OrderType, ev.Workpiece), "system")
	}, EventOrderReceived)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderStartedEvent)
		e.db.AppendAudit("order", ev.OrderID, "started", "", "system")
	}, EventOrderStarted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderCompletedEvent)
		e.logFn("engine: order %s completed", ev.Order.ID)
		e.db.AppendAudit("order", ev.Order.ID, "completed", "", "system")
		e.recordOrder(ev.Order, "")
		e.logProduction(ev.Order)
	}, EventOrderCompleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderFailedEvent)
		e.logFn("engine: order %s failed: %s", ev.Order.ID, ev.Detail)
		e.db.AppendAudit("order", ev.Order.ID, "failed", ev.Detail, "system")
		e.recordOrder(ev.Order, ev.Detail)
	}, EventOrderFailed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderCancelledEvent)
		e.logFn("engine: order %s cancelled: %s", ev.Order.ID, ev.Reason)
		e.db.AppendAudit("order", ev.Order.ID, "cancelled", ev.Reason, "system")
		e.recordOrder(ev.Order, ev.Reason)
	}, EventOrderCancelled)

	e.Events.SubscribeTypes(func(Event) {
		e.db.AppendAudit("factory", "ccu", "reset", "", "system")
		if err := e.mirror.Flush(context.Background()); err != nil {
			e.logFn("engine: flush snapshot mirror: %v", err)
		}
		e.publishAllSnapshots()
	}, EventFactoryReset)

	// After a (re)connect the broker may hold stale retained values.
	e.Events.SubscribeTypes(func(Event) {
		e.publishAllSnapshots()
	}, EventMessagingConnected)
}

// recordOrder persists a terminal order into history.
func (e *Engine) recordOrder(o orders.Order, detail string) {
	steps, err := json.Marshal(o.Steps)
	if err != nil {
		steps = []byte("[]")
	}
	co := &store.CompletedOrder{
		OrderID:     o.ID,
		OrderType:   string(o.Type),
		Workpiece:   string(o.Workpiece),
		WorkpieceID: o.WorkpieceID,
		State:       string(o.State),
		ErrorDetail: detail,
		StepsJSON:   string(steps),
		ReceivedAt:  o.ReceivedAt,
	}
	if !o.StartedAt.IsZero() {
		t := o.StartedAt
		co.StartedAt = &t
	}
	if !o.StoppedAt.IsZero() {
		t := o.StoppedAt
		co.StoppedAt = &t
	}
	if err := e.db.RecordCompletedOrder(co); err != nil {
		e.logFn("engine: record order %s: %v", o.ID, err)
	}
}

// logProduction writes one production row per finished manufacture step.
func (e *Engine) logProduction(o orders.Order) {
	for _, s := range o.Steps {
		if s.Kind != orders.StepManufacture || s.State != protocol.StateFinished {
			continue
		}
		if err := e.db.LogProduction(o.ID, string(o.Workpiece), string(s.ModuleType), string(s.Command), s.SerialNumber); err != nil {
			e.logFn("engine: log production for %s: %v", o.ID, err)
		}
	}
}

// --- Retained state snapshots ---

func (e *Engine) publishAllSnapshots() {
	e.publishOrdersSnapshot()
	e.publishCompletedSnapshot()
	e.publishStockSnapshot()
	e.publishPairingSnapshot()
	e.publishLayoutSnapshot()
}

func (e *Engine) publishSnapshot(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		e.logFn("engine: encode snapshot %s: %v", topic, err)
		return
	}
	if err := e.msgClient.PublishRetained(topic, data); err != nil {
		e.logFn("engine: publish snapshot %s: %v", topic, err)
	}
	if err := e.mirror.Set(context.Background(), topic, data); err != nil {
		e.logFn("engine: mirror snapshot %s: %v", topic, err)
	}
}

type ordersSnapshot struct {
	Orders    []orders.Order `json:"orders"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *Engine) publishOrdersSnapshot() {
	e.publishSnapshot(protocol.TopicStateOrders, ordersSnapshot{
		Orders:    e.Orchestrator.ActiveOrders(),
		Timestamp: time.Now(),
	})
}

func (e *Engine) publishCompletedSnapshot() {
	e.publishSnapshot(protocol.TopicStateCompleted, ordersSnapshot{
		Orders:    e.Orchestrator.CompletedOrders(),
		Timestamp: time.Now(),
	})
}

type stockSnapshot struct {
	Warehouses  []stock.WarehouseStock       `json:"warehouses"`
	LoadingBays map[string]map[string]string `json:"loadingBays"`
	Timestamp   time.Time                    `json:"timestamp"`
}

func (e *Engine) publishStockSnapshot() {
	e.publishSnapshot(protocol.TopicStateStock, stockSnapshot{
		Warehouses:  e.Stock.Snapshot(),
		LoadingBays: e.Bays.Snapshot(),
		Timestamp:   time.Now(),
	})
}

type pairingSnapshot struct {
	Modules    []pairing.Device `json:"modules"`
	Transports []pairing.Device `json:"transports"`
	Timestamp  time.Time        `json:"timestamp"`
}

func (e *Engine) publishPairingSnapshot() {
	e.publishSnapshot(protocol.TopicStatePairing, pairingSnapshot{
		Modules:    e.Modules.Snapshot(),
		Transports: e.Vehicles.Snapshot(),
		Timestamp:  time.Now(),
	})
}

func (e *Engine) publishLayoutSnapshot() {
	e.publishSnapshot(protocol.TopicStateLayout, e.graph.Layout())
}

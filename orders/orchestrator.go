package orders

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/stock"
)

// Config holds the orchestrator's scheduling parameters.
type Config struct {
	MaxParallelOrders int
	ChargeBelowPct    float64
}

// Orchestrator is the top-level scheduler. It owns the order queue,
// decomposes orders into steps, selects devices for each step via the
// pairing registries, pathfinder, stock service and loading-bay cache, and
// advances step/order state on device confirmations.
//
// One mutex serializes all mutations; lifecycle events are queued under
// the lock and delivered after release so emitter callbacks can safely
// query the orchestrator again.
type Orchestrator struct {
	mu        sync.Mutex
	cfg       Config
	flows     *Flows
	graph     *layout.Graph
	modules   *pairing.Registry
	vehicles  *pairing.Registry
	stock     *stock.Service
	bays      *stock.LoadingBays
	publisher CommandPublisher
	emitter   Emitter

	queue     []*Order // ENQUEUED and IN_PROGRESS, FIFO
	completed []*Order

	pending []func() // queued emitter calls
}

func NewOrchestrator(
	cfg Config,
	flows *Flows,
	graph *layout.Graph,
	modules, vehicles *pairing.Registry,
	stockSvc *stock.Service,
	bays *stock.LoadingBays,
	publisher CommandPublisher,
	emitter Emitter,
) *Orchestrator {
	if cfg.MaxParallelOrders <= 0 {
		cfg.MaxParallelOrders = 1
	}
	return &Orchestrator{
		cfg:       cfg,
		flows:     flows,
		graph:     graph,
		modules:   modules,
		vehicles:  vehicles,
		stock:     stockSvc,
		bays:      bays,
		publisher: publisher,
		emitter:   emitter,
	}
}

// CreateOrder builds an order from a bus request and caches it.
func (oc *Orchestrator) CreateOrder(req *protocol.OrderRequest) (Order, error) {
	steps, err := oc.flows.BuildSteps(req.OrderType, req.Type)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	o := &Order{
		ID:          uuid.New().String(),
		Type:        req.OrderType,
		Workpiece:   req.Type,
		WorkpieceID: req.WorkpieceID,
		State:       protocol.StateEnqueued,
		Steps:       steps,
		ReceivedAt:  time.Now(),
	}
	oc.CacheOrder(o)
	snapshot, _ := oc.Get(o.ID)
	return snapshot, nil
}

// CacheOrder appends the order to the queue and starts it immediately when
// admission control and resources allow, otherwise it stays ENQUEUED.
func (oc *Orchestrator) CacheOrder(o *Order) {
	oc.mu.Lock()
	oc.queue = append(oc.queue, o)
	oc.queueEventLocked(func() { oc.emitter.EmitOrderReceived(o.ID, o.Type, o.Workpiece) })
	if oc.activeCountLocked() < oc.cfg.MaxParallelOrders {
		oc.startOrderLocked(o)
	}
	oc.finishLocked()
}

// startOrderLocked attempts the order's resource reservation and, on
// success, moves it IN_PROGRESS and triggers its dependency-root steps.
// Reservation failure is non-fatal: the order stays ENQUEUED and is
// retried when stock changes.
func (oc *Orchestrator) startOrderLocked(o *Order) bool {
	if o.State != protocol.StateEnqueued {
		return false
	}

	var (
		ok  bool
		err error
	)
	switch o.Type {
	case protocol.OrderTypeProduction:
		_, ok, err = oc.stock.ReserveWorkpiece(o.ID, o.Workpiece)
	case protocol.OrderTypeStorage:
		_, ok, err = oc.stock.ReserveEmptyBay(o.ID, o.Workpiece)
	default:
		log.Printf("orders: order %s has unknown type %q", o.ID, o.Type)
		return false
	}
	if err != nil {
		log.Printf("orders: reserve for order %s: %v", o.ID, err)
		return false
	}
	if !ok {
		return false
	}

	o.State = protocol.StateInProgress
	o.StartedAt = time.Now()
	oc.queueEventLocked(func() { oc.emitter.EmitOrderStarted(o.ID) })
	oc.triggerIndependentLocked(o)
	// A docked vehicle can finish every step synchronously.
	if o.done() {
		oc.completeOrderLocked(o)
	}
	return true
}

// triggerIndependentLocked dispatches every dependency-root step. A
// navigation skipped because the vehicle is already docked finishes
// synchronously and unlocks its dependents within the same pass.
func (oc *Orchestrator) triggerIndependentLocked(o *Order) {
	for {
		progressed := false
		for _, s := range o.rootSteps() {
			if oc.dispatchStepLocked(o, s) {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// HandleActionUpdate advances a step on a device's terminal action report,
// releases the resources tied to it, and triggers its dependents.
func (oc *Orchestrator) HandleActionUpdate(orderID, actionID string, state protocol.ActionResultState, result protocol.QualityResult) {
	oc.mu.Lock()
	defer oc.finishLocked()

	o, ok := oc.activeOrderLocked(orderID)
	if !ok {
		log.Printf("orders: action update for unknown order %s", orderID)
		return
	}
	s, ok := o.step(actionID)
	if !ok {
		log.Printf("orders: action update for unknown step %s (order %s)", actionID, orderID)
		return
	}
	if s.State != protocol.StateInProgress {
		log.Printf("orders: action update for step %s in state %s, ignored", actionID, s.State)
		return
	}

	if state == protocol.ActionFailed {
		s.State = protocol.StateError
		oc.failOrderLocked(o, fmt.Sprintf("step %s (%s) failed", s.ID, s.Command), false)
		return
	}

	s.State = protocol.StateFinished
	oc.stepFinishedLocked(o, s)

	if s.Command == protocol.CommandCheckQuality && result == protocol.QualityFailed {
		// Quality failure: abort the order and produce a replacement of
		// the same workpiece type.
		oc.failOrderLocked(o, "quality check failed", true)
		return
	}

	oc.triggerIndependentLocked(o)
	if o.done() {
		oc.completeOrderLocked(o)
	}
}

// stepFinishedLocked applies the side effects of a finished step.
func (oc *Orchestrator) stepFinishedLocked(o *Order, s *Step) {
	switch s.Kind {
	case StepNavigation:
		// Vehicle is docked at the target; nodes behind it are free again.
		if s.SerialNumber != "" && s.TargetSerial != "" {
			oc.graph.ReleaseNodesBefore(s.SerialNumber, s.TargetSerial)
			oc.vehicles.SetLastNode(s.SerialNumber, s.TargetSerial)
		}
	case StepManufacture:
		if s.SerialNumber != "" {
			oc.modules.UpdateAvailability(s.SerialNumber, protocol.AvailabilityReady, "")
		}
		if s.ModuleType == protocol.ModuleHBW && (s.Command == protocol.CommandPick || s.Command == protocol.CommandDrop) {
			oc.stock.RemoveReservation(o.ID)
		}
		switch s.Command {
		case protocol.CommandDrop:
			// Workpiece is now on the vehicle.
			if v, ok := oc.vehicles.ForOrder(o.ID); ok {
				if slot, free := oc.bays.OpenSlot(v.SerialNumber); free {
					if err := oc.bays.Set(v.SerialNumber, slot, o.ID); err != nil {
						log.Printf("orders: assign bay %s on %s: %v", slot, v.SerialNumber, err)
					}
				}
			}
		case protocol.CommandPick:
			oc.bays.ClearForOrder(o.ID)
		}
	}
}

func (oc *Orchestrator) completeOrderLocked(o *Order) {
	o.State = protocol.StateFinished
	o.StoppedAt = time.Now()
	oc.releaseOrderResourcesLocked(o)
	oc.removeFromQueueLocked(o.ID)
	oc.completed = append(oc.completed, o)
	done := o.clone()
	oc.queueEventLocked(func() { oc.emitter.EmitOrderCompleted(done) })
	oc.startNextLocked()
}

// failOrderLocked moves the order to ERROR, cancels not-yet-started steps,
// releases its resources, and optionally enqueues a replacement order of
// the same workpiece type.
func (oc *Orchestrator) failOrderLocked(o *Order, detail string, replace bool) {
	o.State = protocol.StateError
	o.StoppedAt = time.Now()
	for _, s := range o.Steps {
		if s.State == protocol.StateEnqueued {
			s.State = protocol.StateCancelled
		}
	}
	oc.releaseOrderResourcesLocked(o)
	oc.removeFromQueueLocked(o.ID)
	oc.completed = append(oc.completed, o)
	failed := o.clone()
	oc.queueEventLocked(func() { oc.emitter.EmitOrderFailed(failed, detail) })

	if replace {
		steps, err := oc.flows.BuildSteps(o.Type, o.Workpiece)
		if err != nil {
			log.Printf("orders: build replacement for order %s: %v", o.ID, err)
		} else {
			repl := &Order{
				ID:         uuid.New().String(),
				Type:       o.Type,
				Workpiece:  o.Workpiece,
				State:      protocol.StateEnqueued,
				Steps:      steps,
				ReceivedAt: time.Now(),
			}
			oc.queue = append(oc.queue, repl)
			oc.queueEventLocked(func() { oc.emitter.EmitOrderReceived(repl.ID, repl.Type, repl.Workpiece) })
		}
	}
	oc.startNextLocked()
}

// releaseOrderResourcesLocked frees everything the order may still hold:
// stock/bay reservation, loading bays, bound vehicle and module, graph
// blocks.
func (oc *Orchestrator) releaseOrderResourcesLocked(o *Order) {
	oc.stock.RemoveReservation(o.ID)
	oc.bays.ClearForOrder(o.ID)
	if v, ok := oc.vehicles.ForOrder(o.ID); ok {
		oc.graph.ReleaseAllNodes(v.SerialNumber)
		oc.vehicles.UpdateAvailability(v.SerialNumber, protocol.AvailabilityReady, "")
	}
	if m, ok := oc.modules.ForOrder(o.ID); ok {
		oc.modules.UpdateAvailability(m.SerialNumber, protocol.AvailabilityReady, "")
	}
}

// startNextLocked admits ENQUEUED orders in FIFO order while capacity and
// resources allow.
func (oc *Orchestrator) startNextLocked() {
	// Starting an order can complete and dequeue it, so iterate a snapshot.
	queue := append([]*Order(nil), oc.queue...)
	for _, o := range queue {
		if oc.activeCountLocked() >= oc.cfg.MaxParallelOrders {
			return
		}
		if o.State == protocol.StateEnqueued {
			oc.startOrderLocked(o)
		}
	}
}

// SetMaxParallelOrders adjusts admission control at runtime and admits
// queued orders when the limit grew.
func (oc *Orchestrator) SetMaxParallelOrders(n int) {
	if n < 1 {
		n = 1
	}
	oc.mu.Lock()
	oc.cfg.MaxParallelOrders = n
	oc.startNextLocked()
	oc.finishLocked()
}

// StartNextOrders re-runs admission, called when stock or devices change.
func (oc *Orchestrator) StartNextOrders() {
	oc.mu.Lock()
	oc.startNextLocked()
	oc.finishLocked()
}

// CancelOrders removes the given ENQUEUED orders from the queue. The
// currently active orders are never removed.
func (oc *Orchestrator) CancelOrders(ids []string, reason string) {
	oc.mu.Lock()
	for _, id := range ids {
		o, ok := oc.orderLocked(id)
		if !ok || o.State != protocol.StateEnqueued {
			continue
		}
		o.State = protocol.StateCancelled
		o.StoppedAt = time.Now()
		for _, s := range o.Steps {
			if s.State == protocol.StateEnqueued {
				s.State = protocol.StateCancelled
			}
		}
		oc.stock.RemoveReservation(o.ID)
		oc.removeFromQueueLocked(o.ID)
		oc.completed = append(oc.completed, o)
		cancelled := o.clone()
		oc.queueEventLocked(func() { oc.emitter.EmitOrderCancelled(cancelled, reason) })
	}
	oc.finishLocked()
}

// ResetOrder retries an errored or cancelled order: a fresh order of the
// same type and workpiece is enqueued in its place. Resetting the same
// order twice, or an order that finished normally, only re-runs admission
// and republishes state.
func (oc *Orchestrator) ResetOrder(orderID string) {
	oc.mu.Lock()
	for _, o := range oc.completed {
		if o.ID != orderID || o.reset {
			continue
		}
		if o.State != protocol.StateError && o.State != protocol.StateCancelled {
			continue
		}
		steps, err := oc.flows.BuildSteps(o.Type, o.Workpiece)
		if err != nil {
			log.Printf("orders: build retry for order %s: %v", o.ID, err)
			break
		}
		o.reset = true
		retry := &Order{
			ID:         uuid.New().String(),
			Type:       o.Type,
			Workpiece:  o.Workpiece,
			State:      protocol.StateEnqueued,
			Steps:      steps,
			ReceivedAt: time.Now(),
		}
		oc.queue = append(oc.queue, retry)
		oc.queueEventLocked(func() { oc.emitter.EmitOrderReceived(retry.ID, retry.Type, retry.Workpiece) })
		break
	}
	oc.startNextLocked()
	oc.finishLocked()
}

// Reset drops all in-memory order state.
func (oc *Orchestrator) Reset() {
	oc.mu.Lock()
	oc.queue = nil
	oc.completed = nil
	oc.finishLocked()
}

// --- queries ---

// Get returns a copy of the order, active or completed.
func (oc *Orchestrator) Get(orderID string) (Order, bool) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if o, ok := oc.orderLocked(orderID); ok {
		return o.clone(), true
	}
	for _, o := range oc.completed {
		if o.ID == orderID {
			return o.clone(), true
		}
	}
	return Order{}, false
}

// ActiveOrders returns copies of all queued and running orders.
func (oc *Orchestrator) ActiveOrders() []Order {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	out := make([]Order, 0, len(oc.queue))
	for _, o := range oc.queue {
		out = append(out, o.clone())
	}
	return out
}

// CompletedOrders returns copies of all terminal orders.
func (oc *Orchestrator) CompletedOrders() []Order {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	out := make([]Order, 0, len(oc.completed))
	for _, o := range oc.completed {
		out = append(out, o.clone())
	}
	return out
}

// --- internals ---

func (oc *Orchestrator) activeCountLocked() int {
	n := 0
	for _, o := range oc.queue {
		if o.State == protocol.StateInProgress {
			n++
		}
	}
	return n
}

func (oc *Orchestrator) orderLocked(id string) (*Order, bool) {
	for _, o := range oc.queue {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (oc *Orchestrator) activeOrderLocked(id string) (*Order, bool) {
	o, ok := oc.orderLocked(id)
	if !ok || o.State != protocol.StateInProgress {
		return nil, false
	}
	return o, true
}

func (oc *Orchestrator) removeFromQueueLocked(id string) {
	for i, o := range oc.queue {
		if o.ID == id {
			oc.queue = append(oc.queue[:i], oc.queue[i+1:]...)
			return
		}
	}
}

func (oc *Orchestrator) queueEventLocked(fn func()) {
	oc.pending = append(oc.pending, fn)
}

// finishLocked releases the lock and delivers queued events plus the
// unconditional orders-changed notification. Every public mutator ends
// here so state snapshots are republished on every mutation.
func (oc *Orchestrator) finishLocked() {
	events := oc.pending
	oc.pending = nil
	oc.mu.Unlock()
	for _, fn := range events {
		fn()
	}
	oc.emitter.EmitOrdersChanged()
}

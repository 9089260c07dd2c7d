package orders

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// RetriggerFTSSteps re-attempts every ENQUEUED navigation root across all
// active orders. Driven by vehicle/module state changes; there is no
// periodic timer. When a step still has no route because its target module
// is physically occupied by an idle unrelated vehicle, that vehicle is
// moved off the module. Idle vehicles with a low battery are sent to a
// charger.
func (oc *Orchestrator) RetriggerFTSSteps() {
	oc.mu.Lock()
	// Completing an order mutates oc.queue, so iterate a snapshot.
	queue := append([]*Order(nil), oc.queue...)
	for _, o := range queue {
		if o.State != protocol.StateInProgress {
			continue
		}
		for _, s := range o.rootSteps() {
			if s.Kind != StepNavigation {
				continue
			}
			if oc.dispatchStepLocked(o, s) {
				oc.triggerIndependentLocked(o)
				continue
			}
			if s.State == protocol.StateEnqueued {
				oc.clearBlockedTargetLocked(o, s)
			}
		}
		if o.done() {
			oc.completeOrderLocked(o)
		}
	}
	oc.dispatchChargingLocked()
	oc.finishLocked()
}

// RetriggerModuleSteps re-attempts every ENQUEUED manufacture root across
// all active orders, then re-runs admission.
func (oc *Orchestrator) RetriggerModuleSteps() {
	oc.mu.Lock()
	queue := append([]*Order(nil), oc.queue...)
	for _, o := range queue {
		if o.State != protocol.StateInProgress {
			continue
		}
		for _, s := range o.rootSteps() {
			if s.Kind == StepManufacture {
				oc.dispatchStepLocked(o, s)
			}
		}
		if o.done() {
			oc.completeOrderLocked(o)
		}
	}
	oc.startNextLocked()
	oc.finishLocked()
}

// clearBlockedTargetLocked moves an idle, unrelated vehicle off a step's
// target module so the step's own vehicle can route there. The squatter is
// found through its graph block on the target, falling back to its reported
// position.
func (oc *Orchestrator) clearBlockedTargetLocked(o *Order, s *Step) {
	if s.TargetSerial == "" {
		return
	}
	serial, ok := oc.graph.BlockedBy(s.TargetSerial)
	if !ok {
		v, at := oc.vehicles.VehicleAt(s.TargetSerial)
		if !at {
			return
		}
		serial = v.SerialNumber
	}
	v, ok := oc.vehicles.Get(serial)
	if !ok || v.AssignedOrderID != "" || v.Available != protocol.AvailabilityReady || v.LastNodeID == "" {
		return
	}
	// Nearest reachable intersection that is not itself occupied.
	var (
		bestNode string
		bestDist float64
	)
	for _, nodeID := range oc.graph.IntersectionNodes() {
		if _, occupied := oc.vehicles.VehicleAt(nodeID); occupied {
			continue
		}
		dist, ok := oc.graph.Distance(serial, v.LastNodeID, nodeID)
		if !ok {
			continue
		}
		if bestNode == "" || dist < bestDist {
			bestNode, bestDist = nodeID, dist
		}
	}
	if bestNode == "" {
		return
	}
	route, ok := oc.graph.FindPath(serial, v.LastNodeID, bestNode)
	if !ok {
		return
	}
	oc.sendFreeMoveLocked(FtsCandidate{Serial: serial, Route: route}, "clear module "+s.TargetSerial)
}

// dispatchChargingLocked sends idle low-battery vehicles to a free
// charger.
func (oc *Orchestrator) dispatchChargingLocked() {
	chargers := oc.graph.ModuleNodes(protocol.ModuleCHRG)
	if len(chargers) == 0 {
		return
	}
	for _, v := range oc.vehicles.AllReady("") {
		if v.AssignedOrderID != "" || v.LastNodeID == "" {
			continue
		}
		if !oc.vehicles.NeedsCharge(v.SerialNumber, oc.cfg.ChargeBelowPct) {
			continue
		}
		for _, nodeID := range chargers {
			if _, occupied := oc.vehicles.VehicleAt(nodeID); occupied {
				continue
			}
			route, ok := oc.graph.FindPath(v.SerialNumber, v.LastNodeID, nodeID)
			if !ok {
				continue
			}
			oc.sendFreeMoveLocked(FtsCandidate{Serial: v.SerialNumber, Route: route}, "charge")
			break
		}
	}
}

// sendFreeMoveLocked dispatches a navigation that belongs to no order
// (clear-module or charging move). The vehicle is BLOCKED until its state
// reports the move finished.
func (oc *Orchestrator) sendFreeMoveLocked(cand FtsCandidate, reason string) {
	if err := oc.graph.BlockNodeSequence(routeBlockers(cand.Serial, cand.Route)); err != nil {
		log.Printf("orders: block free move for %s: %v", cand.Serial, err)
		return
	}
	target := cand.Route.Path[len(cand.Route.Path)-1]
	nav := &protocol.NavigationOrder{
		ActionID:     uuid.New().String(),
		SerialNumber: cand.Serial,
		Source:       cand.Route.Path[0],
		Target:       target,
		Path:         cand.Route.Path,
		Distance:     cand.Route.Distance,
		Timestamp:    time.Now(),
	}
	oc.vehicles.UpdateAvailability(cand.Serial, protocol.AvailabilityBlocked, "")
	if err := oc.publisher.SendNavigation(nav); err != nil {
		log.Printf("orders: send free move (%s) to %s: %v", reason, cand.Serial, err)
		oc.graph.ReleaseAllNodes(cand.Serial)
		oc.vehicles.UpdateAvailability(cand.Serial, protocol.AvailabilityReady, "")
		return
	}
	log.Printf("orders: moving %s to %s (%s)", cand.Serial, target, reason)
}

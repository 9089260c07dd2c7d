package orders

import (
	"log"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// dispatchStepLocked attempts to put one ENQUEUED step in flight. It
// returns true only when the step finished synchronously (navigation
// skipped because a vehicle is already docked at the target), so the
// caller can trigger the dependents in the same pass. Resource
// unavailability leaves the step ENQUEUED for a later retrigger.
func (oc *Orchestrator) dispatchStepLocked(o *Order, s *Step) bool {
	switch s.Kind {
	case StepNavigation:
		return oc.dispatchNavigationLocked(o, s)
	case StepManufacture:
		oc.dispatchManufactureLocked(o, s)
		return false
	default:
		log.Printf("orders: step %s has unknown kind %q", s.ID, s.Kind)
		return false
	}
}

func (oc *Orchestrator) dispatchNavigationLocked(o *Order, s *Step) bool {
	target, ok := oc.resolveTargetModuleLocked(o, s.Target)
	if !ok {
		return false
	}
	s.TargetSerial = target.SerialNumber

	cand, ok := oc.chooseReadyFtsLocked(o, s, target.SerialNumber)
	if !ok {
		return false
	}

	prev, _ := oc.vehicles.Get(cand.Serial)
	oc.vehicles.UpdateAvailability(cand.Serial, protocol.AvailabilityBusy, o.ID)

	if cand.Route.Distance == 0 {
		// Already docked at the target: skip the move entirely.
		s.SerialNumber = cand.Serial
		s.State = protocol.StateFinished
		return true
	}

	blockers := routeBlockers(cand.Serial, cand.Route)
	if err := oc.graph.BlockNodeSequence(blockers); err != nil {
		log.Printf("orders: block route for order %s: %v", o.ID, err)
		oc.vehicles.UpdateAvailability(cand.Serial, prev.Available, prev.AssignedOrderID)
		return false
	}

	nav := &protocol.NavigationOrder{
		OrderID:      o.ID,
		ActionID:     s.ID,
		SerialNumber: cand.Serial,
		Source:       cand.Route.Path[0],
		Target:       target.SerialNumber,
		Path:         cand.Route.Path,
		Distance:     cand.Route.Distance,
		Timestamp:    time.Now(),
	}
	if err := oc.publisher.SendNavigation(nav); err != nil {
		log.Printf("orders: send navigation for order %s to %s: %v", o.ID, cand.Serial, err)
		oc.graph.ReleaseAllNodes(cand.Serial)
		oc.vehicles.UpdateAvailability(cand.Serial, prev.Available, prev.AssignedOrderID)
		return false
	}

	s.SerialNumber = cand.Serial
	s.State = protocol.StateInProgress
	return false
}

func (oc *Orchestrator) dispatchManufactureLocked(o *Order, s *Step) {
	mod, ok := oc.resolveTargetModuleLocked(o, s.ModuleType)
	if !ok {
		return
	}
	if !oc.modules.IsReadyForOrder(mod.SerialNumber, o.ID) {
		return
	}

	prev, _ := oc.modules.Get(mod.SerialNumber)
	oc.modules.UpdateAvailability(mod.SerialNumber, protocol.AvailabilityBusy, o.ID)

	cmd := &protocol.ManufactureOrder{
		OrderID:      o.ID,
		ActionID:     s.ID,
		SerialNumber: mod.SerialNumber,
		Command:      s.Command,
		Type:         o.Workpiece,
		WorkpieceID:  o.WorkpieceID,
		Timestamp:    time.Now(),
	}
	if err := oc.publisher.SendManufacture(cmd); err != nil {
		log.Printf("orders: send %s for order %s to %s: %v", s.Command, o.ID, mod.SerialNumber, err)
		oc.modules.UpdateAvailability(mod.SerialNumber, prev.Available, prev.AssignedOrderID)
		return
	}

	s.SerialNumber = mod.SerialNumber
	s.State = protocol.StateInProgress
}

// resolveTargetModuleLocked picks the concrete module serving a step. A
// warehouse target is pinned to the order's reserved warehouse so PICK and
// DROP happen where the reservation was made.
func (oc *Orchestrator) resolveTargetModuleLocked(o *Order, mt protocol.ModuleType) (pairing.Device, bool) {
	if mt == protocol.ModuleHBW {
		if res, ok := oc.stock.Reservation(o.ID); ok {
			d, found := oc.modules.Get(res.Warehouse)
			if !found || !oc.modules.IsReadyForOrder(d.SerialNumber, o.ID) {
				return pairing.Device{}, false
			}
			return d, true
		}
	}
	return oc.modules.ReadyForModuleType(mt, o.ID)
}

// routeBlockers turns a route into the vehicle's ordered blocker chain.
func routeBlockers(serial string, r layout.Route) []layout.Blocker {
	blockers := make([]layout.Blocker, len(r.Path))
	for i, nodeID := range r.Path {
		b := layout.Blocker{NodeID: nodeID, SerialNumber: serial}
		if i > 0 {
			b.AfterNodeID = r.Path[i-1]
		}
		blockers[i] = b
	}
	return blockers
}

package orders

import (
	"sort"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// FtsCandidate is the vehicle chosen for a navigation step together with
// the route that will be dispatched.
type FtsCandidate struct {
	Serial string
	Route  layout.Route
}

// ChooseReadyFtsForStep selects the vehicle for a navigation step of the
// given order. Exported for direct use by the retrigger path and tests.
func (oc *Orchestrator) ChooseReadyFtsForStep(orderID, targetSerial string, navStep *Step) (FtsCandidate, bool) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	o, ok := oc.orderLocked(orderID)
	if !ok {
		return FtsCandidate{}, false
	}
	return oc.chooseReadyFtsLocked(o, navStep, targetSerial)
}

// chooseReadyFtsLocked implements the selection priority:
//
//  1. a vehicle already bound to this order wins unconditionally —
//     order/vehicle continuity takes precedence over distance;
//  2. a vehicle already parked at the target is used with a zero-distance
//     route;
//  3. otherwise unassigned ready vehicles are ranked by path distance.
//     When the step is not followed by a guaranteed unload, a vehicle's
//     last free bay is not filled: only vehicles with at least 2 of 3
//     bays free qualify.
func (oc *Orchestrator) chooseReadyFtsLocked(o *Order, navStep *Step, targetSerial string) (FtsCandidate, bool) {
	if v, ok := oc.vehicles.ForOrder(o.ID); ok {
		if !oc.vehicles.IsReadyForOrder(v.SerialNumber, o.ID) {
			return FtsCandidate{}, false
		}
		route, ok := oc.routeFor(v.SerialNumber, v.LastNodeID, targetSerial)
		if !ok {
			return FtsCandidate{}, false
		}
		return FtsCandidate{Serial: v.SerialNumber, Route: route}, true
	}

	if v, ok := oc.vehicles.VehicleAt(targetSerial); ok {
		if oc.vehicles.IsReadyForOrder(v.SerialNumber, "") {
			return FtsCandidate{
				Serial: v.SerialNumber,
				Route:  layout.Route{Path: []string{targetSerial}, Distance: 0},
			}, true
		}
	}

	minFree := 2
	if oc.guaranteedPickAfterDropLocked(o, navStep) {
		minFree = 1
	}

	type ranked struct {
		serial string
		route  layout.Route
	}
	var candidates []ranked
	for _, v := range oc.vehicles.AllReady("") {
		if v.AssignedOrderID != "" || v.LastNodeID == "" {
			continue
		}
		if oc.vehicles.NeedsCharge(v.SerialNumber, oc.cfg.ChargeBelowPct) {
			continue
		}
		if oc.bays.FreeCount(v.SerialNumber) < minFree {
			continue
		}
		route, ok := oc.routeFor(v.SerialNumber, v.LastNodeID, targetSerial)
		if !ok {
			continue
		}
		candidates = append(candidates, ranked{serial: v.SerialNumber, route: route})
	}
	if len(candidates) == 0 {
		return FtsCandidate{}, false
	}
	// Stable sort keeps registry enumeration order as the tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].route.Distance < candidates[j].route.Distance
	})
	best := candidates[0]
	return FtsCandidate{Serial: best.serial, Route: best.route}, true
}

func (oc *Orchestrator) routeFor(serial, from, to string) (layout.Route, bool) {
	if from == to {
		return layout.Route{Path: []string{to}, Distance: 0}, true
	}
	return oc.graph.FindPath(serial, from, to)
}

// guaranteedPickAfterDropLocked reports whether the navigation step moves
// a loaded workpiece (it follows a DROP) straight into a PICK at a module
// type that has a ready instance — in which case the unload is guaranteed
// and filling a vehicle's last free bay is safe. A missing or different
// next step is treated conservatively as "no guaranteed pick".
func (oc *Orchestrator) guaranteedPickAfterDropLocked(o *Order, navStep *Step) bool {
	prev, ok := o.step(navStep.DependentActionID)
	if !ok || prev.Kind != StepManufacture || prev.Command != protocol.CommandDrop {
		return false
	}
	next := o.dependents(navStep.ID)
	if len(next) == 0 {
		return false
	}
	pick := next[0]
	if pick.Kind != StepManufacture || pick.Command != protocol.CommandPick {
		return false
	}
	return len(oc.modules.AllReady(pick.ModuleType)) > 0
}

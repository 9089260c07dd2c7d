package orders

import (
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// StepKind discriminates the production-step union.
type StepKind string

const (
	StepNavigation  StepKind = "NAVIGATION"
	StepManufacture StepKind = "MANUFACTURE"
)

// Step is one atomic unit of an order: a navigation move or a
// manufacturing command. Steps form a singly-linked dependency chain via
// DependentActionID pointing at the step they follow.
type Step struct {
	ID                string              `json:"id"`
	Kind              StepKind            `json:"kind"`
	State             protocol.OrderState `json:"state"`
	DependentActionID string              `json:"dependentActionId,omitempty"`

	// NAVIGATION: module types resolved to concrete serials at dispatch.
	Source protocol.ModuleType `json:"source,omitempty"`
	Target protocol.ModuleType `json:"target,omitempty"`

	// MANUFACTURE
	ModuleType protocol.ModuleType `json:"moduleType,omitempty"`
	Command    protocol.Command    `json:"command,omitempty"`

	// Assigned device serial (FTS for navigation, module for manufacture),
	// set when the step is dispatched.
	SerialNumber string `json:"serialNumber,omitempty"`
	// TargetSerial is the resolved target module of a navigation step.
	TargetSerial string `json:"targetSerial,omitempty"`
}

// Order is a production or storage order owned exclusively by the
// orchestrator.
type Order struct {
	ID          string              `json:"orderId"`
	Type        protocol.OrderType  `json:"orderType"`
	Workpiece   protocol.Workpiece  `json:"type"`
	WorkpieceID string              `json:"workpieceId,omitempty"`
	State       protocol.OrderState `json:"state"`
	Steps       []*Step             `json:"productionSteps"`

	ReceivedAt time.Time `json:"receivedAt"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	StoppedAt  time.Time `json:"stoppedAt,omitzero"`

	reset bool // a retry order has already been spawned for this one
}

// step returns the step with the given action ID.
func (o *Order) step(actionID string) (*Step, bool) {
	for _, s := range o.Steps {
		if s.ID == actionID {
			return s, true
		}
	}
	return nil, false
}

// dependents returns the steps directly following the given step.
func (o *Order) dependents(actionID string) []*Step {
	var out []*Step
	for _, s := range o.Steps {
		if s.DependentActionID == actionID {
			out = append(out, s)
		}
	}
	return out
}

// rootSteps returns steps whose predecessor is resolved: no dependency, or
// a FINISHED one.
func (o *Order) rootSteps() []*Step {
	var out []*Step
	for _, s := range o.Steps {
		if s.State != protocol.StateEnqueued {
			continue
		}
		if s.DependentActionID == "" {
			out = append(out, s)
			continue
		}
		if dep, ok := o.step(s.DependentActionID); ok && dep.State == protocol.StateFinished {
			out = append(out, s)
		}
	}
	return out
}

// done reports whether every step reached a terminal state.
func (o *Order) done() bool {
	for _, s := range o.Steps {
		if s.State == protocol.StateEnqueued || s.State == protocol.StateInProgress {
			return false
		}
	}
	return true
}

// clone returns a deep copy for publishing outside the orchestrator lock.
func (o *Order) clone() Order {
	cp := *o
	cp.Steps = make([]*Step, len(o.Steps))
	for i, s := range o.Steps {
		sc := *s
		cp.Steps[i] = &sc
	}
	return cp
}

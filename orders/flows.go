package orders

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// FlowStep is one template entry of a production flow.
type FlowStep struct {
	Kind       StepKind            `json:"kind"`
	Source     protocol.ModuleType `json:"source,omitempty"`
	Target     protocol.ModuleType `json:"target,omitempty"`
	ModuleType protocol.ModuleType `json:"moduleType,omitempty"`
	Command    protocol.Command    `json:"command,omitempty"`
}

// Flows holds the per-workpiece-type step templates for production orders
// and the single storage flow.
type Flows struct {
	Production map[protocol.Workpiece][]FlowStep `json:"production"`
	Storage    []FlowStep                        `json:"storage"`
}

// LoadFlows reads the flow definition file. A missing file yields the
// default flows.
func LoadFlows(path string) (*Flows, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultFlows(), nil
		}
		return nil, err
	}
	var f Flows
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flows: %w", err)
	}
	return &f, nil
}

// BuildSteps instantiates the flow for an order as a linear dependency
// chain with fresh action IDs. The chain is acyclic by construction.
func (f *Flows) BuildSteps(orderType protocol.OrderType, wp protocol.Workpiece) ([]*Step, error) {
	var tmpl []FlowStep
	switch orderType {
	case protocol.OrderTypeProduction:
		var ok bool
		tmpl, ok = f.Production[wp]
		if !ok {
			return nil, fmt.Errorf("no production flow for workpiece type %s", wp)
		}
	case protocol.OrderTypeStorage:
		tmpl = f.Storage
	default:
		return nil, fmt.Errorf("unknown order type %s", orderType)
	}

	steps := make([]*Step, 0, len(tmpl))
	prevID := ""
	for _, ft := range tmpl {
		s := &Step{
			ID:                uuid.New().String(),
			Kind:              ft.Kind,
			State:             protocol.StateEnqueued,
			DependentActionID: prevID,
			Source:            ft.Source,
			Target:            ft.Target,
			ModuleType:        ft.ModuleType,
			Command:           ft.Command,
		}
		steps = append(steps, s)
		prevID = s.ID
	}
	return steps, nil
}

func nav(source, target protocol.ModuleType) FlowStep {
	return FlowStep{Kind: StepNavigation, Source: source, Target: target}
}

func manu(mt protocol.ModuleType, cmd protocol.Command) FlowStep {
	return FlowStep{Kind: StepManufacture, ModuleType: mt, Command: cmd}
}

// DefaultFlows encodes the standard factory process: workpieces leave the
// warehouse, pass their machining stations, get inspected, and are handed
// out at the delivery station. WHITE is drilled, RED is milled, BLUE gets
// both.
func DefaultFlows() *Flows {
	machining := func(stations ...protocol.ModuleType) []FlowStep {
		steps := []FlowStep{
			nav("", protocol.ModuleHBW),
			manu(protocol.ModuleHBW, protocol.CommandDrop),
		}
		prev := protocol.ModuleHBW
		for _, st := range stations {
			cmd := protocol.CommandDrill
			if st == protocol.ModuleMill {
				cmd = protocol.CommandMill
			}
			steps = append(steps,
				nav(prev, st),
				manu(st, protocol.CommandPick),
				manu(st, cmd),
				manu(st, protocol.CommandDrop),
			)
			prev = st
		}
		steps = append(steps,
			nav(prev, protocol.ModuleAIQS),
			manu(protocol.ModuleAIQS, protocol.CommandPick),
			manu(protocol.ModuleAIQS, protocol.CommandCheckQuality),
			manu(protocol.ModuleAIQS, protocol.CommandDrop),
			nav(protocol.ModuleAIQS, protocol.ModuleDPS),
			manu(protocol.ModuleDPS, protocol.CommandPick),
		)
		return steps
	}

	return &Flows{
		Production: map[protocol.Workpiece][]FlowStep{
			protocol.WorkpieceWhite: machining(protocol.ModuleDrill),
			protocol.WorkpieceRed:   machining(protocol.ModuleMill),
			protocol.WorkpieceBlue:  machining(protocol.ModuleDrill, protocol.ModuleMill),
		},
		Storage: []FlowStep{
			nav("", protocol.ModuleDPS),
			manu(protocol.ModuleDPS, protocol.CommandDrop),
			nav(protocol.ModuleDPS, protocol.ModuleHBW),
			manu(protocol.ModuleHBW, protocol.CommandPick),
			manu(protocol.ModuleHBW, protocol.CommandStore),
		},
	}
}

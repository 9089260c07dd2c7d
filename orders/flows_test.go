package orders

import (
	"testing"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

func TestBuildStepsLinearChain(t *testing.T) {
	steps, err := DefaultFlows().BuildSteps(protocol.OrderTypeProduction, protocol.WorkpieceWhite)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(steps) != 12 {
		t.Fatalf("steps = %d, want 12", len(steps))
	}
	if steps[0].DependentActionID != "" {
		t.Errorf("first step must have no dependency, got %q", steps[0].DependentActionID)
	}
	seen := map[string]bool{}
	for i, s := range steps {
		if s.ID == "" || seen[s.ID] {
			t.Fatalf("step %d has duplicate or empty ID %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.State != protocol.StateEnqueued {
			t.Errorf("step %d state = %s, want ENQUEUED", i, s.State)
		}
		if i > 0 && s.DependentActionID != steps[i-1].ID {
			t.Errorf("step %d does not follow step %d", i, i-1)
		}
	}
	if steps[0].Kind != StepNavigation || steps[0].Target != protocol.ModuleHBW {
		t.Errorf("first step = %+v, want move to warehouse", steps[0])
	}
	last := steps[len(steps)-1]
	if last.Kind != StepManufacture || last.ModuleType != protocol.ModuleDPS || last.Command != protocol.CommandPick {
		t.Errorf("last step = %+v, want PICK at delivery station", last)
	}
}

func TestBuildStepsBlueVisitsBothStations(t *testing.T) {
	steps, err := DefaultFlows().BuildSteps(protocol.OrderTypeProduction, protocol.WorkpieceBlue)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var stations []protocol.ModuleType
	for _, s := range steps {
		if s.Kind == StepManufacture && (s.Command == protocol.CommandDrill || s.Command == protocol.CommandMill) {
			stations = append(stations, s.ModuleType)
		}
	}
	if len(stations) != 2 || stations[0] != protocol.ModuleDrill || stations[1] != protocol.ModuleMill {
		t.Errorf("stations = %v, want [DRILL MILL]", stations)
	}
}

func TestBuildStepsStorage(t *testing.T) {
	steps, err := DefaultFlows().BuildSteps(protocol.OrderTypeStorage, protocol.WorkpieceRed)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	last := steps[len(steps)-1]
	if last.ModuleType != protocol.ModuleHBW || last.Command != protocol.CommandStore {
		t.Errorf("last step = %+v, want STORE at warehouse", last)
	}
}

func TestBuildStepsUnknownWorkpiece(t *testing.T) {
	if _, err := DefaultFlows().BuildSteps(protocol.OrderTypeProduction, "GREEN"); err == nil {
		t.Error("expected error for unknown workpiece type")
	}
}

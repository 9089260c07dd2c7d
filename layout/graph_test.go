package layout

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// testLayout builds a small diamond topology:
//
//	HBW-1 -- X1 -- DRILL-1
//	          |
//	DPS-1 -- X2 -- AIQS-1
//
// with a long direct detour HBW-1 -- DPS-1.
func testLayout() Layout {
	return Layout{
		Modules: []ModuleSpec{
			{SerialNumber: "HBW-1", ModuleType: protocol.ModuleHBW},
			{SerialNumber: "DRILL-1", ModuleType: protocol.ModuleDrill},
			{SerialNumber: "DPS-1", ModuleType: protocol.ModuleDPS},
			{SerialNumber: "AIQS-1", ModuleType: protocol.ModuleAIQS},
		},
		Intersections: []IntersectionSpec{{ID: "X1"}, {ID: "X2"}},
		Roads: []RoadSpec{
			{From: "HBW-1", To: "X1", Length: 1},
			{From: "X1", To: "DRILL-1", Length: 1},
			{From: "X1", To: "X2", Length: 1},
			{From: "DPS-1", To: "X2", Length: 1},
			{From: "X2", To: "AIQS-1", Length: 1},
			{From: "HBW-1", To: "DPS-1", Length: 10},
		},
	}
}

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(testLayout())
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestFindPathShortest(t *testing.T) {
	g := testGraph(t)

	r, ok := g.FindPath("FTS-1", "HBW-1", "DPS-1")
	if !ok {
		t.Fatal("expected a path")
	}
	want := []string{"HBW-1", "X1", "X2", "DPS-1"}
	if len(r.Path) != len(want) {
		t.Fatalf("path = %v, want %v", r.Path, want)
	}
	for i := range want {
		if r.Path[i] != want[i] {
			t.Fatalf("path = %v, want %v", r.Path, want)
		}
	}
	if r.Distance != 3 {
		t.Errorf("distance = %v, want 3", r.Distance)
	}
}

func TestFindPathAvoidsBlockedNodes(t *testing.T) {
	g := testGraph(t)

	// Another vehicle sits on X2: the route must fall back to the long
	// direct road.
	if err := g.BlockNodeSequence([]Blocker{{NodeID: "X2", SerialNumber: "FTS-2"}}); err != nil {
		t.Fatalf("block: %v", err)
	}
	r, ok := g.FindPath("FTS-1", "HBW-1", "DPS-1")
	if !ok {
		t.Fatal("expected detour path")
	}
	if r.Distance != 10 {
		t.Errorf("distance = %v, want 10 (detour)", r.Distance)
	}

	// The blocking vehicle itself still routes through its own node.
	if _, ok := g.FindPath("FTS-2", "X2", "DPS-1"); !ok {
		t.Error("own blocks must not exclude a vehicle's path")
	}
}

func TestFindPathBlockedTarget(t *testing.T) {
	g := testGraph(t)
	if err := g.BlockNodeSequence([]Blocker{{NodeID: "DPS-1", SerialNumber: "FTS-2"}}); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, ok := g.FindPath("FTS-1", "HBW-1", "DPS-1"); ok {
		t.Error("route to a node held by another vehicle must fail")
	}
}

func TestFindPathStartEqualsTarget(t *testing.T) {
	g := testGraph(t)
	r, ok := g.FindPath("FTS-1", "DPS-1", "DPS-1")
	if !ok || r.Distance != 0 || len(r.Path) != 1 {
		t.Errorf("zero route = %+v ok=%v, want single-node zero-distance route", r, ok)
	}
}

func TestBlockNodeSequenceAllOrNothing(t *testing.T) {
	g := testGraph(t)

	if err := g.BlockNodeSequence([]Blocker{{NodeID: "X1", SerialNumber: "FTS-2"}}); err != nil {
		t.Fatalf("block: %v", err)
	}

	// FTS-1 wants HBW-1 -> X1 -> X2 but X1 is taken: nothing is applied.
	seq := []Blocker{
		{NodeID: "HBW-1", SerialNumber: "FTS-1"},
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "HBW-1"},
		{NodeID: "X2", SerialNumber: "FTS-1", AfterNodeID: "X1"},
	}
	err := g.BlockNodeSequence(seq)
	if !errors.Is(err, ErrBlockedByOtherFTS) {
		t.Fatalf("err = %v, want ErrBlockedByOtherFTS", err)
	}
	if g.IsNodeBlocked("HBW-1", "") || g.IsNodeBlocked("X2", "") {
		t.Error("partial application after conflict")
	}
}

func TestBlockNodeSequenceMissingPredecessor(t *testing.T) {
	g := testGraph(t)

	// X1 claims to follow HBW-1, but HBW-1 is not blocked and not part of
	// this sequence.
	err := g.BlockNodeSequence([]Blocker{
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "HBW-1"},
	})
	if !errors.Is(err, ErrMissingPrecedingNode) {
		t.Fatalf("err = %v, want ErrMissingPrecedingNode", err)
	}
	if g.IsNodeBlocked("X1", "") {
		t.Error("block applied despite broken chain")
	}
}

func TestBlockNodeSequenceIdempotent(t *testing.T) {
	g := testGraph(t)
	seq := []Blocker{
		{NodeID: "HBW-1", SerialNumber: "FTS-1"},
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "HBW-1"},
	}
	if err := g.BlockNodeSequence(seq); err != nil {
		t.Fatalf("first block: %v", err)
	}
	if err := g.BlockNodeSequence(seq); err != nil {
		t.Fatalf("re-apply must be idempotent: %v", err)
	}
	if got := len(g.BlockedNodeIDs("FTS-1")); got != 2 {
		t.Errorf("blocked nodes = %d, want 2", got)
	}
}

func TestBlockNodeSequenceAfterDockRelease(t *testing.T) {
	g := testGraph(t)
	if err := g.BlockNodeSequence([]Blocker{
		{NodeID: "DPS-1", SerialNumber: "FTS-1"},
		{NodeID: "X2", SerialNumber: "FTS-1", AfterNodeID: "DPS-1"},
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "X2"},
		{NodeID: "HBW-1", SerialNumber: "FTS-1", AfterNodeID: "X1"},
	}); err != nil {
		t.Fatalf("first route: %v", err)
	}

	// Vehicle docks at HBW-1, keeping the block with the old predecessor.
	g.ReleaseNodesBefore("FTS-1", "HBW-1")

	// The next route starts where the vehicle sits: the retained block must
	// be re-anchored as the new chain's head, not rejected.
	if err := g.BlockNodeSequence([]Blocker{
		{NodeID: "HBW-1", SerialNumber: "FTS-1"},
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "HBW-1"},
		{NodeID: "DRILL-1", SerialNumber: "FTS-1", AfterNodeID: "X1"},
	}); err != nil {
		t.Fatalf("second route from docked node: %v", err)
	}

	// The re-anchored chain must release normally when the vehicle moves on.
	g.ReleaseNodesBefore("FTS-1", "DRILL-1")
	if g.IsNodeBlocked("HBW-1", "") || g.IsNodeBlocked("X1", "") {
		t.Error("passed nodes of re-anchored chain still blocked")
	}
	if !g.IsNodeBlocked("DRILL-1", "") {
		t.Error("docked node must stay blocked")
	}

	// Another vehicle starting on the docked node is still rejected.
	if err := g.BlockNodeSequence([]Blocker{
		{NodeID: "DRILL-1", SerialNumber: "FTS-2"},
	}); !errors.Is(err, ErrBlockedByOtherFTS) {
		t.Errorf("foreign start on docked node: err = %v, want ErrBlockedByOtherFTS", err)
	}
}

func TestReleaseNodesBefore(t *testing.T) {
	g := testGraph(t)
	seq := []Blocker{
		{NodeID: "HBW-1", SerialNumber: "FTS-1"},
		{NodeID: "X1", SerialNumber: "FTS-1", AfterNodeID: "HBW-1"},
		{NodeID: "X2", SerialNumber: "FTS-1", AfterNodeID: "X1"},
		{NodeID: "DPS-1", SerialNumber: "FTS-1", AfterNodeID: "X2"},
	}
	if err := g.BlockNodeSequence(seq); err != nil {
		t.Fatalf("block: %v", err)
	}

	// Vehicle reports arrival at X2: everything strictly before it frees.
	g.ReleaseNodesBefore("FTS-1", "X2")

	if g.IsNodeBlocked("HBW-1", "") || g.IsNodeBlocked("X1", "") {
		t.Error("passed nodes still blocked")
	}
	if !g.IsNodeBlocked("X2", "") || !g.IsNodeBlocked("DPS-1", "") {
		t.Error("current and upcoming nodes must stay blocked")
	}
}

func TestReleaseAllNodes(t *testing.T) {
	g := testGraph(t)
	if err := g.BlockNodeSequence([]Blocker{
		{NodeID: "X1", SerialNumber: "FTS-1"},
		{NodeID: "X2", SerialNumber: "FTS-1", AfterNodeID: "X1"},
	}); err != nil {
		t.Fatalf("block: %v", err)
	}
	g.ReleaseAllNodes("FTS-1")
	if len(g.BlockedNodeIDs("FTS-1")) != 0 {
		t.Error("blocks remain after ReleaseAllNodes")
	}
}

func TestSetLayoutDropsVanishedBlocks(t *testing.T) {
	g := testGraph(t)
	if err := g.BlockNodeSequence([]Blocker{{NodeID: "AIQS-1", SerialNumber: "FTS-1"}}); err != nil {
		t.Fatalf("block: %v", err)
	}

	l := testLayout()
	l.Modules = l.Modules[:3] // drop AIQS-1
	l.Roads = l.Roads[:4]
	if err := g.SetLayout(l); err != nil {
		t.Fatalf("set layout: %v", err)
	}
	if len(g.BlockedNodeIDs("FTS-1")) != 0 {
		t.Error("block on removed node survived layout swap")
	}
}

func TestModuleNodes(t *testing.T) {
	g := testGraph(t)
	nodes := g.ModuleNodes(protocol.ModuleHBW)
	if len(nodes) != 1 || nodes[0] != "HBW-1" {
		t.Errorf("ModuleNodes(HBW) = %v", nodes)
	}
	if got := len(g.IntersectionNodes()); got != 2 {
		t.Errorf("intersections = %d, want 2", got)
	}
}

func TestLoadLayoutMissingFileGivesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(l.Modules) == 0 || len(l.Roads) == 0 {
		t.Error("default layout should not be empty")
	}
	if err := SaveLayout(path, l); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Modules) != len(l.Modules) {
		t.Errorf("reloaded %d modules, want %d", len(reloaded.Modules), len(l.Modules))
	}
}

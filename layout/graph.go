package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// ModuleSpec places a fixed module on the shop floor. The module's serial
// number doubles as its graph node ID.
type ModuleSpec struct {
	SerialNumber string              `json:"serialNumber"`
	ModuleType   protocol.ModuleType `json:"moduleType"`
}

// IntersectionSpec is a plain routing node with no module attached.
type IntersectionSpec struct {
	ID string `json:"id"`
}

// RoadSpec connects two nodes bidirectionally with a physical length.
type RoadSpec struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Length float64 `json:"length"`
}

// Layout is the serializable shop-floor description.
type Layout struct {
	Modules       []ModuleSpec       `json:"modules"`
	Intersections []IntersectionSpec `json:"intersections"`
	Roads         []RoadSpec         `json:"roads"`
}

// Node is one vertex of the active topology graph.
type Node struct {
	ID         string
	ModuleType protocol.ModuleType // empty for intersections
}

type edgeTo struct {
	to     string
	length float64
}

// Graph holds the active node/edge topology and the per-FTS node-blocking
// ledger used for collision avoidance. Both survive together: swapping the
// layout drops blocks on nodes that no longer exist.
type Graph struct {
	mu       sync.RWMutex
	layout   Layout
	nodes    map[string]Node
	adj      map[string][]edgeTo
	blockers []Blocker
}

// NewGraph builds a graph from a layout. Roads referencing unknown nodes
// are rejected.
func NewGraph(l Layout) (*Graph, error) {
	g := &Graph{}
	if err := g.generate(l); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) generate(l Layout) error {
	nodes := make(map[string]Node, len(l.Modules)+len(l.Intersections))
	for _, m := range l.Modules {
		nodes[m.SerialNumber] = Node{ID: m.SerialNumber, ModuleType: m.ModuleType}
	}
	for _, in := range l.Intersections {
		nodes[in.ID] = Node{ID: in.ID}
	}

	adj := make(map[string][]edgeTo, len(nodes))
	for _, r := range l.Roads {
		if _, ok := nodes[r.From]; !ok {
			return fmt.Errorf("road references unknown node %q", r.From)
		}
		if _, ok := nodes[r.To]; !ok {
			return fmt.Errorf("road references unknown node %q", r.To)
		}
		// bidirectional, equal weight
		adj[r.From] = append(adj[r.From], edgeTo{to: r.To, length: r.Length})
		adj[r.To] = append(adj[r.To], edgeTo{to: r.From, length: r.Length})
	}

	g.layout = l
	g.nodes = nodes
	g.adj = adj
	return nil
}

// SetLayout swaps the active graph for a new layout. Blocks held on nodes
// that disappear are released.
func (g *Graph) SetLayout(l Layout) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.generate(l); err != nil {
		return err
	}
	kept := g.blockers[:0]
	for _, b := range g.blockers {
		if _, ok := g.nodes[b.NodeID]; ok {
			kept = append(kept, b)
		}
	}
	g.blockers = kept
	return nil
}

// Layout returns the active layout.
func (g *Graph) Layout() Layout {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.layout
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// ModuleNodes returns the node IDs of all modules of the given type.
func (g *Graph) ModuleNodes(mt protocol.ModuleType) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, n := range g.nodes {
		if n.ModuleType == mt {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// IntersectionNodes returns the IDs of all plain routing nodes.
func (g *Graph) IntersectionNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, n := range g.nodes {
		if n.ModuleType == "" {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// LoadLayout reads a layout file. A missing file yields the default layout.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLayout(), nil
		}
		return Layout{}, err
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	return l, nil
}

// SaveLayout writes the layout file.
func SaveLayout(path string, l Layout) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultLayout is the standard training-factory floor: one of each module
// around two central intersections.
func DefaultLayout() Layout {
	return Layout{
		Modules: []ModuleSpec{
			{SerialNumber: "HBW-1", ModuleType: protocol.ModuleHBW},
			{SerialNumber: "DRILL-1", ModuleType: protocol.ModuleDrill},
			{SerialNumber: "MILL-1", ModuleType: protocol.ModuleMill},
			{SerialNumber: "AIQS-1", ModuleType: protocol.ModuleAIQS},
			{SerialNumber: "DPS-1", ModuleType: protocol.ModuleDPS},
			{SerialNumber: "CHRG-1", ModuleType: protocol.ModuleCHRG},
		},
		Intersections: []IntersectionSpec{
			{ID: "X1"}, {ID: "X2"},
		},
		Roads: []RoadSpec{
			{From: "HBW-1", To: "X1", Length: 400},
			{From: "DRILL-1", To: "X1", Length: 400},
			{From: "MILL-1", To: "X2", Length: 400},
			{From: "AIQS-1", To: "X2", Length: 400},
			{From: "DPS-1", To: "X2", Length: 400},
			{From: "CHRG-1", To: "X1", Length: 400},
			{From: "X1", To: "X2", Length: 600},
		},
	}
}

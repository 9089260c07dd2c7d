package layout

import "errors"

// Blocker reserves one graph node for an FTS's in-flight route. AfterNodeID
// orders the chain: it names the node the vehicle passes immediately before
// this one, and must itself be blocked when the blocker is applied.
type Blocker struct {
	NodeID       string `json:"nodeId"`
	SerialNumber string `json:"serialNumber"`
	AfterNodeID  string `json:"afterNodeId,omitempty"`
}

var (
	ErrBlockedByOtherFTS      = errors.New("node already blocked by another FTS")
	ErrMissingPrecedingNode   = errors.New("node points to missing preceding node")
	ErrDifferentPrecedingNode = errors.New("node blocked with a different preceding node")
)

// BlockNodeSequence applies a chain of blockers. Re-applying an identical
// chain for the same vehicle is a no-op; a node held by another vehicle, or
// held by the same vehicle with a different predecessor mid-chain, is an
// error. A docked vehicle keeps its final node with the predecessor of the
// finished route; when its next route starts on that node (AfterNodeID
// empty), the retained block is re-anchored as the new chain's head. On
// error nothing from the sequence is applied.
func (g *Graph) BlockNodeSequence(blockers []Blocker) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var pending []Blocker
	var restart []string
	for _, b := range blockers {
		if b.AfterNodeID != "" && !g.nodeBlockedLocked(b.AfterNodeID) && !pendingHas(pending, b.AfterNodeID) {
			return ErrMissingPrecedingNode
		}
		existing, ok := g.blockerForLocked(b.NodeID)
		if !ok {
			pending = append(pending, b)
			continue
		}
		if existing.SerialNumber != b.SerialNumber {
			return ErrBlockedByOtherFTS
		}
		if existing.AfterNodeID == b.AfterNodeID {
			continue // identical block already held
		}
		if b.AfterNodeID != "" {
			return ErrDifferentPrecedingNode
		}
		restart = append(restart, b.NodeID)
	}
	for _, nodeID := range restart {
		for i := range g.blockers {
			if g.blockers[i].NodeID == nodeID {
				g.blockers[i].AfterNodeID = ""
			}
		}
	}
	g.blockers = append(g.blockers, pending...)
	return nil
}

// ReleaseNodesBefore releases every node in the vehicle's chain strictly
// preceding nodeID. Nodes at or after nodeID, and blocks held by other
// vehicles, are untouched.
func (g *Graph) ReleaseNodesBefore(serial, nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Walk the vehicle's chain back from nodeID to find the passed set.
	passed := make(map[string]struct{})
	cur := nodeID
	for {
		b, ok := g.blockerForLocked(cur)
		if !ok || b.SerialNumber != serial || b.AfterNodeID == "" {
			break
		}
		if _, seen := passed[b.AfterNodeID]; seen {
			break
		}
		passed[b.AfterNodeID] = struct{}{}
		cur = b.AfterNodeID
	}

	kept := g.blockers[:0]
	for _, b := range g.blockers {
		if b.SerialNumber == serial {
			if _, ok := passed[b.NodeID]; ok {
				continue
			}
		}
		kept = append(kept, b)
	}
	g.blockers = kept
}

// ReleaseAllNodes releases the vehicle's entire chain.
func (g *Graph) ReleaseAllNodes(serial string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.blockers[:0]
	for _, b := range g.blockers {
		if b.SerialNumber != serial {
			kept = append(kept, b)
		}
	}
	g.blockers = kept
}

// IsNodeBlocked reports whether nodeID is blocked. A non-empty
// excludeSerial ignores blocks held by that vehicle.
func (g *Graph) IsNodeBlocked(nodeID, excludeSerial string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.blockerForLocked(nodeID)
	return ok && b.SerialNumber != excludeSerial
}

// BlockedBy returns the serial of the vehicle holding nodeID, if any.
func (g *Graph) BlockedBy(nodeID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.blockerForLocked(nodeID)
	if !ok {
		return "", false
	}
	return b.SerialNumber, true
}

// BlockedNodeIDs returns the node IDs blocked by the given vehicle, or all
// blocked node IDs when serial is empty.
func (g *Graph) BlockedNodeIDs(serial string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, b := range g.blockers {
		if serial == "" || b.SerialNumber == serial {
			ids = append(ids, b.NodeID)
		}
	}
	return ids
}

func (g *Graph) nodeBlockedLocked(nodeID string) bool {
	_, ok := g.blockerForLocked(nodeID)
	return ok
}

func (g *Graph) blockerForLocked(nodeID string) (Blocker, bool) {
	for _, b := range g.blockers {
		if b.NodeID == nodeID {
			return b, true
		}
	}
	return Blocker{}, false
}

func pendingHas(pending []Blocker, nodeID string) bool {
	for _, b := range pending {
		if b.NodeID == nodeID {
			return true
		}
	}
	return false
}

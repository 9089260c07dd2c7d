package layout

import "container/heap"

// Route is a concrete node sequence with its total edge distance.
type Route struct {
	Path     []string
	Distance float64
}

// FindPath computes the shortest distance-weighted path from start to
// target for the given vehicle, excluding nodes currently blocked by a
// different vehicle. The start node is exempt from the block check since
// the requesting vehicle already occupies it. Returns false when target is
// unknown or unreachable.
func (g *Graph) FindPath(serial, start, target string) (Route, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[start]; !ok {
		return Route{}, false
	}
	if _, ok := g.nodes[target]; !ok {
		return Route{}, false
	}
	if start == target {
		return Route{Path: []string{start}, Distance: 0}, true
	}

	blocked := func(id string) bool {
		if id == start {
			return false
		}
		b, ok := g.blockerForLocked(id)
		return ok && b.SerialNumber != serial
	}
	if blocked(target) {
		return Route{}, false
	}

	const unreached = -1.0
	dist := make(map[string]float64, len(g.nodes))
	prev := make(map[string]string, len(g.nodes))
	for id := range g.nodes {
		dist[id] = unreached
	}
	dist[start] = 0

	pq := &nodeQueue{{id: start, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if cur.id == target {
			break
		}
		if dist[cur.id] != unreached && cur.dist > dist[cur.id] {
			continue // superseded entry
		}
		for _, e := range g.adj[cur.id] {
			if blocked(e.to) {
				continue
			}
			nd := cur.dist + e.length
			if dist[e.to] == unreached || nd < dist[e.to] {
				dist[e.to] = nd
				prev[e.to] = cur.id
				heap.Push(pq, queueItem{id: e.to, dist: nd})
			}
		}
	}

	if dist[target] == unreached {
		return Route{}, false
	}

	var path []string
	for at := target; ; at = prev[at] {
		path = append(path, at)
		if at == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return Route{Path: path, Distance: dist[target]}, true
}

// Distance returns just the shortest path distance, used for ranking
// candidate vehicles.
func (g *Graph) Distance(serial, start, target string) (float64, bool) {
	r, ok := g.FindPath(serial, start, target)
	if !ok {
		return 0, false
	}
	return r.Distance, true
}

type queueItem struct {
	id   string
	dist float64
}

type nodeQueue []queueItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

package stock

import (
	"errors"
	"sync"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// ErrLoadingBayOccupied is returned when a bay slot already holds a
// different order's workpiece.
var ErrLoadingBayOccupied = errors.New("loading bay occupied by another order")

// BaySlots are the three fixed carrying positions of every FTS.
var BaySlots = []string{"1", "2", "3"}

// LoadingBays maps each vehicle's fixed 3-slot carrying bays to the order
// occupying each slot. An empty string means the slot is free.
type LoadingBays struct {
	mu   sync.Mutex
	bays map[string]map[string]string // serial -> slot -> orderID
}

func NewLoadingBays() *LoadingBays {
	return &LoadingBays{bays: make(map[string]map[string]string)}
}

func (lb *LoadingBays) ensureLocked(serial string) map[string]string {
	m, ok := lb.bays[serial]
	if !ok {
		m = make(map[string]string, len(BaySlots))
		for _, slot := range BaySlots {
			m[slot] = ""
		}
		lb.bays[serial] = m
	}
	return m
}

// Set assigns a slot to an order. Re-setting the same order is a no-op
// success; a slot held by a different order is an error.
func (lb *LoadingBays) Set(serial, slot, orderID string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	cur, ok := m[slot]
	if !ok {
		return errors.New("unknown loading bay slot: " + slot)
	}
	if cur != "" && cur != orderID {
		return ErrLoadingBayOccupied
	}
	m[slot] = orderID
	return nil
}

// OpenSlot returns the first free slot of the vehicle.
func (lb *LoadingBays) OpenSlot(serial string) (string, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	for _, slot := range BaySlots {
		if m[slot] == "" {
			return slot, true
		}
	}
	return "", false
}

// FreeCount returns the number of free slots on the vehicle.
func (lb *LoadingBays) FreeCount(serial string) int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	n := 0
	for _, slot := range BaySlots {
		if m[slot] == "" {
			n++
		}
	}
	return n
}

// LoadedOrderIDs returns the orders currently loaded on the vehicle.
func (lb *LoadingBays) LoadedOrderIDs(serial string) []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	var out []string
	for _, slot := range BaySlots {
		if m[slot] != "" {
			out = append(out, m[slot])
		}
	}
	return out
}

// SlotForOrder returns the slot holding the order's workpiece on the
// vehicle.
func (lb *LoadingBays) SlotForOrder(serial, orderID string) (string, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	for _, slot := range BaySlots {
		if m[slot] == orderID {
			return slot, true
		}
	}
	return "", false
}

// ClearForOrder frees every slot held by the order, across all vehicles.
func (lb *LoadingBays) ClearForOrder(orderID string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	for _, m := range lb.bays {
		for slot, id := range m {
			if id == orderID {
				m[slot] = ""
			}
		}
	}
}

// ResetForVehicle frees all slots of one vehicle.
func (lb *LoadingBays) ResetForVehicle(serial string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	for _, slot := range BaySlots {
		m[slot] = ""
	}
}

// SyncFromLoads reconciles a vehicle's bay map with its reported load
// list. Slots the vehicle reports occupied are claimed for the reported
// order; slots it reports empty are freed.
func (lb *LoadingBays) SyncFromLoads(serial string, loads []protocol.Load) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	m := lb.ensureLocked(serial)
	reported := make(map[string]string, len(loads))
	for _, l := range loads {
		if l.LoadPosition != "" {
			reported[l.LoadPosition] = l.LoadID
		}
	}
	for _, slot := range BaySlots {
		if id, ok := reported[slot]; ok {
			if id != "" {
				m[slot] = id
			}
		} else {
			m[slot] = ""
		}
	}
}

// Snapshot returns a copy of all bay maps for publishing.
func (lb *LoadingBays) Snapshot() map[string]map[string]string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	out := make(map[string]map[string]string, len(lb.bays))
	for serial, m := range lb.bays {
		cp := make(map[string]string, len(m))
		for slot, id := range m {
			cp[slot] = id
		}
		out[serial] = cp
	}
	return out
}

// Reset clears all bay maps.
func (lb *LoadingBays) Reset() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.bays = make(map[string]map[string]string)
}

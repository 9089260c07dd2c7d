package pairing

import (
	"sort"
	"sync"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// Device is the live pairing record for one module or FTS. Records are
// created on the first state message for an unseen serial and are never
// destroyed, only marked disconnected.
type Device struct {
	SerialNumber string
	DeviceType   protocol.DeviceType
	ModuleType   protocol.ModuleType

	Connected       bool
	Available       protocol.Availability
	PairedSince     time.Time
	AssignedOrderID string
	Calibrated      bool
	Factsheet       *protocol.Factsheet

	// FTS only
	LastNodeID string
	Battery    protocol.BatteryState
	LastLoads  []protocol.Load

	LastSeen time.Time
}

// Registry is the live catalog of paired devices of one kind, keyed by
// serial number. The CCU holds two instances: modules and vehicles.
type Registry struct {
	mu      sync.RWMutex
	kind    protocol.DeviceType
	devices map[string]*Device
	seq     []string // enumeration order: first-paired first
}

func NewRegistry(kind protocol.DeviceType) *Registry {
	return &Registry{
		kind:    kind,
		devices: make(map[string]*Device),
	}
}

// Kind returns the device kind this registry tracks.
func (r *Registry) Kind() protocol.DeviceType { return r.kind }

func (r *Registry) ensureLocked(serial string) *Device {
	d, ok := r.devices[serial]
	if !ok {
		d = &Device{
			SerialNumber: serial,
			DeviceType:   r.kind,
			Available:    protocol.AvailabilityReady,
			PairedSince:  time.Now(),
		}
		r.devices[serial] = d
		r.seq = append(r.seq, serial)
	}
	return d
}

// UpdateConnection applies a connection-topic announcement.
func (r *Registry) UpdateConnection(serial string, cs *protocol.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensureLocked(serial)
	d.Connected = cs.ConnectionState == protocol.ConnOnline
	d.LastSeen = time.Now()
}

// UpdateFacts applies a factsheet snapshot.
func (r *Registry) UpdateFacts(serial string, fs *protocol.Factsheet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensureLocked(serial)
	d.Factsheet = fs
	if fs.ModuleType != "" {
		d.ModuleType = fs.ModuleType
	}
	d.LastSeen = time.Now()
}

// UpdateModuleState applies a module state report.
func (r *Registry) UpdateModuleState(serial string, st *protocol.ModuleState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensureLocked(serial)
	d.Connected = true
	if st.ModuleType != "" {
		d.ModuleType = st.ModuleType
	}
	d.LastSeen = time.Now()
}

// UpdateFtsState applies a vehicle state report.
func (r *Registry) UpdateFtsState(serial string, st *protocol.FtsState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensureLocked(serial)
	d.Connected = true
	d.Battery = st.Battery
	d.LastLoads = st.Loads
	if st.LastNodeID != "" {
		d.LastNodeID = st.LastNodeID
	}
	d.LastSeen = time.Now()
}

// UpdateAvailability is the single mutator for the READY/BUSY/BLOCKED state
// machine. It stamps the owning order on BUSY/BLOCKED and clears it on
// READY.
func (r *Registry) UpdateAvailability(serial string, a protocol.Availability, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.ensureLocked(serial)
	d.Available = a
	if a == protocol.AvailabilityReady {
		d.AssignedOrderID = ""
	} else {
		d.AssignedOrderID = orderID
	}
}

// SetCalibrated records a completed calibration.
func (r *Registry) SetCalibrated(serial string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(serial).Calibrated = ok
}

// SetLastNode records the vehicle's current graph node.
func (r *Registry) SetLastNode(serial, nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(serial).LastNodeID = nodeID
}

// Get returns a copy of the device record.
func (r *Registry) Get(serial string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serial]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// AllPaired returns copies of every record, in pairing order.
func (r *Registry) AllPaired() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.seq))
	for _, serial := range r.seq {
		out = append(out, *r.devices[serial])
	}
	return out
}

// AllReady returns connected READY devices, filtered by module type when mt
// is non-empty. Enumeration order is pairing order, which is what breaks
// distance ties in vehicle selection.
func (r *Registry) AllReady(mt protocol.ModuleType) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Device
	for _, serial := range r.seq {
		d := r.devices[serial]
		if !d.Connected || d.Available != protocol.AvailabilityReady {
			continue
		}
		if mt != "" && d.ModuleType != mt {
			continue
		}
		out = append(out, *d)
	}
	return out
}

// ReadyForModuleType returns a ready module of the given type that is not
// already bound to a different order.
func (r *Registry) ReadyForModuleType(mt protocol.ModuleType, orderID string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, serial := range r.seq {
		d := r.devices[serial]
		if !d.Connected || d.ModuleType != mt {
			continue
		}
		if d.AssignedOrderID != "" && d.AssignedOrderID != orderID {
			continue
		}
		if d.Available == protocol.AvailabilityReady || d.AssignedOrderID == orderID {
			return *d, true
		}
	}
	return Device{}, false
}

// ForOrder returns the device currently assigned to the order.
func (r *Registry) ForOrder(orderID string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, serial := range r.seq {
		d := r.devices[serial]
		if d.AssignedOrderID == orderID {
			return *d, true
		}
	}
	return Device{}, false
}

// IsReadyForOrder reports whether the device can act for the order: it is
// connected and either READY or already bound to this very order.
func (r *Registry) IsReadyForOrder(serial, orderID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serial]
	if !ok || !d.Connected {
		return false
	}
	if d.AssignedOrderID == orderID && orderID != "" {
		return true
	}
	return d.Available == protocol.AvailabilityReady && d.AssignedOrderID == ""
}

// VehicleAt returns the vehicle parked at the given graph node, if any.
func (r *Registry) VehicleAt(nodeID string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, serial := range r.seq {
		d := r.devices[serial]
		if d.Connected && d.LastNodeID == nodeID {
			return *d, true
		}
	}
	return Device{}, false
}

// NeedsCharge reports whether the vehicle's battery is below the low-water
// mark and it is not already charging.
func (r *Registry) NeedsCharge(serial string, belowPct float64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serial]
	if !ok {
		return false
	}
	return !d.Battery.Charging && d.Battery.Percentage > 0 && d.Battery.Percentage < belowPct
}

// IsCharged reports whether the vehicle has recovered past the high-water
// mark.
func (r *Registry) IsCharged(serial string, abovePct float64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serial]
	if !ok {
		return false
	}
	return d.Battery.Percentage >= abovePct
}

// Snapshot returns all records sorted by serial for publishing.
func (r *Registry) Snapshot() []Device {
	out := r.AllPaired()
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out
}

// Reset clears all pairing records.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*Device)
	r.seq = nil
}

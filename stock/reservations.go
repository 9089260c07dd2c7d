package stock

import (
	"errors"
	"sort"
	"sync"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

// ErrReservationTypeMismatch is a programming-contract violation: an order
// may only ever reserve a single workpiece type.
var ErrReservationTypeMismatch = errors.New("order already holds a reservation of a different type")

// ReservationKind distinguishes workpiece-stock from empty-bay reservations.
type ReservationKind string

const (
	ReserveWorkpieceKind ReservationKind = "WORKPIECE"
	ReserveBayKind       ReservationKind = "BAY"
)

// Reservation binds an order to one warehouse for one workpiece type.
type Reservation struct {
	OrderID   string             `json:"orderId"`
	Type      protocol.Workpiece `json:"type"`
	Warehouse string             `json:"warehouse"`
	Kind      ReservationKind    `json:"kind"`
}

type warehouse struct {
	stock    map[protocol.Workpiece]int
	capacity int // storage positions from factsheet; 0 = unknown
}

// Service tracks physical warehouse stock and empty-slot capacity, and
// arbitrates per-order reservations against them. Stock counts are derived
// from the latest reported load list of each warehouse.
type Service struct {
	mu            sync.Mutex
	warehouses    map[string]*warehouse
	reservations  map[string]*Reservation // by orderID
	lastWarehouse string                  // warehouse of the most recent reservation
	spread        bool                    // more than one vehicle paired
}

func NewService() *Service {
	return &Service{
		warehouses:   make(map[string]*warehouse),
		reservations: make(map[string]*Reservation),
	}
}

func (s *Service) ensureLocked(serial string) *warehouse {
	w, ok := s.warehouses[serial]
	if !ok {
		w = &warehouse{stock: make(map[protocol.Workpiece]int)}
		s.warehouses[serial] = w
	}
	return w
}

// SetWarehouseStock replaces a warehouse's stock counts from its reported
// load list. Returns true when the counts actually changed.
func (s *Service) SetWarehouseStock(serial string, loads []protocol.Load) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ensureLocked(serial)
	next := make(map[protocol.Workpiece]int)
	for _, l := range loads {
		if l.LoadType != "" {
			next[l.LoadType]++
		}
	}
	changed := len(next) != len(w.stock)
	if !changed {
		for t, n := range next {
			if w.stock[t] != n {
				changed = true
				break
			}
		}
	}
	w.stock = next
	return changed
}

// SetWarehouseCapacity records the factsheet-reported storage slot count.
func (s *Service) SetWarehouseCapacity(serial string, slots int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(serial).capacity = slots
}

func (w *warehouse) totalStock() int {
	n := 0
	for _, c := range w.stock {
		n += c
	}
	return n
}

// availableLocked is physical stock minus reservations against it.
func (s *Service) availableLocked(serial string, t protocol.Workpiece) int {
	w, ok := s.warehouses[serial]
	if !ok {
		return 0
	}
	n := w.stock[t]
	for _, res := range s.reservations {
		if res.Kind == ReserveWorkpieceKind && res.Warehouse == serial && res.Type == t {
			n--
		}
	}
	return n
}

// emptyBaysLocked is capacity minus stock minus bay reservations.
func (s *Service) emptyBaysLocked(serial string) int {
	w, ok := s.warehouses[serial]
	if !ok || w.capacity == 0 {
		return 0
	}
	n := w.capacity - w.totalStock()
	for _, res := range s.reservations {
		if res.Kind == ReserveBayKind && res.Warehouse == serial {
			n--
		}
	}
	return n
}

// ReserveWorkpiece reserves one workpiece of the given type for the order.
// Idempotent per order+type: re-reserving returns the same warehouse. A
// different type for an order already holding a reservation is a hard
// error. ok=false means no warehouse currently has unreserved stock of the
// type; the caller defers and retries on the next stock change.
func (s *Service) ReserveWorkpiece(orderID string, t protocol.Workpiece) (string, bool, error) {
	return s.reserve(orderID, t, ReserveWorkpieceKind)
}

// ReserveEmptyBay reserves one empty storage slot for the order.
func (s *Service) ReserveEmptyBay(orderID string, t protocol.Workpiece) (string, bool, error) {
	return s.reserve(orderID, t, ReserveBayKind)
}

// SetSpread switches the reservation spread bias on or off. The engine
// keeps it on while more than one vehicle is paired.
func (s *Service) SetSpread(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spread = on
}

func (s *Service) reserve(orderID string, t protocol.Workpiece, kind ReservationKind) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.reservations[orderID]; ok {
		if existing.Type != t || existing.Kind != kind {
			return "", false, ErrReservationTypeMismatch
		}
		return existing.Warehouse, true, nil
	}

	candidates := s.candidatesLocked(t, kind)
	if len(candidates) == 0 {
		return "", false, nil
	}

	// With more than one vehicle paired, bias away from the warehouse of
	// the most recent reservation so concurrent orders spread across
	// warehouses. With a single warehouse this is a no-op.
	chosen := candidates[0]
	if s.spread && len(candidates) > 1 && chosen == s.lastWarehouse {
		chosen = candidates[1]
	}

	s.reservations[orderID] = &Reservation{
		OrderID:   orderID,
		Type:      t,
		Warehouse: chosen,
		Kind:      kind,
	}
	s.lastWarehouse = chosen
	return chosen, true, nil
}

func (s *Service) candidatesLocked(t protocol.Workpiece, kind ReservationKind) []string {
	var out []string
	for serial := range s.warehouses {
		switch kind {
		case ReserveWorkpieceKind:
			if s.availableLocked(serial, t) > 0 {
				out = append(out, serial)
			}
		case ReserveBayKind:
			if s.emptyBaysLocked(serial) > 0 {
				out = append(out, serial)
			}
		}
	}
	sort.Strings(out)
	return out
}

// RemoveReservation releases the order's reservation, if any. Called
// exactly once when the associated PICK/DROP finishes or the order
// terminates abnormally.
func (s *Service) RemoveReservation(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, orderID)
}

// Reservation returns the order's current reservation.
func (s *Service) Reservation(orderID string) (Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[orderID]
	if !ok {
		return Reservation{}, false
	}
	return *res, true
}

// HasWorkpiece reports whether any warehouse has unreserved stock of t.
func (s *Service) HasWorkpiece(t protocol.Workpiece) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidatesLocked(t, ReserveWorkpieceKind)) > 0
}

// HasEmptyBay reports whether any warehouse has an unreserved empty slot.
func (s *Service) HasEmptyBay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidatesLocked("", ReserveBayKind)) > 0
}

// WarehouseStock is one warehouse's published stock snapshot.
type WarehouseStock struct {
	SerialNumber string                     `json:"serialNumber"`
	Stock        map[protocol.Workpiece]int `json:"stock"`
	EmptyBays    int                        `json:"emptyBays"`
}

// Snapshot returns the full stock picture for publishing.
func (s *Service) Snapshot() []WarehouseStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WarehouseStock, 0, len(s.warehouses))
	for serial, w := range s.warehouses {
		stock := make(map[protocol.Workpiece]int, len(w.stock))
		for t, n := range w.stock {
			stock[t] = n
		}
		out = append(out, WarehouseStock{
			SerialNumber: serial,
			Stock:        stock,
			EmptyBays:    s.emptyBaysLocked(serial),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out
}

// Reset clears all stock knowledge and reservations.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses = make(map[string]*warehouse)
	s.reservations = make(map[string]*Reservation)
	s.lastWarehouse = ""
	s.spread = false
}

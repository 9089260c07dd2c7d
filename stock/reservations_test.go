package stock

import (
	"errors"
	"testing"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
)

func loads(types ...protocol.Workpiece) []protocol.Load {
	out := make([]protocol.Load, len(types))
	for i, t := range types {
		out[i] = protocol.Load{LoadType: t, LoadPosition: "A1"}
	}
	return out
}

func TestSetWarehouseStockChangeDetection(t *testing.T) {
	s := NewService()
	if !s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed, protocol.WorkpieceBlue)) {
		t.Error("initial stock should report a change")
	}
	if s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceBlue, protocol.WorkpieceRed)) {
		t.Error("same counts in different order should not report a change")
	}
	if !s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed)) {
		t.Error("removed workpiece should report a change")
	}
}

func TestReserveWorkpiece(t *testing.T) {
	s := NewService()
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed))

	wh, ok, err := s.ReserveWorkpiece("order-1", protocol.WorkpieceRed)
	if err != nil || !ok || wh != "HBW-1" {
		t.Fatalf("reserve = %q, %v, %v", wh, ok, err)
	}

	// Re-reserving the same type is idempotent.
	wh2, ok, err := s.ReserveWorkpiece("order-1", protocol.WorkpieceRed)
	if err != nil || !ok || wh2 != wh {
		t.Fatalf("re-reserve = %q, %v, %v", wh2, ok, err)
	}

	// The single RED is spoken for: a second order must wait.
	if _, ok, err := s.ReserveWorkpiece("order-2", protocol.WorkpieceRed); err != nil || ok {
		t.Fatalf("second reserve should report unavailable, got ok=%v err=%v", ok, err)
	}

	// Releasing frees it.
	s.RemoveReservation("order-1")
	if _, ok, _ := s.ReserveWorkpiece("order-2", protocol.WorkpieceRed); !ok {
		t.Error("reserve after release should succeed")
	}
}

func TestReserveTypeMismatchIsError(t *testing.T) {
	s := NewService()
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed, protocol.WorkpieceBlue))

	if _, _, err := s.ReserveWorkpiece("order-1", protocol.WorkpieceRed); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	_, _, err := s.ReserveWorkpiece("order-1", protocol.WorkpieceBlue)
	if !errors.Is(err, ErrReservationTypeMismatch) {
		t.Errorf("err = %v, want ErrReservationTypeMismatch", err)
	}
}

func TestReserveUnavailableIsNotAnError(t *testing.T) {
	s := NewService()
	s.SetWarehouseStock("HBW-1", nil)
	wh, ok, err := s.ReserveWorkpiece("order-1", protocol.WorkpieceWhite)
	if err != nil {
		t.Fatalf("unavailable stock must not error: %v", err)
	}
	if ok || wh != "" {
		t.Errorf("reserve = %q, %v, want empty/false", wh, ok)
	}
}

func TestReserveEmptyBay(t *testing.T) {
	s := NewService()
	s.SetWarehouseCapacity("HBW-1", 2)
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed))

	if _, ok, err := s.ReserveEmptyBay("order-1", protocol.WorkpieceWhite); err != nil || !ok {
		t.Fatalf("one slot free, reserve = %v, %v", ok, err)
	}
	// capacity 2, stock 1, one reservation: full.
	if _, ok, _ := s.ReserveEmptyBay("order-2", protocol.WorkpieceWhite); ok {
		t.Error("no free slot left, reserve should defer")
	}
}

func TestReserveSpreadsAcrossWarehouses(t *testing.T) {
	s := NewService()
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed, protocol.WorkpieceRed))
	s.SetWarehouseStock("HBW-2", loads(protocol.WorkpieceRed, protocol.WorkpieceRed))
	s.SetSpread(true)

	first, _, _ := s.ReserveWorkpiece("order-1", protocol.WorkpieceRed)
	second, _, _ := s.ReserveWorkpiece("order-2", protocol.WorkpieceRed)
	if first == second {
		t.Errorf("consecutive reservations should prefer different warehouses, both chose %s", first)
	}
}

func TestReserveNoSpreadWithSingleVehicle(t *testing.T) {
	s := NewService()
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed, protocol.WorkpieceRed))
	s.SetWarehouseStock("HBW-2", loads(protocol.WorkpieceRed, protocol.WorkpieceRed))

	// One vehicle serves every order: the nearest-by-name warehouse is
	// reused instead of alternating.
	first, _, _ := s.ReserveWorkpiece("order-1", protocol.WorkpieceRed)
	second, _, _ := s.ReserveWorkpiece("order-2", protocol.WorkpieceRed)
	if first != "HBW-1" || second != "HBW-1" {
		t.Errorf("reservations = %s, %s, want HBW-1 twice", first, second)
	}
}

func TestHasQueries(t *testing.T) {
	s := NewService()
	if s.HasWorkpiece(protocol.WorkpieceRed) || s.HasEmptyBay() {
		t.Error("empty service reports availability")
	}
	s.SetWarehouseCapacity("HBW-1", 3)
	s.SetWarehouseStock("HBW-1", loads(protocol.WorkpieceRed))
	if !s.HasWorkpiece(protocol.WorkpieceRed) {
		t.Error("HasWorkpiece(RED) = false")
	}
	if !s.HasEmptyBay() {
		t.Error("HasEmptyBay = false with capacity 3 and stock 1")
	}
}

func TestLoadingBaySetAndConflict(t *testing.T) {
	lb := NewLoadingBays()

	if err := lb.Set("FTS-1", "1", "order-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Same order again: fine.
	if err := lb.Set("FTS-1", "1", "order-1"); err != nil {
		t.Fatalf("idempotent set: %v", err)
	}
	// Different order on the same slot: error.
	if err := lb.Set("FTS-1", "1", "order-2"); !errors.Is(err, ErrLoadingBayOccupied) {
		t.Errorf("err = %v, want ErrLoadingBayOccupied", err)
	}
	if got := lb.FreeCount("FTS-1"); got != 2 {
		t.Errorf("FreeCount = %d, want 2", got)
	}
}

func TestLoadingBayOpenSlotAndClear(t *testing.T) {
	lb := NewLoadingBays()
	slot, ok := lb.OpenSlot("FTS-1")
	if !ok || slot != "1" {
		t.Fatalf("OpenSlot = %q, %v", slot, ok)
	}
	lb.Set("FTS-1", "1", "order-1")
	lb.Set("FTS-1", "2", "order-2")

	if slot, ok := lb.SlotForOrder("FTS-1", "order-2"); !ok || slot != "2" {
		t.Errorf("SlotForOrder = %q, %v", slot, ok)
	}

	lb.ClearForOrder("order-1")
	if got := lb.FreeCount("FTS-1"); got != 2 {
		t.Errorf("FreeCount after clear = %d, want 2", got)
	}
	ids := lb.LoadedOrderIDs("FTS-1")
	if len(ids) != 1 || ids[0] != "order-2" {
		t.Errorf("LoadedOrderIDs = %v", ids)
	}
}

func TestLoadingBaySyncFromLoads(t *testing.T) {
	lb := NewLoadingBays()
	lb.Set("FTS-1", "1", "order-1")

	// Device reports the workpiece physically in slot 2 and nothing else.
	lb.SyncFromLoads("FTS-1", []protocol.Load{
		{LoadType: protocol.WorkpieceRed, LoadPosition: "2", LoadID: "order-1"},
	})
	if slot, ok := lb.SlotForOrder("FTS-1", "order-1"); !ok || slot != "2" {
		t.Errorf("after sync SlotForOrder = %q, %v, want slot 2", slot, ok)
	}
	if got := lb.FreeCount("FTS-1"); got != 2 {
		t.Errorf("FreeCount = %d, want 2", got)
	}
}

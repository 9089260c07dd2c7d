package messaging

import (
	"encoding/json"
	"log"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/stock"
)

// Events is the notification surface the handler raises factory-state
// changes on. The engine implements it and fans out to its event bus.
type Events interface {
	StockChanged()
	PairingChanged()
	LayoutChanged()
	FactoryReset()
}

// CCUHandler applies inbound bus messages to the factory state: the
// pairing registries, the stock service, the loading bays and the order
// orchestrator. It implements protocol.MessageHandler; decode and routing
// live in the protocol ingestor.
type CCUHandler struct {
	protocol.NoOpHandler

	client       *Client
	commands     *CommandSender
	orchestrator *orders.Orchestrator
	modules      *pairing.Registry
	vehicles     *pairing.Registry
	stock        *stock.Service
	bays         *stock.LoadingBays
	graph        *layout.Graph
	layoutPath   string

	chargedAbovePct float64

	events Events
}

type CCUHandlerConfig struct {
	Client          *Client
	Commands        *CommandSender
	Orchestrator    *orders.Orchestrator
	Modules         *pairing.Registry
	Vehicles        *pairing.Registry
	Stock           *stock.Service
	Bays            *stock.LoadingBays
	Graph           *layout.Graph
	LayoutPath      string
	ChargedAbovePct float64
	Events          Events
}

func NewCCUHandler(c CCUHandlerConfig) *CCUHandler {
	return &CCUHandler{
		client:          c.Client,
		commands:        c.Commands,
		orchestrator:    c.Orchestrator,
		modules:         c.Modules,
		vehicles:        c.Vehicles,
		stock:           c.Stock,
		bays:            c.Bays,
		graph:           c.Graph,
		layoutPath:      c.LayoutPath,
		chargedAbovePct: c.ChargedAbovePct,
		events:          c.Events,
	}
}

var _ protocol.MessageHandler = (*CCUHandler)(nil)

// --- Order lifecycle ---

func (h *CCUHandler) HandleOrderRequest(req *protocol.OrderRequest) {
	o, err := h.orchestrator.CreateOrder(req)
	if err != nil {
		log.Printf("ccu_handler: order request: %v", err)
		return
	}
	// The order is queued either way; flag up front when it cannot start
	// until the warehouses change.
	switch req.OrderType {
	case protocol.OrderTypeProduction:
		if !h.stock.HasWorkpiece(req.Type) {
			log.Printf("ccu_handler: order %s queued, no %s workpiece in stock", o.ID, req.Type)
		}
	case protocol.OrderTypeStorage:
		if !h.stock.HasEmptyBay() {
			log.Printf("ccu_handler: order %s queued, no empty warehouse bay", o.ID)
		}
	}
	resp := protocol.OrderResponse{
		OrderID:   o.ID,
		OrderType: o.Type,
		Type:      o.Workpiece,
		State:     o.State,
		Timestamp: time.Now(),
	}
	if err := h.client.PublishJSON(protocol.TopicOrderResponse, 2, &resp); err != nil {
		log.Printf("ccu_handler: publish order response: %v", err)
	}
}

func (h *CCUHandler) HandleOrderCancel(req *protocol.CancelRequest) {
	h.orchestrator.CancelOrders(req.OrderIDs, "cancelled by client")
}

// --- Module topics ---

func (h *CCUHandler) HandleModuleState(serial string, st *protocol.ModuleState) {
	h.modules.UpdateModuleState(serial, st)

	if st.ModuleType == protocol.ModuleHBW {
		if h.stock.SetWarehouseStock(serial, st.Loads) {
			h.events.StockChanged()
		}
	}

	if st.ActionState != nil && st.OrderID != "" {
		switch st.ActionState.State {
		case protocol.ActionFinished, protocol.ActionFailed:
			h.orchestrator.HandleActionUpdate(st.OrderID, st.ActionState.ID, st.ActionState.State, st.ActionState.Result)
			h.orchestrator.RetriggerModuleSteps()
		}
	}

	if st.ActionState != nil && st.ActionState.Command == protocol.CommandCalibrate &&
		st.ActionState.State == protocol.ActionFinished {
		h.modules.SetCalibrated(serial, true)
		h.events.PairingChanged()
	}
}

func (h *CCUHandler) HandleModuleConnection(serial string, cs *protocol.ConnectionState) {
	h.modules.UpdateConnection(serial, cs)
	if cs.ConnectionState != protocol.ConnOnline {
		// Orders holding this module fail through their action timeouts;
		// here we only stop offering the module to new steps.
		h.modules.UpdateAvailability(serial, protocol.AvailabilityBlocked, "")
	} else {
		if d, ok := h.modules.Get(serial); ok && d.AssignedOrderID == "" {
			h.modules.UpdateAvailability(serial, protocol.AvailabilityReady, "")
		}
		h.orchestrator.RetriggerModuleSteps()
	}
	h.events.PairingChanged()
}

func (h *CCUHandler) HandleModuleFactsheet(serial string, fs *protocol.Factsheet) {
	h.modules.UpdateFacts(serial, fs)
	if fs.ModuleType == protocol.ModuleHBW && len(fs.LoadSpecification.LoadPositions) > 0 {
		h.stock.SetWarehouseCapacity(serial, len(fs.LoadSpecification.LoadPositions))
		h.events.StockChanged()
	}
	h.events.PairingChanged()
}

// --- FTS topics ---

func (h *CCUHandler) HandleFtsState(serial string, st *protocol.FtsState) {
	h.vehicles.UpdateFtsState(serial, st)
	h.bays.SyncFromLoads(serial, st.Loads)

	// Progressive node release while the vehicle traverses its path.
	if st.LastNodeID != "" {
		h.graph.ReleaseNodesBefore(serial, st.LastNodeID)
	}

	if st.ActionState != nil && st.OrderID != "" {
		switch st.ActionState.State {
		case protocol.ActionFinished, protocol.ActionFailed:
			h.orchestrator.HandleActionUpdate(st.OrderID, st.ActionState.ID, st.ActionState.State, st.ActionState.Result)
		}
	}

	h.settleFreeMove(serial, st)
	h.orchestrator.RetriggerFTSSteps()
	h.events.PairingChanged()
}

// settleFreeMove returns a vehicle to READY once an order-less move
// (charging or clearing a module) has run its course. A charging vehicle
// stays BLOCKED until the battery passes the charged threshold.
func (h *CCUHandler) settleFreeMove(serial string, st *protocol.FtsState) {
	d, ok := h.vehicles.Get(serial)
	if !ok || d.Available != protocol.AvailabilityBlocked || d.AssignedOrderID != "" {
		return
	}
	if st.Driving {
		return
	}
	if st.Battery.Charging && !h.vehicles.IsCharged(serial, h.chargedAbovePct) {
		return
	}
	h.graph.ReleaseAllNodes(serial)
	h.vehicles.UpdateAvailability(serial, protocol.AvailabilityReady, "")
}

func (h *CCUHandler) HandleFtsConnection(serial string, cs *protocol.ConnectionState) {
	h.vehicles.UpdateConnection(serial, cs)
	if cs.ConnectionState != protocol.ConnOnline {
		// A vanished vehicle must not keep roads locked.
		h.graph.ReleaseAllNodes(serial)
		h.bays.ResetForVehicle(serial)
	} else {
		h.orchestrator.RetriggerFTSSteps()
	}
	h.events.PairingChanged()
}

func (h *CCUHandler) HandleFtsFactsheet(serial string, fs *protocol.Factsheet) {
	h.vehicles.UpdateFacts(serial, fs)
	h.events.PairingChanged()
}

// --- Admin topics ---

func (h *CCUHandler) HandleSetLayout(raw json.RawMessage) {
	var l layout.Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		log.Printf("ccu_handler: decode layout: %v", err)
		return
	}
	if err := h.graph.SetLayout(l); err != nil {
		log.Printf("ccu_handler: apply layout: %v", err)
		return
	}
	if h.layoutPath != "" {
		if err := layout.SaveLayout(h.layoutPath, l); err != nil {
			log.Printf("ccu_handler: save layout: %v", err)
		}
	}
	h.events.LayoutChanged()
	h.orchestrator.RetriggerFTSSteps()
}

func (h *CCUHandler) HandleSetConfig(raw json.RawMessage) {
	var cfg struct {
		MaxParallelOrders int     `json:"maxParallelOrders"`
		ChargedAbovePct   float64 `json:"chargedAbovePct"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Printf("ccu_handler: decode config: %v", err)
		return
	}
	if cfg.MaxParallelOrders > 0 {
		h.orchestrator.SetMaxParallelOrders(cfg.MaxParallelOrders)
	}
	if cfg.ChargedAbovePct > 0 {
		h.chargedAbovePct = cfg.ChargedAbovePct
	}
}

func (h *CCUHandler) HandleSetCalibration(req *protocol.CalibrationRequest) {
	if _, ok := h.modules.Get(req.SerialNumber); !ok {
		log.Printf("ccu_handler: calibration for unknown module %s", req.SerialNumber)
		return
	}
	if err := h.commands.SendModuleInstantAction(req.SerialNumber, protocol.CommandCalibrate, nil); err != nil {
		log.Printf("ccu_handler: send calibration to %s: %v", req.SerialNumber, err)
	}
}

func (h *CCUHandler) HandleSetPark(req *protocol.ParkRequest) {
	serials := req.SerialNumbers
	if len(serials) == 0 {
		for _, d := range h.vehicles.AllPaired() {
			if d.Available == protocol.AvailabilityReady && d.AssignedOrderID == "" {
				serials = append(serials, d.SerialNumber)
			}
		}
	}
	for _, serial := range serials {
		if err := h.commands.SendFtsInstantAction(serial, protocol.CommandPark, nil); err != nil {
			log.Printf("ccu_handler: send park to %s: %v", serial, err)
		}
	}
}

// HandleSetReset clears every volatile factory state and tells all devices
// to reset. Persistent history (completed orders, audit) survives.
func (h *CCUHandler) HandleSetReset() {
	h.orchestrator.Reset()
	h.stock.Reset()
	h.bays.Reset()
	for _, d := range h.vehicles.AllPaired() {
		h.graph.ReleaseAllNodes(d.SerialNumber)
		h.commands.SendFtsInstantAction(d.SerialNumber, protocol.CommandReset, nil)
	}
	for _, d := range h.modules.AllPaired() {
		h.commands.SendModuleInstantAction(d.SerialNumber, protocol.CommandReset, nil)
	}
	h.vehicles.Reset()
	h.modules.Reset()
	h.events.FactoryReset()
	log.Printf("ccu_handler: factory reset executed")
}

// HandleSetResetOrder retries one errored or cancelled order.
func (h *CCUHandler) HandleSetResetOrder(req *protocol.ResetOrderRequest) {
	if req.OrderID == "" {
		log.Printf("ccu_handler: reset-order without orderId")
		return
	}
	h.orchestrator.ResetOrder(req.OrderID)
}

package engine

import (
	"log"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/config"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/messaging"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/pairing"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/protocol"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/snapshot"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/stock"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	MsgClient  *messaging.Client
	Mirror     *snapshot.Mirror
	Graph      *layout.Graph
	Flows      *orders.Flows
	LogFunc    LogFunc
}

// Engine owns every factory service and the event wiring between them.
// It is the single composition point: nothing in the tree holds global
// state, so tests build a fresh Engine (or the services directly) and
// throw it away.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	msgClient  *messaging.Client
	mirror     *snapshot.Mirror
	graph      *layout.Graph
	flows      *orders.Flows

	Modules      *pairing.Registry
	Vehicles     *pairing.Registry
	Stock        *stock.Service
	Bays         *stock.LoadingBays
	Orchestrator *orders.Orchestrator
	Events       *EventBus

	handler  *messaging.CCUHandler
	ingestor *protocol.Ingestor

	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		msgClient:  c.MsgClient,
		mirror:     c.Mirror,
		graph:      c.Graph,
		flows:      c.Flows,
		Modules:    pairing.NewRegistry(protocol.DeviceModule),
		Vehicles:   pairing.NewRegistry(protocol.DeviceFTS),
		Stock:      stock.NewService(),
		Bays:       stock.NewLoadingBays(),
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}

	commands := messaging.NewCommandSender(e.msgClient)
	e.Orchestrator = orders.NewOrchestrator(
		orders.Config{
			MaxParallelOrders: e.cfg.Factory.MaxParallelOrders,
			ChargeBelowPct:    e.cfg.Factory.ChargeBelowPct,
		},
		e.flows, e.graph, e.Modules, e.Vehicles, e.Stock, e.Bays,
		commands, &orderEmitter{bus: e.Events},
	)

	e.handler = messaging.NewCCUHandler(messaging.CCUHandlerConfig{
		Client:          e.msgClient,
		Commands:        commands,
		Orchestrator:    e.Orchestrator,
		Modules:         e.Modules,
		Vehicles:        e.Vehicles,
		Stock:           e.Stock,
		Bays:            e.Bays,
		Graph:           e.graph,
		LayoutPath:      e.cfg.Factory.LayoutPath,
		ChargedAbovePct: e.cfg.Factory.ChargedAbovePct,
		Events:          &handlerEvents{bus: e.Events},
	})
	e.ingestor = protocol.NewIngestor(e.handler)
	return e
}

// Start wires event handlers and begins the connection health loop.
func (e *Engine) Start() {
	e.wireEventHandlers()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// SubscribeAll attaches the ingestor to every CCU topic filter.
func (e *Engine) SubscribeAll() error {
	for _, sub := range protocol.Subscriptions() {
		if err := e.msgClient.Subscribe(sub.Topic, sub.QoS, e.ingestor.HandleRaw); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all volatile factory state. The database is untouched.
func (e *Engine) Reset() {
	e.Orchestrator.Reset()
	e.Stock.Reset()
	e.Bays.Reset()
	e.Modules.Reset()
	e.Vehicles.Reset()
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) ConfigPath() string           { return e.configPath }
func (e *Engine) Graph() *layout.Graph         { return e.graph }
func (e *Engine) Mirror() *snapshot.Mirror     { return e.mirror }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }
func (e *Engine) Ingestor() *protocol.Ingestor { return e.ingestor }

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

package protocol

import (
	"encoding/json"
	"log"
	"time"
)

// MessageHandler defines callbacks for all inbound CCU message types.
// Embed NoOpHandler and override only the methods you need.
type MessageHandler interface {
	HandleOrderRequest(req *OrderRequest)
	HandleOrderCancel(req *CancelRequest)

	HandleModuleState(serial string, st *ModuleState)
	HandleModuleConnection(serial string, cs *ConnectionState)
	HandleModuleFactsheet(serial string, fs *Factsheet)

	HandleFtsState(serial string, st *FtsState)
	HandleFtsConnection(serial string, cs *ConnectionState)
	HandleFtsFactsheet(serial string, fs *Factsheet)

	HandleSetLayout(raw json.RawMessage)
	HandleSetConfig(raw json.RawMessage)
	HandleSetCalibration(req *CalibrationRequest)
	HandleSetPark(req *ParkRequest)
	HandleSetReset()
	HandleSetResetOrder(req *ResetOrderRequest)
}

// StaleAfter is the age beyond which an inbound state report is dropped.
// State topics are high-frequency and loss-tolerant; acting on a stale
// report can undo a newer one already applied.
const StaleAfter = 90 * time.Second

// Ingestor routes raw bus messages by topic, decodes them, and dispatches
// to a MessageHandler. Malformed messages are logged and dropped without
// mutating any state.
type Ingestor struct {
	handler MessageHandler
}

func NewIngestor(handler MessageHandler) *Ingestor {
	return &Ingestor{handler: handler}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(topic string, data []byte) {
	kind, serial := ParseTopic(topic)
	switch kind {
	case KindOrderRequest:
		var req OrderRequest
		if !decode(topic, data, &req) {
			return
		}
		ing.handler.HandleOrderRequest(&req)
	case KindOrderCancel:
		var req CancelRequest
		if !decode(topic, data, &req) {
			return
		}
		ing.handler.HandleOrderCancel(&req)
	case KindModuleState:
		var st ModuleState
		if !decode(topic, data, &st) || stale(topic, st.Timestamp) {
			return
		}
		ing.handler.HandleModuleState(serial, &st)
	case KindModuleConnection:
		var cs ConnectionState
		if !decode(topic, data, &cs) {
			return
		}
		ing.handler.HandleModuleConnection(serial, &cs)
	case KindModuleFactsheet:
		var fs Factsheet
		if !decode(topic, data, &fs) {
			return
		}
		ing.handler.HandleModuleFactsheet(serial, &fs)
	case KindFtsState:
		var st FtsState
		if !decode(topic, data, &st) || stale(topic, st.Timestamp) {
			return
		}
		ing.handler.HandleFtsState(serial, &st)
	case KindFtsConnection:
		var cs ConnectionState
		if !decode(topic, data, &cs) {
			return
		}
		ing.handler.HandleFtsConnection(serial, &cs)
	case KindFtsFactsheet:
		var fs Factsheet
		if !decode(topic, data, &fs) {
			return
		}
		ing.handler.HandleFtsFactsheet(serial, &fs)
	case KindSetLayout:
		ing.handler.HandleSetLayout(json.RawMessage(data))
	case KindSetConfig:
		ing.handler.HandleSetConfig(json.RawMessage(data))
	case KindSetCalibration:
		var req CalibrationRequest
		if !decode(topic, data, &req) {
			return
		}
		ing.handler.HandleSetCalibration(&req)
	case KindSetPark:
		var req ParkRequest
		if !decode(topic, data, &req) {
			return
		}
		ing.handler.HandleSetPark(&req)
	case KindSetReset:
		ing.handler.HandleSetReset()
	case KindSetResetOrder:
		var req ResetOrderRequest
		if !decode(topic, data, &req) {
			return
		}
		ing.handler.HandleSetResetOrder(&req)
	default:
		log.Printf("protocol: unhandled topic: %s", topic)
	}
}

func decode(topic string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("protocol: decode %s: %v", topic, err)
		return false
	}
	return true
}

func stale(topic string, ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	if time.Since(ts) > StaleAfter {
		log.Printf("protocol: dropping stale message on %s (age %s)", topic, time.Since(ts).Truncate(time.Second))
		return true
	}
	return false
}

package protocol

import "encoding/json"

// NoOpHandler implements MessageHandler with no-op methods.
// Embed this and override only the methods you need.
type NoOpHandler struct{}

func (NoOpHandler) HandleOrderRequest(*OrderRequest)                {}
func (NoOpHandler) HandleOrderCancel(*CancelRequest)                {}
func (NoOpHandler) HandleModuleState(string, *ModuleState)          {}
func (NoOpHandler) HandleModuleConnection(string, *ConnectionState) {}
func (NoOpHandler) HandleModuleFactsheet(string, *Factsheet)        {}
func (NoOpHandler) HandleFtsState(string, *FtsState)                {}
func (NoOpHandler) HandleFtsConnection(string, *ConnectionState)    {}
func (NoOpHandler) HandleFtsFactsheet(string, *Factsheet)           {}
func (NoOpHandler) HandleSetLayout(json.RawMessage)                 {}
func (NoOpHandler) HandleSetConfig(json.RawMessage)                 {}
func (NoOpHandler) HandleSetCalibration(*CalibrationRequest)        {}
func (NoOpHandler) HandleSetPark(*ParkRequest)                      {}
func (NoOpHandler) HandleSetReset()                                 {}
func (NoOpHandler) HandleSetResetOrder(*ResetOrderRequest)          {}

// Compile-time check that NoOpHandler implements MessageHandler.
var _ MessageHandler = NoOpHandler{}

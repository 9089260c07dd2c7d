package protocol

import (
	"encoding/json"
	"time"
)

// --- Inbound: client -> CCU ---

// OrderRequest asks the CCU to run a production or storage order.
type OrderRequest struct {
	OrderType    OrderType `json:"orderType"`
	Type         Workpiece `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	WorkpieceID  string    `json:"workpieceId,omitempty"`
	SimulationID string    `json:"simulationId,omitempty"`
}

// CancelRequest removes enqueued orders from the queue.
type CancelRequest struct {
	OrderIDs []string `json:"orderIds"`
}

// --- Inbound: device -> CCU ---

// Load is one physical workpiece on a device (warehouse position or FTS bay).
type Load struct {
	LoadType     Workpiece `json:"loadType"`
	LoadPosition string    `json:"loadPosition"`
	LoadID       string    `json:"loadId,omitempty"` // owning order, if any
}

// ActionState reports the progress of a dispatched action.
type ActionState struct {
	ID      string            `json:"id"`
	Command Command           `json:"command"`
	State   ActionResultState `json:"state"`
	Result  QualityResult     `json:"result,omitempty"`
}

// DeviceError is a device-reported fault.
type DeviceError struct {
	ErrorType string    `json:"errorType"`
	Level     string    `json:"errorLevel,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ModuleState is the periodic state report of a processing module.
type ModuleState struct {
	SerialNumber string        `json:"serialNumber"`
	ModuleType   ModuleType    `json:"moduleType"`
	OrderID      string        `json:"orderId,omitempty"`
	ActionState  *ActionState  `json:"actionState,omitempty"`
	Loads        []Load        `json:"loads,omitempty"`
	Errors       []DeviceError `json:"errors,omitempty"`
	Paused       bool          `json:"paused"`
	Timestamp    time.Time     `json:"timestamp"`
}

// BatteryState is the FTS battery snapshot.
type BatteryState struct {
	Percentage float64 `json:"percentage"`
	Charging   bool    `json:"charging"`
}

// FtsState is the periodic state report of a transport vehicle.
type FtsState struct {
	SerialNumber string        `json:"serialNumber"`
	OrderID      string        `json:"orderId,omitempty"`
	LastNodeID   string        `json:"lastNodeId,omitempty"`
	Driving      bool          `json:"driving"`
	Paused       bool          `json:"paused"`
	Battery      BatteryState  `json:"batteryState"`
	ActionState  *ActionState  `json:"actionState,omitempty"`
	Loads        []Load        `json:"loads,omitempty"`
	Errors       []DeviceError `json:"errors,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ConnectionState is published on a device's connection topic (retained by
// the broker, last-will on disconnect).
type ConnectionState struct {
	SerialNumber    string    `json:"serialNumber"`
	ConnectionState ConnState `json:"connectionState"`
	Timestamp       time.Time `json:"timestamp"`
}

// LoadSpecification describes a device's carrying/storage capacity.
type LoadSpecification struct {
	LoadPositions []string `json:"loadPositions,omitempty"`
}

// Factsheet is a device's capability self-description, published once on
// pairing.
type Factsheet struct {
	SerialNumber      string            `json:"serialNumber"`
	DeviceType        DeviceType        `json:"deviceType"`
	ModuleType        ModuleType        `json:"moduleType,omitempty"`
	Version           string            `json:"version,omitempty"`
	LoadSpecification LoadSpecification `json:"loadSpecification"`
	Timestamp         time.Time         `json:"timestamp"`
}

// --- Outbound: CCU -> client ---

// OrderResponse confirms acceptance of an order request.
type OrderResponse struct {
	OrderID   string     `json:"orderId"`
	OrderType OrderType  `json:"orderType"`
	Type      Workpiece  `json:"type"`
	State     OrderState `json:"state"`
	Timestamp time.Time  `json:"timestamp"`
}

// --- Outbound: CCU -> device ---

// NavigationOrder commands an FTS to traverse a node sequence.
type NavigationOrder struct {
	OrderID      string    `json:"orderId"`
	ActionID     string    `json:"actionId"`
	SerialNumber string    `json:"serialNumber"`
	Source       string    `json:"sourceNodeId"`
	Target       string    `json:"targetNodeId"`
	Path         []string  `json:"path"`
	Distance     float64   `json:"distance"`
	Timestamp    time.Time `json:"timestamp"`
}

// ManufactureOrder commands a module to execute one manufacturing action.
type ManufactureOrder struct {
	OrderID      string    `json:"orderId"`
	ActionID     string    `json:"actionId"`
	SerialNumber string    `json:"serialNumber"`
	Command      Command   `json:"command"`
	Type         Workpiece `json:"type,omitempty"`
	WorkpieceID  string    `json:"workpieceId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// InstantActionItem is one out-of-band action (reset, park, calibrate).
type InstantActionItem struct {
	ID       string            `json:"id"`
	Command  Command           `json:"command"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InstantAction carries out-of-band actions to a device.
type InstantAction struct {
	SerialNumber string              `json:"serialNumber"`
	Actions      []InstantActionItem `json:"actions"`
	Timestamp    time.Time           `json:"timestamp"`
}

// --- Admin payloads ---

// CalibrationRequest targets one module for calibration.
type CalibrationRequest struct {
	SerialNumber string `json:"serialNumber"`
	Command      string `json:"command,omitempty"`
}

// ParkRequest sends the fleet to parking positions.
type ParkRequest struct {
	SerialNumbers []string `json:"serialNumbers,omitempty"` // empty: all idle FTS
}

// ResetOrderRequest retries one errored or cancelled order.
type ResetOrderRequest struct {
	OrderID string `json:"orderId"`
}

// Encode marshals any outbound payload to JSON.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

package protocol

// Workpiece is a workpiece color/type handled by the factory.
type Workpiece string

const (
	WorkpieceRed   Workpiece = "RED"
	WorkpieceWhite Workpiece = "WHITE"
	WorkpieceBlue  Workpiece = "BLUE"
)

// ModuleType identifies a class of fixed processing module.
type ModuleType string

const (
	ModuleHBW   ModuleType = "HBW" // high-bay warehouse
	ModuleDrill ModuleType = "DRILL"
	ModuleMill  ModuleType = "MILL"
	ModuleAIQS  ModuleType = "AIQS" // quality inspection
	ModuleDPS   ModuleType = "DPS"  // delivery/pickup station
	ModuleCHRG  ModuleType = "CHRG" // FTS charger
)

// DeviceType distinguishes fixed modules from transport vehicles.
type DeviceType string

const (
	DeviceModule DeviceType = "MODULE"
	DeviceFTS    DeviceType = "FTS"
)

// Availability is the scheduling state of a paired device.
type Availability string

const (
	AvailabilityReady   Availability = "READY"
	AvailabilityBusy    Availability = "BUSY"
	AvailabilityBlocked Availability = "BLOCKED"
)

// OrderState is the lifecycle state of an order or production step.
type OrderState string

const (
	StateEnqueued   OrderState = "ENQUEUED"
	StateInProgress OrderState = "IN_PROGRESS"
	StateFinished   OrderState = "FINISHED"
	StateError      OrderState = "ERROR"
	StateCancelled  OrderState = "CANCELLED"
)

// Command is an action a device executes.
type Command string

const (
	CommandPick         Command = "PICK"
	CommandDrop         Command = "DROP"
	CommandDrill        Command = "DRILL"
	CommandMill         Command = "MILL"
	CommandCheckQuality Command = "CHECK_QUALITY"
	CommandStore        Command = "STORE"
	CommandNavigate     Command = "NAVIGATE"
	CommandCharge       Command = "CHARGE"
	CommandPark         Command = "PARK"
	CommandCalibrate    Command = "CALIBRATE"
	CommandReset        Command = "RESET"
)

// QualityResult is the outcome reported by an AIQS check.
type QualityResult string

const (
	QualityPassed QualityResult = "PASSED"
	QualityFailed QualityResult = "FAILED"
)

// ActionResultState is the terminal state a device reports for an action.
type ActionResultState string

const (
	ActionRunning  ActionResultState = "RUNNING"
	ActionFinished ActionResultState = "FINISHED"
	ActionFailed   ActionResultState = "FAILED"
)

// ConnState is the announced connectivity of a device.
type ConnState string

const (
	ConnOnline           ConnState = "ONLINE"
	ConnOffline          ConnState = "OFFLINE"
	ConnConnectionBroken ConnState = "CONNECTIONBROKEN"
)

// OrderType distinguishes production from storage orders.
type OrderType string

const (
	OrderTypeProduction OrderType = "PRODUCTION"
	OrderTypeStorage    OrderType = "STORAGE"
)

package domain

// Well-known device names. Any lowercase name configured in devices[] is valid.
const (
	DeviceLight = "light"
	DeviceFan   = "fan"
	DeviceAC    = "ac"
)

const (
	ActionOn  = "on"
	ActionOff = "off"
)

type DeviceKind string

const (
	// KindBinary devices map "on" to a high level and anything else to low.
	KindBinary DeviceKind = "binary"
	// KindClimate devices keep a pass-through setpoint such as "26C".
	KindClimate DeviceKind = "climate"
)

// DeviceSpec describes one configured actuator and how to reach it.
type DeviceSpec struct {
	Name    string
	Kind    DeviceKind
	Driver  string
	Address string
}

type ActuatorState struct {
	Device    string     `json:"device"`
	Kind      DeviceKind `json:"kind"`
	Line      string     `json:"line"`
	Level     bool       `json:"level"`
	Setpoint  string     `json:"setpoint,omitempty"`
	Simulated bool       `json:"simulated"`
}

// Applied is the outcome of dispatching one action to the registry.
type Applied struct {
	State   ActuatorState `json:"state"`
	NoOp    bool          `json:"noop"`
	Changed bool          `json:"changed"`
}

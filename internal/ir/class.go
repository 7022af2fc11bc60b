package ir

// TypeClass is the classification of one call argument.
type TypeClass int

const (
	ClassOther TypeClass = iota
	ClassDeviceContainer
	ClassDevicePointer
	ClassHostContainer
	ClassDependentType
)

var typeClassNames = [...]string{
	ClassOther:           "other",
	ClassDeviceContainer: "device_container",
	ClassDevicePointer:   "device_pointer",
	ClassHostContainer:   "host_container",
	ClassDependentType:   "dependent_type",
}

// String returns the snake_case name of the class.
func (c TypeClass) String() string {
	if int(c) < 0 || int(c) >= len(typeClassNames) {
		return "unknown"
	}
	return typeClassNames[c]
}

// DeviceResident reports whether an argument of this class is presumed to
// live in device memory. DependentType counts as device resident.
func (c TypeClass) DeviceResident() bool {
	switch c {
	case ClassDeviceContainer, ClassDevicePointer, ClassDependentType:
		return true
	default:
		return false
	}
}

// ArgumentType is the classification result for one argument together with
// the canonical type string it was derived from.
type ArgumentType struct {
	Class     TypeClass `json:"class"`
	Canonical string    `json:"canonical"`
}

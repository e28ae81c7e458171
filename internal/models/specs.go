package models

// Spec keys, in display order
const (
	SpecDisplay    = "display"
	SpecProcessor  = "processor"
	SpecMemory     = "memory"
	SpecStorage    = "storage"
	SpecCamera     = "camera"
	SpecBattery    = "battery"
	SpecOS         = "os"
	SpecColor      = "color"
	SpecCarrier    = "carrier"
	SpecLockStatus = "lockStatus"
	SpecGrade      = "grade"
)

var specKeys = []string{
	SpecDisplay, SpecProcessor, SpecMemory, SpecStorage, SpecCamera, SpecBattery,
	SpecOS, SpecColor, SpecCarrier, SpecLockStatus, SpecGrade,
}

// ProductSpecs holds a product's technical attributes. An empty field is absent.
type ProductSpecs struct {
	Display    string `json:"display,omitempty"`
	Processor  string `json:"processor,omitempty"`
	Memory     string `json:"memory,omitempty"`
	Storage    string `json:"storage,omitempty"`
	Camera     string `json:"camera,omitempty"`
	Battery    string `json:"battery,omitempty"`
	OS         string `json:"os,omitempty"`
	Color      string `json:"color,omitempty"`
	Carrier    string `json:"carrier,omitempty"`
	LockStatus string `json:"lockStatus,omitempty"`
	Grade      string `json:"grade,omitempty"`
}

// SpecKeys returns every known spec key in display order
func SpecKeys() []string {
	out := make([]string, len(specKeys))
	copy(out, specKeys)
	return out
}

// IsSpecKey reports whether key names a ProductSpecs field
func IsSpecKey(key string) bool {
	return (&ProductSpecs{}).field(key) != nil
}

func (s *ProductSpecs) field(key string) *string {
	switch key {
	case SpecDisplay:
		return &s.Display
	case SpecProcessor:
		return &s.Processor
	case SpecMemory:
		return &s.Memory
	case SpecStorage:
		return &s.Storage
	case SpecCamera:
		return &s.Camera
	case SpecBattery:
		return &s.Battery
	case SpecOS:
		return &s.OS
	case SpecColor:
		return &s.Color
	case SpecCarrier:
		return &s.Carrier
	case SpecLockStatus:
		return &s.LockStatus
	case SpecGrade:
		return &s.Grade
	}
	return nil
}

// Get returns the value for key and whether it is present
func (s ProductSpecs) Get(key string) (string, bool) {
	f := s.field(key)
	if f == nil || *f == "" {
		return "", false
	}
	return *f, true
}

// Set assigns key; unknown keys are ignored and reported as false
func (s *ProductSpecs) Set(key, value string) bool {
	f := s.field(key)
	if f == nil {
		return false
	}
	*f = value
	return true
}

// Keys returns the present keys in display order
func (s ProductSpecs) Keys() []string {
	var out []string
	for _, k := range specKeys {
		if _, ok := s.Get(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// Missing returns the absent keys in display order
func (s ProductSpecs) Missing() []string {
	var out []string
	for _, k := range specKeys {
		if _, ok := s.Get(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

// FillMissing copies values from other into absent keys only, returning the keys it filled
func (s *ProductSpecs) FillMissing(other ProductSpecs) []string {
	var filled []string
	for _, k := range specKeys {
		if _, ok := s.Get(k); ok {
			continue
		}
		if v, ok := other.Get(k); ok {
			s.Set(k, v)
			filled = append(filled, k)
		}
	}
	return filled
}

// IsEmpty reports whether no key is present
func (s ProductSpecs) IsEmpty() bool {
	return len(s.Keys()) == 0
}

// Map returns the present keys as a map
func (s ProductSpecs) Map() map[string]string {
	out := make(map[string]string)
	for _, k := range s.Keys() {
		out[k], _ = s.Get(k)
	}
	return out
}

// SpecsFromMap builds specs from a loosely keyed map, ignoring unknown keys
func SpecsFromMap(m map[string]string) ProductSpecs {
	var s ProductSpecs
	for k, v := range m {
		s.Set(k, v)
	}
	return s
}

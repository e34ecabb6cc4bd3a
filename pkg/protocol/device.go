package protocol

// DeviceType classifies the platform a device runs on.
type DeviceType string

const (
	DeviceAndroid DeviceType = "android"
	DeviceIOS     DeviceType = "ios"
	DeviceWindows DeviceType = "windows"
	DeviceMacOS   DeviceType = "macos"
	DeviceLinux   DeviceType = "linux"
	DeviceIoT     DeviceType = "iot"
	DeviceBrowser DeviceType = "browser"
	DeviceCustom  DeviceType = "custom"
)

// Common capability names advertised during registration.
const (
	CapabilityScreen     = "screen"
	CapabilityTouch      = "touch"
	CapabilityKeyboard   = "keyboard"
	CapabilityCamera     = "camera"
	CapabilityGPS        = "gps"
	CapabilityBluetooth  = "bluetooth"
	CapabilityMicrophone = "microphone"
	CapabilityShell      = "shell"
)

// DeviceInfo is the identity and capability set a device announces when it
// registers. It is sent verbatim as the registration payload.
type DeviceInfo struct {
	DeviceID     string     `json:"device_id" msgpack:"device_id"`
	DeviceType   DeviceType `json:"device_type" msgpack:"device_type"`
	DeviceName   string     `json:"device_name" msgpack:"device_name"`
	Manufacturer string     `json:"manufacturer" msgpack:"manufacturer"`
	Model        string     `json:"model" msgpack:"model"`
	OSVersion    string     `json:"os_version" msgpack:"os_version"`
	AppVersion   string     `json:"app_version" msgpack:"app_version"`
	Capabilities []string   `json:"capabilities" msgpack:"capabilities"`
	Groups       []string   `json:"groups" msgpack:"groups"`
	Tags         []string   `json:"tags" msgpack:"tags"`
}

// HasCapability reports whether the device advertises name.
func (d DeviceInfo) HasCapability(name string) bool {
	for _, c := range d.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// ToMap flattens the info into a registration payload. Nil slices are
// emitted as empty arrays so peers never see null.
func (d DeviceInfo) ToMap() map[string]any {
	return map[string]any{
		"device_id":    d.DeviceID,
		"device_type":  string(d.DeviceType),
		"device_name":  d.DeviceName,
		"manufacturer": d.Manufacturer,
		"model":        d.Model,
		"os_version":   d.OSVersion,
		"app_version":  d.AppVersion,
		"capabilities": nonNil(d.Capabilities),
		"groups":       nonNil(d.Groups),
		"tags":         nonNil(d.Tags),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Rect is a screen region given by its edges.
type Rect struct {
	Left   int `json:"left" msgpack:"left"`
	Top    int `json:"top" msgpack:"top"`
	Right  int `json:"right" msgpack:"right"`
	Bottom int `json:"bottom" msgpack:"bottom"`
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Center returns the midpoint of the rectangle, rounding toward the top-left.
func (r Rect) Center() Point {
	return Point{
		X: r.Left + r.Width()/2,
		Y: r.Top + r.Height()/2,
	}
}

// UIElement is one node of a captured UI tree.
type UIElement struct {
	ElementID   string      `json:"element_id,omitempty" msgpack:"element_id,omitempty"`
	ClassName   string      `json:"class_name,omitempty" msgpack:"class_name,omitempty"`
	Text        string      `json:"text,omitempty" msgpack:"text,omitempty"`
	ContentDesc string      `json:"content_desc,omitempty" msgpack:"content_desc,omitempty"`
	ResourceID  string      `json:"resource_id,omitempty" msgpack:"resource_id,omitempty"`
	Bounds      Rect        `json:"bounds" msgpack:"bounds"`
	Clickable   bool        `json:"clickable" msgpack:"clickable"`
	Scrollable  bool        `json:"scrollable" msgpack:"scrollable"`
	Editable    bool        `json:"editable" msgpack:"editable"`
	Enabled     bool        `json:"enabled" msgpack:"enabled"`
	Children    []UIElement `json:"children,omitempty" msgpack:"children,omitempty"`
}

// Find returns the first element in the subtree (depth first, including e)
// matching pred.
func (e UIElement) Find(pred func(UIElement) bool) (UIElement, bool) {
	if pred(e) {
		return e, true
	}
	for _, child := range e.Children {
		if found, ok := child.Find(pred); ok {
			return found, true
		}
	}
	return UIElement{}, false
}

// Count returns the number of elements in the subtree including e.
func (e UIElement) Count() int {
	n := 1
	for _, child := range e.Children {
		n += child.Count()
	}
	return n
}

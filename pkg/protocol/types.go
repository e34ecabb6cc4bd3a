// Package protocol defines the device link protocol: the canonical envelope
// exchanged between devices and the gateway, the reduced wire envelope used by
// the transport client, and the legacy envelope kept for older peers.
package protocol

// Version is the canonical protocol epoch. Peers reject envelopes carrying a
// different version.
const Version = "3.0"

// MessageType is the closed set of canonical envelope types.
type MessageType string

const (
	// Device lifecycle
	TypeDeviceRegister     MessageType = "device_register"
	TypeDeviceRegisterAck  MessageType = "device_register_ack"
	TypeDeviceUnregister   MessageType = "device_unregister"
	TypeHeartbeat          MessageType = "heartbeat"
	TypeHeartbeatAck       MessageType = "heartbeat_ack"
	TypeDeviceStatus       MessageType = "device_status"
	TypeDeviceCapabilities MessageType = "device_capabilities"

	// Task scheduling
	TypeTaskSubmit   MessageType = "task_submit"
	TypeTaskAssign   MessageType = "task_assign"
	TypeTaskStatus   MessageType = "task_status"
	TypeTaskResult   MessageType = "task_result"
	TypeTaskCancel   MessageType = "task_cancel"
	TypeTaskProgress MessageType = "task_progress"
	TypeTaskEnd      MessageType = "task_end"

	// Command execution
	TypeCommand       MessageType = "command"
	TypeCommandResult MessageType = "command_result"
	TypeCommandBatch  MessageType = "command_batch"

	// GUI automation
	TypeGUIClick         MessageType = "gui_click"
	TypeGUISwipe         MessageType = "gui_swipe"
	TypeGUIInput         MessageType = "gui_input"
	TypeGUIScroll        MessageType = "gui_scroll"
	TypeGUIScreenshot    MessageType = "gui_screenshot"
	TypeGUIElementQuery  MessageType = "gui_element_query"
	TypeGUIElementWait   MessageType = "gui_element_wait"
	TypeGUIScreenContent MessageType = "gui_screen_content"

	// Screen and media streaming
	TypeScreenCapture MessageType = "screen_capture"
	TypeStreamStart   MessageType = "stream_start"
	TypeStreamStop    MessageType = "stream_stop"
	TypeStreamData    MessageType = "stream_data"

	// File operations
	TypeFileRead     MessageType = "file_read"
	TypeFileWrite    MessageType = "file_write"
	TypeFileDelete   MessageType = "file_delete"
	TypeFileList     MessageType = "file_list"
	TypeFileTransfer MessageType = "file_transfer"

	// Process management
	TypeProcessStart  MessageType = "process_start"
	TypeProcessStop   MessageType = "process_stop"
	TypeProcessList   MessageType = "process_list"
	TypeProcessStatus MessageType = "process_status"

	// Coordination
	TypeCoordSync      MessageType = "coord_sync"
	TypeCoordBroadcast MessageType = "coord_broadcast"
	TypeCoordLock      MessageType = "coord_lock"
	TypeCoordUnlock    MessageType = "coord_unlock"

	// Error reporting
	TypeError         MessageType = "error"
	TypeErrorRecovery MessageType = "error_recovery"
)

// categoryUnknown is reported for types outside the closed set.
const categoryUnknown = "unknown"

var messageTypeCategory = map[MessageType]string{
	TypeDeviceRegister:     "device",
	TypeDeviceRegisterAck:  "device",
	TypeDeviceUnregister:   "device",
	TypeHeartbeat:          "device",
	TypeHeartbeatAck:       "device",
	TypeDeviceStatus:       "device",
	TypeDeviceCapabilities: "device",

	TypeTaskSubmit:   "task",
	TypeTaskAssign:   "task",
	TypeTaskStatus:   "task",
	TypeTaskResult:   "task",
	TypeTaskCancel:   "task",
	TypeTaskProgress: "task",
	TypeTaskEnd:      "task",

	TypeCommand:       "command",
	TypeCommandResult: "command",
	TypeCommandBatch:  "command",

	TypeGUIClick:         "gui",
	TypeGUISwipe:         "gui",
	TypeGUIInput:         "gui",
	TypeGUIScroll:        "gui",
	TypeGUIScreenshot:    "gui",
	TypeGUIElementQuery:  "gui",
	TypeGUIElementWait:   "gui",
	TypeGUIScreenContent: "gui",

	TypeScreenCapture: "stream",
	TypeStreamStart:   "stream",
	TypeStreamStop:    "stream",
	TypeStreamData:    "stream",

	TypeFileRead:     "file",
	TypeFileWrite:    "file",
	TypeFileDelete:   "file",
	TypeFileList:     "file",
	TypeFileTransfer: "file",

	TypeProcessStart:  "process",
	TypeProcessStop:   "process",
	TypeProcessList:   "process",
	TypeProcessStatus: "process",

	TypeCoordSync:      "coordination",
	TypeCoordBroadcast: "coordination",
	TypeCoordLock:      "coordination",
	TypeCoordUnlock:    "coordination",

	TypeError:         "error",
	TypeErrorRecovery: "error",
}

func (t MessageType) String() string {
	return string(t)
}

// IsKnown reports whether t belongs to the closed set of canonical types.
// Receivers route unknown types to their default path instead of failing.
func (t MessageType) IsKnown() bool {
	_, ok := messageTypeCategory[t]
	return ok
}

// Category returns the concern a type belongs to ("device", "task", "gui", ...).
func (t MessageType) Category() string {
	if c, ok := messageTypeCategory[t]; ok {
		return c
	}
	return categoryUnknown
}

// TaskStatus is the lifecycle state of a task carried in task envelopes.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// ResultStatus is the outcome of a single command.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
	ResultSkipped ResultStatus = "skipped"
	ResultTimeout ResultStatus = "timeout"
	ResultNone    ResultStatus = "none"
)

// RequiresError reports whether a result with this status must carry an error.
func (s ResultStatus) RequiresError() bool {
	return s == ResultFailure || s == ResultTimeout
}

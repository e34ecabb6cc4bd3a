package protocol

import (
	"fmt"
	"strings"
)

// Validate checks the invariants a well-formed canonical envelope must hold.
// Unknown types are reported so senders never emit them; receivers should
// route unknown types to their default path rather than calling Validate.
func (e *MessageEnvelope) Validate() error {
	var errs []string

	if e.Version != Version {
		errs = append(errs, fmt.Sprintf("version must be %q", Version))
	}
	if e.MessageID == "" {
		errs = append(errs, "message_id is required")
	}
	if !e.Type.IsKnown() {
		errs = append(errs, fmt.Sprintf("unknown message type %q", e.Type))
	}
	if e.DeviceID == "" {
		errs = append(errs, "device_id is required")
	}
	if e.Timestamp <= 0 {
		errs = append(errs, "timestamp must be positive")
	}

	switch e.Type {
	case TypeTaskAssign:
		if e.TaskID == "" {
			errs = append(errs, "task_assign requires task_id")
		}
		if len(e.Commands) == 0 {
			errs = append(errs, "task_assign requires commands")
		}
	case TypeError:
		if e.Error == "" {
			errs = append(errs, "error envelope requires error text")
		}
	}

	for i, c := range e.Commands {
		if c.CommandID == "" {
			errs = append(errs, fmt.Sprintf("command %d: command_id is required", i))
		}
		if c.ToolName == "" {
			errs = append(errs, fmt.Sprintf("command %d: tool_name is required", i))
		}
		if c.Timeout <= 0 {
			errs = append(errs, fmt.Sprintf("command %d: timeout must be positive", i))
		}
	}

	for i, r := range e.Results {
		if r.CommandID == "" {
			errs = append(errs, fmt.Sprintf("result %d: command_id is required", i))
		}
		if r.Status.RequiresError() && r.Error == "" {
			errs = append(errs, fmt.Sprintf("result %d: status %s requires error", i, r.Status))
		}
		if !r.Status.RequiresError() && r.Error != "" {
			errs = append(errs, fmt.Sprintf("result %d: status %s must not carry error", i, r.Status))
		}
		if r.ExecutionTime < 0 {
			errs = append(errs, fmt.Sprintf("result %d: execution_time must be non-negative", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid envelope: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MatchResults checks that every result answers one of the issued commands.
func MatchResults(commands []Command, results []CommandResult) error {
	issued := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		issued[c.CommandID] = struct{}{}
	}
	for _, r := range results {
		if _, ok := issued[r.CommandID]; !ok {
			return fmt.Errorf("result for unknown command %q", r.CommandID)
		}
	}
	return nil
}

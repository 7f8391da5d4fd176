package servicing

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Logger is the minimal printf-style logging surface phases rely on.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress within a phase
	Progress(phase string, current, total int)
}

// Event represents a structured servicing event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "mount", "packages")
	Message   string            // Human-readable message
	Resource  string            // Package name, hive alias, path if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of servicing event.
type EventType string

const (
	// EventPhaseStarted indicates a servicing phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a servicing phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a servicing phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventPackageRemoved indicates a provisioned package was removed.
	EventPackageRemoved EventType = "package.removed"
	// EventPatternUnmatched indicates a removal pattern matched nothing.
	EventPatternUnmatched EventType = "pattern.unmatched"

	// EventHiveLoaded indicates an offline hive was bound to its alias.
	EventHiveLoaded EventType = "hive.loaded"
	// EventHiveUnloaded indicates an offline hive alias was released.
	EventHiveUnloaded EventType = "hive.unloaded"
	// EventRegistryImported indicates the modification file was applied.
	EventRegistryImported EventType = "registry.imported"

	// EventWarning indicates a best-effort step failed without aborting.
	EventWarning EventType = "warning"

	// EventDispositionChosen indicates the operator picked commit/discard.
	EventDispositionChosen EventType = "disposition.chosen"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements the Logger interface.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements the Observer interface.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	log.Print(formatEvent(event))
}

// Progress implements the Observer interface.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total == 0 {
		log.Printf("[%s] Progress: %d/%d", phase, current, total)
		return
	}
	percentage := (current * 100) / total
	log.Printf("[%s] Progress: %d/%d (%d%%)", phase, current, total, percentage)
}

// formatEvent formats an event for console output.
func formatEvent(event Event) string {
	var parts []string

	parts = append(parts, string(event.Type))

	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}
	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}

	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		var fieldParts []string
		for k, v := range event.Fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// Helper functions for common events

// LogWarning logs a best-effort step failure and records it in state.
func LogWarning(ctx *Context, phase string, err error) {
	ctx.State.AddWarning(phase, err)
	ctx.Observer.Event(Event{
		Type:    EventWarning,
		Phase:   phase,
		Message: err.Error(),
	})
}

// LogPackageRemoved logs a successful provisioned-package removal.
func LogPackageRemoved(observer Observer, pattern, packageName string) {
	observer.Event(Event{
		Type:     EventPackageRemoved,
		Phase:    "packages",
		Resource: packageName,
		Message:  "provisioned package removed",
		Fields: map[string]string{
			"pattern": pattern,
		},
	})
}

// LogPatternUnmatched logs a removal pattern that matched nothing.
// This is informational only; an unmatched pattern never fails the run.
func LogPatternUnmatched(observer Observer, pattern string) {
	observer.Event(Event{
		Type:     EventPatternUnmatched,
		Phase:    "packages",
		Resource: pattern,
		Message:  "no provisioned package matches pattern",
	})
}

// LogHiveLoaded logs a hive alias binding.
func LogHiveLoaded(observer Observer, alias, hivePath string) {
	observer.Event(Event{
		Type:     EventHiveLoaded,
		Phase:    "registry",
		Resource: alias,
		Message:  "offline hive loaded",
		Fields: map[string]string{
			"hive": hivePath,
		},
	})
}

// LogHiveUnloaded logs a hive alias release.
func LogHiveUnloaded(observer Observer, alias string) {
	observer.Event(Event{
		Type:     EventHiveUnloaded,
		Phase:    "registry",
		Resource: alias,
		Message:  "offline hive unloaded",
	})
}

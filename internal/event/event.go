// Package event defines the structured record written to category log files:
// the Event envelope, the fixed Category and Level enums, and the tagged-union
// Value type used for open per-category fields.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCategory is returned when a category name is not one of the fixed set.
var ErrInvalidCategory = errors.New("event: invalid category") //nolint:gochecknoglobals // sentinel error

// Category is a fixed logical channel for one kind of event.
type Category string

const (
	CategoryInteraction Category = "interaction"
	CategoryAgent       Category = "agent"
	CategoryWorkflow    Category = "workflow"
	CategoryTool        Category = "tool"
	CategorySystem      Category = "system"
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
)

// Categories returns all categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryInteraction,
		CategoryAgent,
		CategoryWorkflow,
		CategoryTool,
		CategorySystem,
		CategoryPerformance,
		CategorySecurity,
	}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryInteraction, CategoryAgent, CategoryWorkflow, CategoryTool,
		CategorySystem, CategoryPerformance, CategorySecurity:
		return true
	default:
		return false
	}
}

// Dir returns the subdirectory name for the category under the log root.
func (c Category) Dir() string {
	switch c {
	case CategoryInteraction:
		return "interactions"
	case CategoryAgent:
		return "agents"
	case CategoryWorkflow:
		return "workflows"
	case CategoryTool:
		return "tools"
	case CategorySystem:
		return "system"
	case CategoryPerformance:
		return "performance"
	case CategorySecurity:
		return "security"
	default:
		return string(c)
	}
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Level is the severity of an event.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// String returns the canonical upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
}

// ParseLevel converts a level name (any case) into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "DEBUG", "debug":
		return LevelDebug, nil
	case "INFO", "info":
		return LevelInfo, nil
	case "WARNING", "warning", "WARN", "warn":
		return LevelWarning, nil
	case "ERROR", "error":
		return LevelError, nil
	case "CRITICAL", "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("event: invalid level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FieldFormatWarning is added to a record's fields when a caller-supplied value
// could not be represented natively and was coerced to its string form.
const FieldFormatWarning = "format_warning"

// Event is one immutable logged occurrence. Corrections are new events, never
// in-place edits.
type Event struct {
	ID        uuid.UUID
	SessionID string // empty for system-level events
	Timestamp time.Time
	Category  Category
	Level     Level
	Fields    Fields
}

// Validate checks the record invariants before it reaches a writer.
func (e Event) Validate() error {
	if e.Timestamp.IsZero() {
		return errors.New("event: zero timestamp")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	return nil
}

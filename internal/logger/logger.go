// Package logger is the write-side façade of the logging engine. Callers
// derive a session-scoped Logger and invoke one method per event category;
// each call validates its required fields, stamps timestamp and session, and
// appends one record to the category's current dated file.
package logger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sundog-ai/chronicle/internal/config"
	"github.com/sundog-ai/chronicle/internal/event"
)

// ErrValidation is returned when a caller-supplied event is missing a required
// field. Nothing is written in that case.
var ErrValidation = errors.New("logger: validation") //nolint:gochecknoglobals // sentinel error

// Session correlates events across categories for one logical user/agent
// interaction. The logger keeps no session registry; the session lives only in
// the records it stamps.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// NewSession creates a session with a generated identifier.
func NewSession(userID string) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

// Logger is the public write API. It is cheap to copy via WithSession; all
// loggers derived from the same registry share the category writers.
type Logger struct {
	cfg     *config.Config
	reg     *Registry
	session Session
	now     func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// New creates a logger over an injected registry.
func New(cfg *config.Config, reg *Registry, opts ...Option) *Logger {
	l := &Logger{cfg: cfg, reg: reg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithSession returns a derived logger that stamps every record with the
// session. The receiver is unchanged.
func (l *Logger) WithSession(s Session) *Logger {
	derived := *l
	derived.session = s
	return &derived
}

// Session returns the session the logger stamps onto records.
func (l *Logger) Session() Session {
	return l.session
}

// Interaction describes one user-agent exchange.
type Interaction struct {
	Type       string // required, e.g. "user_message", "agent_response"
	UserID     string
	Message    string
	Agent      string
	Response   string
	DurationMS float64
	Error      string
	Metadata   map[string]any
}

// LogInteraction records a user-agent interaction.
func (l *Logger) LogInteraction(p Interaction) error {
	if p.Type == "" {
		return fmt.Errorf("%w: interaction type is required", ErrValidation)
	}

	fields := event.Fields{"interaction_type": event.String(p.Type)}
	setString(fields, "user_id", p.UserID)
	setString(fields, "message", p.Message)
	setString(fields, "agent", p.Agent)
	setString(fields, "agent_response", p.Response)
	setDuration(fields, p.DurationMS)

	level := event.LevelInfo
	if p.Error != "" {
		fields["error"] = event.String(p.Error)
		level = event.LevelError
	}
	attachMetadata(fields, p.Metadata)

	return l.emit(event.CategoryInteraction, level, fields)
}

// AgentActivity describes one unit of agent work, typically an LLM call.
type AgentActivity struct {
	Agent            string // required
	Action           string // required, e.g. "llm_call", "planning"
	LLMModel         string
	PromptTokens     int
	CompletionTokens int
	DurationMS       float64
	Metadata         map[string]any
}

// LogAgentActivity records agent work, including token accounting when the
// caller supplies it.
func (l *Logger) LogAgentActivity(p AgentActivity) error {
	if p.Agent == "" {
		return fmt.Errorf("%w: agent name is required", ErrValidation)
	}
	if p.Action == "" {
		return fmt.Errorf("%w: agent action is required", ErrValidation)
	}

	fields := event.Fields{
		"agent":  event.String(p.Agent),
		"action": event.String(p.Action),
	}
	setString(fields, "llm_model", p.LLMModel)
	if total := p.PromptTokens + p.CompletionTokens; total > 0 {
		fields["tokens_used"] = event.Int(int64(total))
	}
	setDuration(fields, p.DurationMS)
	attachMetadata(fields, p.Metadata)

	return l.emit(event.CategoryAgent, event.LevelInfo, fields)
}

// WorkflowEvent describes a node transition in a workflow graph.
type WorkflowEvent struct {
	WorkflowType string // required
	NodeName     string // required
	Status       string // required: "started", "completed", "error"
	DurationMS   float64
	Error        string
	Metadata     map[string]any
}

// LogWorkflowEvent records a workflow node transition. Error statuses are
// written at ERROR level.
func (l *Logger) LogWorkflowEvent(p WorkflowEvent) error {
	if p.WorkflowType == "" {
		return fmt.Errorf("%w: workflow type is required", ErrValidation)
	}
	if p.NodeName == "" {
		return fmt.Errorf("%w: workflow node name is required", ErrValidation)
	}
	if p.Status == "" {
		return fmt.Errorf("%w: workflow status is required", ErrValidation)
	}

	fields := event.Fields{
		"workflow_type": event.String(p.WorkflowType),
		"node_name":     event.String(p.NodeName),
		"status":        event.String(p.Status),
	}
	setDuration(fields, p.DurationMS)

	level := event.LevelInfo
	if p.Status == "error" || p.Error != "" {
		level = event.LevelError
	}
	if p.Error != "" {
		fields["error"] = event.String(p.Error)
	}
	attachMetadata(fields, p.Metadata)

	return l.emit(event.CategoryWorkflow, level, fields)
}

// ToolUsage describes one tool invocation by an agent.
type ToolUsage struct {
	ToolName   string // required
	Agent      string
	Success    bool
	DurationMS float64
	Error      string
	Input      map[string]any
}

// LogToolUsage records a tool invocation. Failures are written at ERROR level.
func (l *Logger) LogToolUsage(p ToolUsage) error {
	if p.ToolName == "" {
		return fmt.Errorf("%w: tool name is required", ErrValidation)
	}

	fields := event.Fields{
		"tool_name": event.String(p.ToolName),
		"success":   event.Bool(p.Success),
	}
	setString(fields, "agent", p.Agent)
	setDuration(fields, p.DurationMS)
	setString(fields, "error", p.Error)
	if len(p.Input) > 0 {
		v, clean := event.Coerce(p.Input)
		fields["input"] = v
		if !clean {
			fields[event.FieldFormatWarning] = event.Bool(true)
		}
	}

	level := event.LevelInfo
	if !p.Success {
		level = event.LevelError
	}
	return l.emit(event.CategoryTool, level, fields)
}

// PerformanceMetric describes one measured value.
type PerformanceMetric struct {
	Name     string // required
	Value    float64
	Unit     string // defaults to "ms"
	Metadata map[string]any
}

// LogPerformanceMetric records a measurement.
func (l *Logger) LogPerformanceMetric(p PerformanceMetric) error {
	if p.Name == "" {
		return fmt.Errorf("%w: metric name is required", ErrValidation)
	}
	unit := p.Unit
	if unit == "" {
		unit = "ms"
	}

	fields := event.Fields{
		"metric_name": event.String(p.Name),
		"value":       event.Float(p.Value),
		"unit":        event.String(unit),
	}
	attachMetadata(fields, p.Metadata)

	return l.emit(event.CategoryPerformance, event.LevelInfo, fields)
}

// SecurityEvent describes a security-relevant occurrence.
type SecurityEvent struct {
	Type        string // required, e.g. "auth_failure"
	Description string
	Severity    string // level name; defaults to INFO
	Source      string
	UserID      string
	Metadata    map[string]any
}

// LogSecurityEvent records a security event at the level named by Severity.
func (l *Logger) LogSecurityEvent(p SecurityEvent) error {
	if p.Type == "" {
		return fmt.Errorf("%w: security event type is required", ErrValidation)
	}

	level := event.LevelInfo
	severity := "INFO"
	if p.Severity != "" {
		parsed, err := event.ParseLevel(p.Severity)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		level = parsed
		severity = parsed.String()
	}

	fields := event.Fields{
		"event_type": event.String(p.Type),
		"severity":   event.String(severity),
	}
	setString(fields, "description", p.Description)
	setString(fields, "source", p.Source)
	setString(fields, "user_id", p.UserID)
	attachMetadata(fields, p.Metadata)

	return l.emit(event.CategorySecurity, level, fields)
}

// LogEvent records an arbitrary event on any category. The category must be
// one of the fixed set; field values are coerced into the supported kinds.
func (l *Logger) LogEvent(cat event.Category, level event.Level, fields map[string]any) error {
	if !cat.Valid() {
		return fmt.Errorf("logger: %w: %q", event.ErrInvalidCategory, cat)
	}

	out := make(event.Fields, len(fields))
	warn := false
	for k, v := range fields {
		cv, clean := event.Coerce(v)
		if !clean {
			warn = true
		}
		out[k] = cv
	}
	if warn {
		out[event.FieldFormatWarning] = event.Bool(true)
	}

	return l.emit(cat, level, out)
}

// emit builds the record and hands it to the category's writer. Events on
// disabled categories or below the level threshold are successful no-ops.
// Write-path faults never reach the caller; the writer absorbs them.
func (l *Logger) emit(cat event.Category, level event.Level, fields event.Fields) error {
	cc := l.cfg.Category(cat)
	if !cc.Enabled {
		return nil
	}
	min, err := cc.MinLevel()
	if err != nil {
		// Config was validated at load; fall back rather than drop the event.
		min = event.LevelInfo
	}
	if level < min {
		return nil
	}

	e := event.Event{
		ID:        uuid.New(),
		SessionID: l.session.ID,
		Timestamp: l.now().UTC(),
		Category:  cat,
		Level:     level,
		Fields:    fields,
	}

	line, err := event.Encode(e)
	if err != nil {
		log.Warn().Str("category", string(cat)).Err(err).Msg("logger: dropping unencodable record")
		return nil
	}

	w, err := l.reg.Writer(cat)
	if err != nil {
		return err
	}
	w.Write(line)
	return nil
}

func setString(fields event.Fields, key, val string) {
	if val != "" {
		fields[key] = event.String(val)
	}
}

func setDuration(fields event.Fields, ms float64) {
	if ms > 0 {
		fields["duration_ms"] = event.Float(ms)
	}
}

// attachMetadata nests caller metadata under a single key so it cannot collide
// with the category's canonical fields.
func attachMetadata(fields event.Fields, meta map[string]any) {
	if len(meta) == 0 {
		return
	}
	v, clean := event.Coerce(meta)
	fields["metadata"] = v
	if !clean {
		fields[event.FieldFormatWarning] = event.Bool(true)
	}
}
